package model

import "fmt"

// Severity classifies a diagnostic.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic codes.
const (
	CodeLex              = "lex"
	CodeParse            = "parse"
	CodeRedeclaration    = "redeclaration"
	CodeDanglingGroup    = "dangling-group"
	CodeSkipped          = "skipped-construct"
	CodeCrossCheck       = "crosscheck"
	CodeInheritanceCycle = "inheritance-cycle"
	CodeIO               = "io"
)

// Diagnostic is one recoverable or fatal issue found while processing a file.
type Diagnostic struct {
	Severity Severity
	Code     string
	File     string
	Line     int
	Col      int
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s [%s]", d.File, d.Line, d.Col, d.Severity, d.Message, d.Code)
}

// Warning builds a warning diagnostic at pos.
func Warning(code string, pos Pos, format string, args ...any) Diagnostic {
	return Diagnostic{
		Severity: SeverityWarning,
		Code:     code,
		File:     pos.File,
		Line:     pos.Line,
		Col:      pos.Col,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Diagnoser is implemented by errors that know how to report themselves.
type Diagnoser interface {
	error
	Diagnostic() Diagnostic
}

// RedeclarationError reports a conflicting re-declaration in the same scope.
type RedeclarationError struct {
	Key  string
	What string
	Pos  Pos
	Prev Pos
}

func (e *RedeclarationError) Error() string {
	return fmt.Sprintf("redeclaration of %s (previous definition at %s) at %s", e.What, e.Prev, e.Pos)
}

func (e *RedeclarationError) Diagnostic() Diagnostic {
	return Diagnostic{
		Severity: SeverityError,
		Code:     CodeRedeclaration,
		File:     e.Pos.File,
		Line:     e.Pos.Line,
		Col:      e.Pos.Col,
		Message:  fmt.Sprintf("redeclaration of %s (previous definition at %s)", e.What, e.Prev),
	}
}
