package lex

import (
	"fmt"

	"github.com/phobologic/headerdoc/internal/model"
)

// Kind is the lexical class of a token.
type Kind int

const (
	EOF Kind = iota
	Ident
	Punct
	Literal
	Comment
	Preprocessor
)

var kindNames = [...]string{
	EOF:          "eof",
	Ident:        "identifier",
	Punct:        "punctuation",
	Literal:      "literal",
	Comment:      "comment",
	Preprocessor: "preprocessor",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token is one lexeme. Tokens are never modified after Tokenize returns.
type Token struct {
	Kind Kind
	Text string
	Pos  model.Pos
	// EndLine is the last line the token touches; equal to Pos.Line for
	// single-line tokens.
	EndLine int
}

// Is reports whether the token is a non-literal with the given spelling.
func (t Token) Is(text string) bool {
	return (t.Kind == Punct || t.Kind == Ident) && t.Text == text
}

func (t Token) String() string {
	if t.Kind == EOF {
		return "end of file"
	}
	return fmt.Sprintf("%q", t.Text)
}

// Error is a malformed-input error. It is fatal for the file.
type Error struct {
	Pos model.Pos
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at %s", e.Msg, e.Pos)
}

func (e *Error) Diagnostic() model.Diagnostic {
	return model.Diagnostic{
		Severity: model.SeverityError,
		Code:     model.CodeLex,
		File:     e.Pos.File,
		Line:     e.Pos.Line,
		Col:      e.Pos.Col,
		Message:  e.Msg,
	}
}
