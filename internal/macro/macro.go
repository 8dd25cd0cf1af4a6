// Package macro recognises #define directives and recovers from annotation
// macros such as Q_OBJECT that appear where a declaration is expected.
package macro

import (
	"fmt"
	"strings"

	"github.com/phobologic/headerdoc/internal/lex"
	"github.com/phobologic/headerdoc/internal/model"
)

// Error is a malformed directive.
type Error struct {
	Pos model.Pos
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at %s", e.Msg, e.Pos)
}

// Directive returns the directive name of a preprocessor token, e.g. "define".
// It returns "" for a null directive.
func Directive(tok lex.Token) string {
	name, _ := directive(tok.Text)
	return name
}

// Pragma returns the pragma text of a #pragma line, trimmed.
func Pragma(tok lex.Token) string {
	name, rest := directive(tok.Text)
	if name != "pragma" {
		return ""
	}
	return strings.TrimSpace(rest)
}

func directive(text string) (name, rest string) {
	text = strings.TrimLeft(strings.TrimPrefix(text, "#"), " \t")
	end := 0
	for end < len(text) && isIdentChar(text[end]) {
		end++
	}
	return text[:end], text[end:]
}

// ParseDefine parses a #define token. A macro is function-like only when
// '(' immediately follows its name.
func ParseDefine(tok lex.Token) (*model.MacroDecl, error) {
	name, rest := directive(tok.Text)
	if name != "define" {
		return nil, &Error{Pos: tok.Pos, Msg: "not a #define directive"}
	}
	rest = strings.TrimLeft(rest, " \t")
	end := 0
	for end < len(rest) && isIdentChar(rest[end]) {
		end++
	}
	if end == 0 || isDigit(rest[0]) {
		return nil, &Error{Pos: tok.Pos, Msg: "macro names must be identifiers"}
	}
	m := &model.MacroDecl{DeclInfo: model.DeclInfo{Name: rest[:end], Pos: tok.Pos}}
	rest = rest[end:]
	if strings.HasPrefix(rest, "(") {
		m.FunctionLike = true
		closeIdx := strings.IndexByte(rest, ')')
		if closeIdx < 0 {
			return nil, &Error{Pos: tok.Pos, Msg: fmt.Sprintf("missing ')' in parameter list of macro %s", m.Name)}
		}
		params, variadic, err := parseParams(rest[1:closeIdx])
		if err != nil {
			return nil, &Error{Pos: tok.Pos, Msg: fmt.Sprintf("%s in parameter list of macro %s", err, m.Name)}
		}
		m.Params, m.Variadic = params, variadic
		rest = rest[closeIdx+1:]
	}
	m.Body = strings.TrimSpace(rest)
	return m, nil
}

func parseParams(list string) ([]string, bool, error) {
	if strings.TrimSpace(list) == "" {
		return nil, false, nil
	}
	parts := strings.Split(list, ",")
	params := make([]string, 0, len(parts))
	variadic := false
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if variadic {
			return nil, false, fmt.Errorf("'...' must be the last parameter")
		}
		switch {
		case p == "...":
			variadic = true
			params = append(params, "__VA_ARGS__")
		case strings.HasSuffix(p, "...") && isIdent(strings.TrimSpace(strings.TrimSuffix(p, "..."))):
			variadic = true
			params = append(params, strings.TrimSpace(strings.TrimSuffix(p, "...")))
		case isIdent(p):
			params = append(params, p)
		case p == "":
			return nil, false, fmt.Errorf("expected parameter name at position %d", i+1)
		default:
			return nil, false, fmt.Errorf("invalid parameter %q", p)
		}
	}
	return params, variadic, nil
}

func isIdent(s string) bool {
	if s == "" || isDigit(s[0]) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentChar(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentChar(c byte) bool {
	return c == '_' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}
