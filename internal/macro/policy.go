package macro

import (
	"github.com/phobologic/headerdoc/internal/lex"
)

// Policy decides whether the tokens at toks[i] are an annotation macro
// invocation. It is consulted only after ordinary declaration parsing has
// failed at i. On success it returns the macro name and the index of the
// first token after the invocation.
type Policy interface {
	Recover(toks []lex.Token, i int) (name string, next int, ok bool)
}

// Generic accepts a bare non-keyword identifier followed by ';', by a
// balanced parenthesised argument list (optionally followed by ';'), or by
// nothing else on its line.
type Generic struct{}

func (Generic) Recover(toks []lex.Token, i int) (string, int, bool) {
	if i >= len(toks) || toks[i].Kind != lex.Ident || lex.IsKeyword(toks[i].Text) {
		return "", 0, false
	}
	name := toks[i].Text
	if i+1 >= len(toks) {
		return name, i + 1, true
	}
	next := toks[i+1]
	switch {
	case next.Is(";"):
		return name, i + 2, true
	case next.Is("("):
		end := closeParen(toks, i+1)
		if end < 0 {
			return "", 0, false
		}
		if end+1 < len(toks) && toks[end+1].Is(";") {
			return name, end + 2, true
		}
		return name, end + 1, true
	case next.Kind == lex.EOF, next.Is("}"), next.Pos.Line > toks[i].EndLine:
		return name, i + 1, true
	}
	return "", 0, false
}

// Known wraps a policy and additionally accepts the configured names
// wherever they appear, even when followed by other tokens on the line.
type Known struct {
	Names map[string]bool
	Base  Policy
}

// NewKnown builds a Known policy over Generic.
func NewKnown(names ...string) *Known {
	k := &Known{Names: make(map[string]bool, len(names)), Base: Generic{}}
	for _, n := range names {
		k.Names[n] = true
	}
	return k
}

func (k *Known) Recover(toks []lex.Token, i int) (string, int, bool) {
	if i < len(toks) && toks[i].Kind == lex.Ident && k.Names[toks[i].Text] {
		next := i + 1
		if next < len(toks) && toks[next].Is("(") {
			end := closeParen(toks, next)
			if end < 0 {
				return "", 0, false
			}
			next = end + 1
		}
		if next < len(toks) && toks[next].Is(";") {
			next++
		}
		return toks[i].Text, next, true
	}
	if k.Base == nil {
		return "", 0, false
	}
	return k.Base.Recover(toks, i)
}

func closeParen(toks []lex.Token, i int) int {
	depth := 0
	for k := i; k < len(toks); k++ {
		switch {
		case toks[k].Is("("):
			depth++
		case toks[k].Is(")"):
			depth--
			if depth == 0 {
				return k
			}
		case toks[k].Is(";") && depth > 0, toks[k].Is("{"):
			return -1
		}
	}
	return -1
}
