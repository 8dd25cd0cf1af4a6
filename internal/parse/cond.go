package parse

import (
	"strings"

	"github.com/phobologic/headerdoc/internal/lex"
	"github.com/phobologic/headerdoc/internal/macro"
)

type condFrame struct {
	parentActive bool
	active       bool
	taken        bool
}

// activeTokens drops comments and conditional-compilation directives, keeping
// only the first branch of each #if chain whose condition is not literally
// false. orig maps each kept token back to its index in toks.
func activeTokens(toks []lex.Token) (code []lex.Token, orig []int) {
	var stack []condFrame
	active := true
	for i, t := range toks {
		if t.Kind == lex.Comment {
			continue
		}
		if t.Kind == lex.Preprocessor {
			name := macro.Directive(t)
			switch name {
			case "if", "ifdef", "ifndef":
				take := active && !(name == "if" && isFalse(t))
				stack = append(stack, condFrame{parentActive: active, active: take, taken: take})
				active = take
				continue
			case "elif", "elifdef", "elifndef":
				if len(stack) == 0 {
					continue
				}
				f := &stack[len(stack)-1]
				f.active = f.parentActive && !f.taken && !(name == "elif" && isFalse(t))
				f.taken = f.taken || f.active
				active = f.active
				continue
			case "else":
				if len(stack) == 0 {
					continue
				}
				f := &stack[len(stack)-1]
				f.active = f.parentActive && !f.taken
				f.taken = true
				active = f.active
				continue
			case "endif":
				if len(stack) == 0 {
					continue
				}
				active = stack[len(stack)-1].parentActive
				stack = stack[:len(stack)-1]
				continue
			}
		}
		if !active && t.Kind != lex.EOF {
			continue
		}
		code = append(code, t)
		orig = append(orig, i)
	}
	return code, orig
}

func isFalse(t lex.Token) bool {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(t.Text), "#"))
	return len(fields) == 2 && (fields[1] == "0" || fields[1] == "false")
}
