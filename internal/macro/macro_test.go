package macro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/headerdoc/internal/lex"
)

func tokenize(t *testing.T, src string) []lex.Token {
	t.Helper()
	toks, err := lex.Tokenize("m.h", []byte(src))
	require.NoError(t, err)
	return toks
}

func TestParseDefine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src          string
		name         string
		params       []string
		functionLike bool
		variadic     bool
		body         string
	}{
		{"#define MY_MACRO(x) foo(x)", "MY_MACRO", []string{"x"}, true, false, "foo(x)"},
		{"#define OBJ (x) + 1", "OBJ", nil, false, false, "(x) + 1"},
		{"#define EMPTY", "EMPTY", nil, false, false, ""},
		{"#  define NOARGS() 1", "NOARGS", nil, true, false, "1"},
		{"#define LOG(fmt, ...) printf(fmt, __VA_ARGS__)", "LOG", []string{"fmt", "__VA_ARGS__"}, true, true, "printf(fmt, __VA_ARGS__)"},
		{"#define GLOG(args...) g(args)", "GLOG", []string{"args"}, true, true, "g(args)"},
		{"#define MAX(a, b) \\\n ((a) > (b) ? (a) : (b))", "MAX", []string{"a", "b"}, true, false, "((a) > (b) ? (a) : (b))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			toks := tokenize(t, tt.src)
			m, err := ParseDefine(toks[0])
			require.NoError(t, err)
			assert.Equal(t, tt.name, m.Name)
			assert.Equal(t, tt.params, m.Params)
			assert.Equal(t, tt.functionLike, m.FunctionLike)
			assert.Equal(t, tt.variadic, m.Variadic)
			assert.Equal(t, tt.body, m.Body)
			assert.Equal(t, 1, m.Pos.Line)
		})
	}
}

func TestParseDefineErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"#define":             "macro names must be identifiers",
		"#define 3X 1":        "macro names must be identifiers",
		"#define F(a, b":      "missing ')' in parameter list of macro F",
		"#define F(a,,b) 1":   "expected parameter name at position 2 in parameter list of macro F",
		"#define F(a+b) 1":    `invalid parameter "a+b" in parameter list of macro F`,
		"#define F(..., a) 1": "'...' must be the last parameter in parameter list of macro F",
		"#include <string>":   "not a #define directive",
	}
	for src, msg := range tests {
		t.Run(src, func(t *testing.T) {
			t.Parallel()
			toks := tokenize(t, src)
			_, err := ParseDefine(toks[0])
			var merr *Error
			require.ErrorAs(t, err, &merr)
			assert.Equal(t, msg, merr.Msg)
		})
	}
}

func TestDirective(t *testing.T) {
	t.Parallel()

	toks := tokenize(t, "#include <string>\n# pragma once\n#pragma pack(push, 1)\n#\n")
	assert.Equal(t, "include", Directive(toks[0]))
	assert.Equal(t, "pragma", Directive(toks[1]))
	assert.Equal(t, "once", Pragma(toks[1]))
	assert.Equal(t, "pack(push, 1)", Pragma(toks[2]))
	assert.Equal(t, "", Pragma(toks[0]))
	assert.Equal(t, "", Directive(toks[3]))
}

func TestGenericPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		src      string
		want     string
		nextText string
		ok       bool
	}{
		{"bare semicolon", "Q_OBJECT; int x;", "Q_OBJECT", "int", true},
		{"nothing else on line", "Q_OBJECT\nint x;", "Q_OBJECT", "int", true},
		{"call", "Q_PROPERTY(int value READ value WRITE setValue)\nint x;", "Q_PROPERTY", "int", true},
		{"call and semicolon", "Q_DISABLE_COPY(Foo); int x;", "Q_DISABLE_COPY", "int", true},
		{"before close brace", "Q_GADGET }", "Q_GADGET", "}", true},
		{"followed by a type", "MyType value;", "", "", false},
		{"keyword", "int;", "", "", false},
		{"unbalanced", "M(a; int x;", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			toks := tokenize(t, tt.src)
			name, next, ok := Generic{}.Recover(toks, 0)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.want, name)
			assert.Equal(t, tt.nextText, toks[next].Text)
		})
	}
}

func TestKnownPolicy(t *testing.T) {
	t.Parallel()

	p := NewKnown("Q_ENUM", "MY_EXPORT")
	toks := tokenize(t, "MY_EXPORT void f();")
	name, next, ok := p.Recover(toks, 0)
	require.True(t, ok)
	assert.Equal(t, "MY_EXPORT", name)
	assert.Equal(t, "void", toks[next].Text)

	toks = tokenize(t, "Q_ENUM(Color) int x;")
	name, next, ok = p.Recover(toks, 0)
	require.True(t, ok)
	assert.Equal(t, "Q_ENUM", name)
	assert.Equal(t, "int", toks[next].Text)

	// Unknown names fall through to the generic policy.
	toks = tokenize(t, "Q_OBJECT;")
	name, _, ok = p.Recover(toks, 0)
	require.True(t, ok)
	assert.Equal(t, "Q_OBJECT", name)
}
