package crosscheck

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/headerdoc/internal/doc"
	"github.com/phobologic/headerdoc/internal/lex"
	"github.com/phobologic/headerdoc/internal/model"
	"github.com/phobologic/headerdoc/internal/parse"
	"github.com/phobologic/headerdoc/internal/symtab"
)

func table(t *testing.T, src string) *model.SymbolTable {
	t.Helper()
	toks, err := lex.Tokenize("a.h", []byte(src))
	require.NoError(t, err)
	blocks := doc.Collect(toks, doc.Options{Gap: doc.DefaultGap})
	res, err := parse.Parse("a.h", toks, doc.NewIndex(toks, blocks), parse.Options{})
	require.NoError(t, err)
	tab, _, err := symtab.Build("a.h", res, blocks, symtab.Options{})
	require.NoError(t, err)
	return tab
}

func checker(t *testing.T) *Checker {
	t.Helper()
	c, err := New(nil)
	require.NoError(t, err)
	return c
}

func TestOutline(t *testing.T) {
	t.Parallel()

	src := []byte(`#define M 1
namespace ns {
class A {};
enum E { X };
}
#if 0
class Hidden {};
#endif
`)
	defs, hasErrors, err := checker(t).Outline(context.Background(), "a.h", src)
	require.NoError(t, err)
	assert.False(t, hasErrors)

	var got []string
	for _, d := range defs {
		got = append(got, string(d.Kind)+" "+d.Name)
	}
	assert.ElementsMatch(t, []string{"macro M", "namespace ns", "class A", "enum E"}, got)
}

func TestCheckAgreesWithModel(t *testing.T) {
	t.Parallel()

	src := `#define M 1
namespace ns {
/// A thing.
class A {
public:
    void f();
};
enum class E { X, Y };
}
`
	rep, err := checker(t).Check(context.Background(), table(t, src), []byte(src))
	require.NoError(t, err)
	assert.False(t, rep.Skipped)
	assert.Len(t, rep.Definitions, 4)
	assert.Empty(t, rep.Diagnostics)
}

func TestCheckReportsMissingDeclarations(t *testing.T) {
	t.Parallel()

	// The model skips typedefs, so the struct inside one is unknown to it.
	src := "typedef struct S { int x; } S;\n"
	rep, err := checker(t).Check(context.Background(), table(t, src), []byte(src))
	require.NoError(t, err)
	require.Len(t, rep.Diagnostics, 1)

	w := rep.Diagnostics[0]
	assert.Equal(t, model.CodeCrossCheck, w.Code)
	assert.Equal(t, model.SeverityWarning, w.Severity)
	assert.Equal(t, 1, w.Line)
	assert.Equal(t, 16, w.Col)
	assert.Equal(t, "tree-sitter sees class S but the model has no such declaration", w.Message)
}

func TestCheckSkipsTreesWithErrors(t *testing.T) {
	t.Parallel()

	tab := &model.SymbolTable{File: "a.h"}
	tab.Reindex()
	rep, err := checker(t).Check(context.Background(), tab, []byte("class A { void f( };\n"))
	require.NoError(t, err)
	assert.True(t, rep.Skipped)
	assert.Empty(t, rep.Diagnostics)
}

func TestOutlineEmptySource(t *testing.T) {
	t.Parallel()

	defs, hasErrors, err := checker(t).Outline(context.Background(), "a.h", nil)
	require.NoError(t, err)
	assert.False(t, hasErrors)
	assert.Empty(t, defs)
}
