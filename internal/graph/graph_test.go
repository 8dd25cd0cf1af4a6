package graph

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/headerdoc/internal/extract"
	"github.com/phobologic/headerdoc/internal/model"
)

func table(t *testing.T, path, src string) *model.SymbolTable {
	t.Helper()
	res := extract.File(context.Background(), path, []byte(src), extract.Options{})
	require.NoError(t, res.Err)
	return res.Table
}

func TestBuildResolvesThroughScopes(t *testing.T) {
	t.Parallel()

	base := table(t, "base.h", `namespace core {
class Object {};
class Shape : public Object {};
}
`)
	derived := table(t, "shapes.h", `namespace core {
namespace shapes {
class Circle : public Shape, private virtual ::core::Object {};
class Square : public core::Shape, public std::enable_shared_from_this<Square> {};
}
}
`)

	g := Build([]*model.SymbolTable{base, derived})
	assert.Empty(t, g.Warnings())
	assert.Equal(t, []Edge{
		{Derived: "core::Shape", Base: "core::Object", Access: model.AccessPublic},
		{Derived: "core::shapes::Circle", Base: "core::Object", Access: model.AccessPrivate, Virtual: true},
		{Derived: "core::shapes::Circle", Base: "core::Shape", Access: model.AccessPublic},
		{Derived: "core::shapes::Square", Base: "core::Shape", Access: model.AccessPublic},
		{Derived: "core::shapes::Square", Base: "std::enable_shared_from_this", Access: model.AccessPublic},
	}, g.Edges())

	assert.Equal(t, []string{"core::Object", "core::Shape"}, g.Bases("core::shapes::Circle"))
	assert.Equal(t, []string{"core::shapes::Circle", "core::shapes::Square"}, g.Derived("core::Shape"))

	ext, ok := g.Class("std::enable_shared_from_this")
	require.True(t, ok)
	assert.True(t, ext.External())
	shape, ok := g.Class("core::Shape")
	require.True(t, ok)
	assert.Equal(t, "base.h", shape.File)

	assert.Equal(t, []Dependency{
		{Source: "shapes.h", Target: "base.h", Classes: []string{"core::shapes::Circle", "core::shapes::Square"}},
	}, g.Dependencies())
}

func TestBuildReportsCycles(t *testing.T) {
	t.Parallel()

	g := Build([]*model.SymbolTable{table(t, "a.h", `namespace a {
class X : public Y {};
class Y : public X {};
}
`)})
	require.Len(t, g.Warnings(), 1)
	w := g.Warnings()[0]
	assert.Equal(t, model.CodeInheritanceCycle, w.Code)
	assert.Equal(t, 3, w.Line)
	assert.Equal(t, "class a::Y inherits from itself through a::X", w.Message)
	assert.Len(t, g.Edges(), 1)
}

func TestRankUniform(t *testing.T) {
	t.Parallel()

	ranks := Rank([]string{"a.h", "b.h", "c.h"}, nil)
	for f, r := range ranks {
		assert.InDelta(t, 1.0/3.0, r, 1e-9, f)
	}
}

func TestRankWithEdges(t *testing.T) {
	t.Parallel()

	ranks := Rank([]string{"a.h", "b.h", "c.h"}, []Dependency{
		{Source: "a.h", Target: "b.h", Classes: []string{"X"}},
		{Source: "c.h", Target: "b.h", Classes: []string{"Y"}},
	})

	assert.Greater(t, ranks["b.h"], ranks["a.h"])
	assert.InDelta(t, ranks["a.h"], ranks["c.h"], 1e-9)

	var sum float64
	for _, r := range ranks {
		sum += r
	}
	assert.LessOrEqual(t, math.Abs(sum-1.0), 0.01)
}

func TestRankEmpty(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Rank(nil, nil))
}

func TestTrimTemplate(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "a::B::C", trimTemplate("a::B< int >::C"))
	assert.Equal(t, "std::hash", trimTemplate("std::hash< Box < int > >"))
	assert.Equal(t, "Plain", trimTemplate("Plain"))
}
