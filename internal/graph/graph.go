// Package graph builds the class inheritance graph of a set of headers and
// ranks headers by how much other headers build on them.
package graph

import (
	"errors"
	"math"
	"sort"
	"strings"

	dgraph "github.com/dominikbraun/graph"

	"github.com/phobologic/headerdoc/internal/model"
)

// Class is one vertex of the inheritance graph. External classes are bases
// that no table defines; they have no Decl and no File.
type Class struct {
	Name string
	File string
	Decl *model.ClassDecl
}

// External reports whether the class is defined outside the given tables.
func (c *Class) External() bool {
	return c.Decl == nil
}

// Edge is a derived-to-base relation.
type Edge = model.Inheritance

// Dependency is a file-level edge between headers.
type Dependency = model.Dependency

// Graph is the inheritance graph of a set of tables.
type Graph struct {
	g        dgraph.Graph[string, *Class]
	edges    []Edge
	warnings []model.Diagnostic
}

// Build creates the inheritance graph. Base names are resolved through the
// enclosing scopes of the derived class, innermost first; bases that resolve
// to nothing become external vertices. An edge that would close a cycle is
// dropped with an inheritance-cycle warning.
func Build(tables []*model.SymbolTable) *Graph {
	gr := &Graph{
		g: dgraph.New(func(c *Class) string { return c.Name }, dgraph.Directed(), dgraph.PreventCycles()),
	}

	defined := make(map[string]bool)
	var classes []*model.ClassDecl
	for _, t := range tables {
		for _, c := range t.Classes {
			name := c.QualifiedName()
			if defined[name] {
				continue
			}
			defined[name] = true
			_ = gr.g.AddVertex(&Class{Name: name, File: t.File, Decl: c})
			classes = append(classes, c)
		}
	}

	for _, c := range classes {
		derived := c.QualifiedName()
		for _, b := range c.Bases {
			base := resolve(c.Scope, b.Name, defined)
			if !defined[base] {
				if err := gr.g.AddVertex(&Class{Name: base}); err != nil && !errors.Is(err, dgraph.ErrVertexAlreadyExists) {
					continue
				}
			}
			e := Edge{Derived: derived, Base: base, Access: b.Access, Virtual: b.Virtual}
			err := gr.g.AddEdge(derived, base, dgraph.EdgeData(e))
			switch {
			case err == nil:
				gr.edges = append(gr.edges, e)
			case errors.Is(err, dgraph.ErrEdgeCreatesCycle):
				gr.warnings = append(gr.warnings, model.Warning(model.CodeInheritanceCycle, c.Pos,
					"class %s inherits from itself through %s", derived, base))
			}
		}
	}

	sort.Slice(gr.edges, func(i, j int) bool {
		if gr.edges[i].Derived != gr.edges[j].Derived {
			return gr.edges[i].Derived < gr.edges[j].Derived
		}
		return gr.edges[i].Base < gr.edges[j].Base
	})
	return gr
}

// resolve finds the qualified class a base specifier names, looking outward
// from scope. Template arguments are ignored.
func resolve(scope model.Scope, name string, defined map[string]bool) string {
	name = trimTemplate(name)
	if strings.HasPrefix(name, "::") {
		return strings.TrimPrefix(name, "::")
	}
	for i := len(scope); i >= 0; i-- {
		if q := scope[:i].Qualify(name); defined[q] {
			return q
		}
	}
	return name
}

// trimTemplate drops every template argument list: "a::B< int >::C" -> "a::B::C".
func trimTemplate(name string) string {
	var b strings.Builder
	depth := 0
	for _, r := range name {
		switch {
		case r == '<':
			depth++
		case r == '>':
			depth--
		case depth == 0 && r != ' ':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Edges returns every inheritance edge, sorted by derived then base name.
func (gr *Graph) Edges() []Edge {
	return gr.edges
}

// Warnings returns the inheritance-cycle diagnostics found while building.
func (gr *Graph) Warnings() []model.Diagnostic {
	return gr.warnings
}

// Class returns the vertex for a qualified class name.
func (gr *Graph) Class(name string) (*Class, bool) {
	c, err := gr.g.Vertex(name)
	if err != nil {
		return nil, false
	}
	return c, true
}

// Bases returns the direct bases of the class, sorted.
func (gr *Graph) Bases(name string) []string {
	adj, err := gr.g.AdjacencyMap()
	if err != nil {
		return nil
	}
	return sortedKeys(adj[name])
}

// Derived returns the classes deriving directly from the class, sorted.
func (gr *Graph) Derived(name string) []string {
	pred, err := gr.g.PredecessorMap()
	if err != nil {
		return nil
	}
	return sortedKeys(pred[name])
}

// Dependencies returns the file-level edges implied by inheritance between
// classes of different files, sorted by source then target.
func (gr *Graph) Dependencies() []Dependency {
	type key struct{ src, tgt string }
	classes := make(map[key][]string)
	for _, e := range gr.edges {
		d, _ := gr.Class(e.Derived)
		b, _ := gr.Class(e.Base)
		if d == nil || b == nil || b.External() || d.File == b.File {
			continue
		}
		k := key{d.File, b.File}
		if !contains(classes[k], e.Derived) {
			classes[k] = append(classes[k], e.Derived)
		}
	}

	var deps []Dependency
	for k, names := range classes {
		deps = append(deps, Dependency{Source: k.src, Target: k.tgt, Classes: names})
	}
	sort.Slice(deps, func(i, j int) bool {
		if deps[i].Source != deps[j].Source {
			return deps[i].Source < deps[j].Source
		}
		return deps[i].Target < deps[j].Target
	})
	return deps
}

// Rank applies PageRank over the file dependencies. A file that many others
// derive from ranks high. Every file in files gets a rank; ranks sum to 1.
func Rank(files []string, deps []Dependency) map[string]float64 {
	if len(files) == 0 {
		return nil
	}

	nodes := make(map[string]struct{}, len(files))
	for _, f := range files {
		nodes[f] = struct{}{}
	}

	if len(deps) == 0 {
		uniform := 1.0 / float64(len(nodes))
		ranks := make(map[string]float64, len(nodes))
		for f := range nodes {
			ranks[f] = uniform
		}
		return ranks
	}

	// Each derived class is one edge, so a file with many subclasses of
	// another passes more of its rank along.
	outEdges := make(map[string][]string)
	outDegree := make(map[string]int)
	for _, d := range deps {
		for range d.Classes {
			outEdges[d.Source] = append(outEdges[d.Source], d.Target)
			outDegree[d.Source]++
		}
	}

	return pageRank(nodes, outEdges, outDegree, 0.85, 100, 1e-6)
}

func pageRank(
	nodes map[string]struct{},
	outEdges map[string][]string,
	outDegree map[string]int,
	alpha float64,
	maxIter int,
	tol float64,
) map[string]float64 {
	n := len(nodes)
	rank := make(map[string]float64, n)
	initial := 1.0 / float64(n)
	for node := range nodes {
		rank[node] = initial
	}

	teleport := (1.0 - alpha) / float64(n)

	for iter := 0; iter < maxIter; iter++ {
		newRank := make(map[string]float64, n)

		// Dangling node contribution (nodes with no outgoing edges)
		var danglingSum float64
		for node := range nodes {
			if outDegree[node] == 0 {
				danglingSum += rank[node]
			}
		}
		danglingContrib := alpha * danglingSum / float64(n)

		for node := range nodes {
			newRank[node] = teleport + danglingContrib
		}

		for src, targets := range outEdges {
			deg := float64(outDegree[src])
			contrib := alpha * rank[src] / deg
			for _, tgt := range targets {
				newRank[tgt] += contrib
			}
		}

		var diff float64
		for node := range nodes {
			diff += math.Abs(newRank[node] - rank[node])
		}

		rank = newRank

		if diff < tol {
			break
		}
	}

	return rank
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
