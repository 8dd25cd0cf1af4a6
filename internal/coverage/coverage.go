// Package coverage measures how much of each header's public surface is
// documented.
package coverage

import (
	"sort"

	"github.com/phobologic/headerdoc/internal/model"
)

// FileCoverage is the documentation coverage of one header.
type FileCoverage struct {
	Path       string
	Documented int
	Total      int
	// Undocumented lists the qualified names of undocumented declarations;
	// functions carry their signature.
	Undocumented []string
}

// Ratio is Documented/Total, or 1 for a file with nothing to document.
func (c FileCoverage) Ratio() float64 {
	if c.Total == 0 {
		return 1
	}
	return float64(c.Documented) / float64(c.Total)
}

// Compute returns the coverage of every table, worst first. Private members,
// namespaces and anonymous enums are not counted. An overload counts as
// documented when any of its declarations is.
func Compute(tables []*model.SymbolTable) []FileCoverage {
	out := make([]FileCoverage, 0, len(tables))
	for _, t := range tables {
		out = append(out, file(t))
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Ratio(), out[j].Ratio()
		if ri != rj {
			return ri < rj
		}
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Path < out[j].Path
	})
	return out
}

func file(t *model.SymbolTable) FileCoverage {
	c := FileCoverage{Path: t.File}
	count := func(name string, documented bool) {
		c.Total++
		if documented {
			c.Documented++
		} else {
			c.Undocumented = append(c.Undocumented, name)
		}
	}

	hidden := privateScopes(t)
	for _, d := range t.Decls {
		if d.Kind() == model.KindFunction || d.Kind() == model.KindNamespace {
			continue
		}
		if e, ok := d.(*model.EnumDecl); ok && e.Name == "" {
			continue
		}
		if !visible(d, hidden) {
			continue
		}
		count(d.QualifiedName(), model.DocText(d.Docs()) != "")
	}
	for _, s := range t.Functions {
		for _, o := range s.Overloads {
			fn := o.Primary()
			if !visible(fn, hidden) {
				continue
			}
			count(s.QualifiedName()+o.Signature, model.DocText(o.Doc()) != "")
		}
	}
	return c
}

// privateScopes returns the qualified names of classes declared private,
// whose members are hidden as well.
func privateScopes(t *model.SymbolTable) map[string]bool {
	hidden := make(map[string]bool)
	for _, c := range t.Classes {
		if c.Access == model.AccessPrivate || hidden[c.Scope.String()] {
			hidden[c.QualifiedName()] = true
		}
	}
	return hidden
}

func visible(d model.Decl, hidden map[string]bool) bool {
	return d.Visibility() != model.AccessPrivate && !hidden[d.Enclosing().String()]
}

// Select keeps the first n entries, the worst covered after Compute.
// n <= 0 keeps everything.
func Select(cov []FileCoverage, n int) []FileCoverage {
	if n <= 0 || n >= len(cov) {
		return cov
	}
	return cov[:n]
}

// Summary totals the coverage of all files.
func Summary(cov []FileCoverage) FileCoverage {
	var s FileCoverage
	for _, c := range cov {
		s.Documented += c.Documented
		s.Total += c.Total
	}
	return s
}
