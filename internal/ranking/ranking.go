// Package ranking narrows a report to the headers and symbols a reader asked
// for.
package ranking

import (
	"sort"
	"strings"

	"github.com/phobologic/headerdoc/internal/model"
)

// SortByRank orders the files by rank descending, ties by path.
func SortByRank(rep *model.Report) {
	sort.SliceStable(rep.Files, func(i, j int) bool {
		if rep.Files[i].Rank != rep.Files[j].Rank {
			return rep.Files[i].Rank > rep.Files[j].Rank
		}
		return rep.Files[i].Path < rep.Files[j].Path
	})
}

// SelectFiles returns a new Report with only the first maxFiles files, which
// are the top-ranked ones after SortByRank. If maxFiles is <= 0 or >=
// len(files), rep is returned unchanged.
func SelectFiles(rep *model.Report, maxFiles int) *model.Report {
	if maxFiles <= 0 || maxFiles >= len(rep.Files) {
		return rep
	}

	selected := rep.Files[:maxFiles]
	paths := make(map[string]struct{}, maxFiles)
	for i := range selected {
		paths[selected[i].Path] = struct{}{}
	}

	out := narrowEdges(rep, selected, func(d *model.Dependency) bool {
		_, srcOK := paths[d.Source]
		_, tgtOK := paths[d.Target]
		return srcOK && tgtOK
	})
	classes := classNames(selected)
	out.Inherits = filterInherits(rep.Inherits, func(e *model.Inheritance) bool {
		return classes[e.Derived]
	})
	return out
}

// FilterByFile returns a new Report containing only files whose path
// contains substr (case-insensitive), with all dependency edges touching
// those files and the inheritance edges of their classes.
func FilterByFile(rep *model.Report, substr string) *model.Report {
	lower := strings.ToLower(substr)

	matched := make(map[string]struct{})
	var files []model.FileReport
	for i := range rep.Files {
		if strings.Contains(strings.ToLower(rep.Files[i].Path), lower) {
			matched[rep.Files[i].Path] = struct{}{}
			files = append(files, rep.Files[i])
		}
	}

	out := narrowEdges(rep, files, func(d *model.Dependency) bool {
		_, srcOK := matched[d.Source]
		_, tgtOK := matched[d.Target]
		return srcOK || tgtOK
	})
	classes := classNames(files)
	out.Inherits = filterInherits(rep.Inherits, func(e *model.Inheritance) bool {
		return classes[e.Derived] || classes[e.Base]
	})
	return out
}

// FilterBySymbol returns a new Report containing only the declarations whose
// qualified name contains substr (case-insensitive), the files that declare
// them, and the inheritance edges naming a matched class. Tables are copied;
// rep is not modified.
func FilterBySymbol(rep *model.Report, substr string) *model.Report {
	lower := strings.ToLower(substr)
	match := func(d model.Decl) bool {
		return strings.Contains(strings.ToLower(d.QualifiedName()), lower)
	}

	var files []model.FileReport
	for i := range rep.Files {
		f := rep.Files[i]
		if f.Table == nil {
			continue
		}
		t := Narrow(f.Table, match)
		if len(t.Decls) == 0 {
			continue
		}
		f.Table = t
		files = append(files, f)
	}

	paths := make(map[string]struct{}, len(files))
	for i := range files {
		paths[files[i].Path] = struct{}{}
	}
	out := narrowEdges(rep, files, func(d *model.Dependency) bool {
		_, srcOK := paths[d.Source]
		_, tgtOK := paths[d.Target]
		return srcOK && tgtOK
	})
	out.Inherits = filterInherits(rep.Inherits, func(e *model.Inheritance) bool {
		return strings.Contains(strings.ToLower(e.Derived), lower) ||
			strings.Contains(strings.ToLower(e.Base), lower)
	})
	return out
}

// Narrow returns a copy of t holding only the declarations keep accepts.
// Overload sets and groups are kept when any of their members is.
func Narrow(t *model.SymbolTable, keep func(model.Decl) bool) *model.SymbolTable {
	out := &model.SymbolTable{File: t.File}
	for _, d := range t.Decls {
		if !keep(d) {
			continue
		}
		out.Decls = append(out.Decls, d)
		switch d := d.(type) {
		case *model.NamespaceDecl:
			out.Namespaces = append(out.Namespaces, d)
		case *model.ClassDecl:
			out.Classes = append(out.Classes, d)
		case *model.EnumDecl:
			out.Enums = append(out.Enums, d)
		case *model.MacroDecl:
			out.Macros = append(out.Macros, d)
		case *model.VariableDecl:
			out.Variables = append(out.Variables, d)
		}
	}
	for _, s := range t.Functions {
		if keep(s.Overloads[0].Primary()) {
			out.Functions = append(out.Functions, s)
		}
	}
	for _, g := range t.Groups {
		ng := &model.DocGroup{Name: g.Name, Title: g.Title, Pos: g.Pos}
		for _, m := range g.Members {
			if keep(m) {
				ng.Add(m)
			}
		}
		if len(ng.Members) > 0 {
			out.Groups = append(out.Groups, ng)
		}
	}
	out.Reindex()
	return out
}

func narrowEdges(rep *model.Report, files []model.FileReport, keep func(*model.Dependency) bool) *model.Report {
	var deps []model.Dependency
	for i := range rep.Dependencies {
		if keep(&rep.Dependencies[i]) {
			deps = append(deps, rep.Dependencies[i])
		}
	}
	return &model.Report{
		Name:         rep.Name,
		Files:        files,
		Dependencies: deps,
		Diagnostics:  rep.Diagnostics,
	}
}

func filterInherits(edges []model.Inheritance, keep func(*model.Inheritance) bool) []model.Inheritance {
	var out []model.Inheritance
	for i := range edges {
		if keep(&edges[i]) {
			out = append(out, edges[i])
		}
	}
	return out
}

func classNames(files []model.FileReport) map[string]bool {
	names := make(map[string]bool)
	for i := range files {
		if files[i].Table == nil {
			continue
		}
		for _, c := range files[i].Table.Classes {
			names[c.QualifiedName()] = true
		}
	}
	return names
}
