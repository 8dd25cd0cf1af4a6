// Package symtab assembles parsed declarations into a model.SymbolTable:
// overload sets, doc groups and lookup indexes.
package symtab

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/phobologic/headerdoc/internal/doc"
	"github.com/phobologic/headerdoc/internal/model"
	"github.com/phobologic/headerdoc/internal/parse"
)

// DuplicatePolicy says what happens when two declarations share a function
// signature.
type DuplicatePolicy string

const (
	// DuplicateMerge keeps every declaration in one overload.
	DuplicateMerge DuplicatePolicy = "merge"
	// DuplicateError rejects a second declaration or a second definition.
	// A declaration followed by its definition is always accepted.
	DuplicateError DuplicatePolicy = "error"
)

// Options configures Build.
type Options struct {
	DuplicateFunctions DuplicatePolicy
	Logger             *slog.Logger
}

// Build creates the symbol table for res. blocks are every comment block of
// the file, used for group commands. Warnings are returned alongside the
// table; a RedeclarationError aborts the build.
func Build(file string, res *parse.Result, blocks []doc.Block, opts Options) (*model.SymbolTable, []model.Diagnostic, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log = log.With("component", "symtab", "file", file)

	t := &model.SymbolTable{File: file, Decls: res.All}
	for _, d := range res.All {
		switch d := d.(type) {
		case *model.NamespaceDecl:
			t.Namespaces = append(t.Namespaces, d)
		case *model.ClassDecl:
			t.Classes = append(t.Classes, d)
		case *model.EnumDecl:
			t.Enums = append(t.Enums, d)
		case *model.MacroDecl:
			t.Macros = append(t.Macros, d)
		case *model.VariableDecl:
			t.Variables = append(t.Variables, d)
		}
	}

	sets, err := overloadSets(res.All, opts.DuplicateFunctions)
	if err != nil {
		return nil, nil, err
	}
	t.Functions = sets

	g := &grouper{groups: make(map[string]*model.DocGroup)}
	g.scan(res.Decls, blocks)
	g.explicit(res.All)
	t.Groups = g.order
	for _, grp := range t.Groups {
		log.Debug("group", "name", grp.Name, "members", len(grp.Members))
	}

	t.Reindex()
	return t, g.warnings, nil
}

func overloadSets(decls []model.Decl, policy DuplicatePolicy) ([]*model.OverloadSet, error) {
	var sets []*model.OverloadSet
	byName := make(map[string]*model.OverloadSet)
	for _, d := range decls {
		fn, ok := d.(*model.FunctionDecl)
		if !ok {
			continue
		}
		qname := fn.QualifiedName()
		set := byName[qname]
		if set == nil {
			set = &model.OverloadSet{Scope: fn.Scope, Name: fn.Name}
			byName[qname] = set
			sets = append(sets, set)
		}
		sig := fn.Signature()
		o := set.Overload(sig)
		if o == nil {
			set.Overloads = append(set.Overloads, &model.Overload{Signature: sig, Decls: []*model.FunctionDecl{fn}})
			continue
		}
		if policy == DuplicateError {
			if prev := conflicting(o, fn); prev != nil {
				return nil, &model.RedeclarationError{
					Key:  fn.Key(),
					What: "function " + qname + sig,
					Pos:  fn.Pos,
					Prev: prev.Pos,
				}
			}
		}
		o.Decls = append(o.Decls, fn)
	}
	return sets, nil
}

// conflicting returns the earlier declaration fn clashes with: a second
// plain declaration or a second definition.
func conflicting(o *model.Overload, fn *model.FunctionDecl) *model.FunctionDecl {
	for _, prev := range o.Decls {
		if prev.IsDefinition == fn.IsDefinition {
			return prev
		}
	}
	return nil
}

type event struct {
	pos   model.Pos
	block *doc.Block
	decl  model.Decl
}

type grouper struct {
	groups   map[string]*model.DocGroup
	order    []*model.DocGroup
	open     []*model.DocGroup
	pending  string
	warnings []model.Diagnostic
}

func (g *grouper) group(name, title string, pos model.Pos) *model.DocGroup {
	grp := g.groups[name]
	if grp == nil {
		grp = &model.DocGroup{Name: name, Pos: pos}
		g.groups[name] = grp
		g.order = append(g.order, grp)
	}
	if grp.Title == "" {
		grp.Title = title
	}
	return grp
}

func (g *grouper) warn(pos model.Pos, format string, args ...any) {
	g.warnings = append(g.warnings, model.Warning(model.CodeDanglingGroup, pos, format, args...))
}

// scan walks group blocks and namespace-level declarations in source order.
// Declarations join every group open at their position.
func (g *grouper) scan(decls []model.Decl, blocks []doc.Block) {
	var events []event
	for i := range blocks {
		b := &blocks[i]
		if b.IsDoc && len(b.Groups) > 0 {
			events = append(events, event{pos: b.Pos, block: b})
		}
	}
	for _, d := range decls {
		events = append(events, event{pos: d.Position(), decl: d})
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].pos.Before(events[j].pos)
	})

	for _, ev := range events {
		if ev.decl != nil {
			for _, grp := range g.open {
				grp.Add(ev.decl)
			}
			continue
		}
		g.apply(ev.block)
	}
	for _, grp := range g.open {
		g.warn(grp.Pos, "group %s is never closed", grp.Name)
	}
	g.open = nil
}

func (g *grouper) apply(b *doc.Block) {
	for _, c := range b.Groups {
		switch c.Op {
		case model.DefineGroup:
			g.group(c.Name, c.Title, b.Pos)
			g.pending = c.Name
		case model.OpenGroup:
			g.openGroup(b.Pos)
		case model.CloseGroup:
			g.closeGroup(b.Pos)
		}
	}
}

func (g *grouper) openGroup(pos model.Pos) {
	if g.pending == "" {
		g.warn(pos, "group opened without a preceding \\defgroup or \\addtogroup")
		return
	}
	g.open = append(g.open, g.groups[g.pending])
	g.pending = ""
}

func (g *grouper) closeGroup(pos model.Pos) {
	if len(g.open) == 0 {
		g.warn(pos, "group closed but no group is open")
		return
	}
	g.open = g.open[:len(g.open)-1]
}

// explicit adds declarations documented with \ingroup to the named groups.
func (g *grouper) explicit(decls []model.Decl) {
	for _, d := range decls {
		for _, dc := range d.Docs() {
			for _, name := range dc.InGroups {
				g.group(name, "", dc.Pos).Add(d)
			}
		}
	}
}

// Describe renders a one-line summary of the table, used in debug output.
func Describe(t *model.SymbolTable) string {
	return fmt.Sprintf("%s: %d declarations, %d classes, %d overload sets, %d groups",
		t.File, len(t.Decls), len(t.Classes), len(t.Functions), len(t.Groups))
}
