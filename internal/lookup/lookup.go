// Package lookup resolves documentation references such as "MyClass",
// "ns::f(int) const" or "my_lib.h::MY_MACRO" against symbol tables.
package lookup

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/phobologic/headerdoc/internal/model"
	"github.com/phobologic/headerdoc/internal/signature"
)

// ErrNotFound is returned when no entry matches a query.
var ErrNotFound = errors.New("no documentation entry")

// Entry kinds that have no declaration behind them.
const (
	KindFile       = "file"
	KindGroup      = "group"
	KindEnumerator = "enumerator"
)

// Entry is one resolvable name.
type Entry struct {
	Name    string
	Kind    string
	File    string
	Arglist string // functions only
	// Template is set when the entry or one of its enclosing classes is a
	// class template.
	Template bool
	Decl     model.Decl      // nil for files and groups
	Group    *model.DocGroup // groups only

	reversed string
}

// Pos returns where the entry is declared, or the start of its file.
func (e *Entry) Pos() model.Pos {
	switch {
	case e.Decl != nil:
		return e.Decl.Position()
	case e.Group != nil:
		return e.Group.Pos
	}
	return model.Pos{File: e.File, Line: 1, Col: 1}
}

// Map holds the entries of a set of tables, sorted by reversed name so that
// every name ending in a given suffix forms one contiguous run.
type Map struct {
	entries []Entry
}

// New indexes the tables.
func New(tables ...*model.SymbolTable) *Map {
	m := &Map{}
	for _, t := range tables {
		m.addTable(t)
	}
	for i := range m.entries {
		m.entries[i].reversed = reverse(m.entries[i].Name)
	}
	sort.SliceStable(m.entries, func(i, j int) bool {
		return m.entries[i].reversed < m.entries[j].reversed
	})
	return m
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return len(m.entries)
}

func (m *Map) addTable(t *model.SymbolTable) {
	base := filepath.Base(t.File)
	m.entries = append(m.entries, Entry{Name: base, Kind: KindFile, File: t.File})

	templates := make(map[string]bool)
	for _, c := range t.Classes {
		if c.Template != "" {
			templates[c.QualifiedName()] = true
		}
	}
	inTemplate := func(d model.Decl) bool {
		scope := d.Enclosing()
		for i := 1; i <= len(scope); i++ {
			if templates[scope[:i].String()] {
				return true
			}
		}
		return false
	}

	add := func(e Entry, global bool) {
		m.entries = append(m.entries, e)
		if global {
			e.Name = base + "::" + e.Name
			m.entries = append(m.entries, e)
		}
	}

	seen := make(map[string]bool)
	for _, d := range t.Decls {
		if d.Kind() == model.KindFunction || seen[d.Key()] {
			continue
		}
		seen[d.Key()] = true
		e := Entry{Name: d.QualifiedName(), Kind: string(d.Kind()), File: t.File, Decl: d, Template: inTemplate(d)}
		switch d := d.(type) {
		case *model.ClassDecl:
			e.Template = e.Template || d.Template != ""
		case *model.EnumDecl:
			m.addEnumerators(t, d, e.Template)
			if d.Name == "" {
				continue
			}
		}
		add(e, d.Enclosing().IsGlobal())
	}

	for _, set := range t.Functions {
		for _, o := range set.Overloads {
			fn := o.Primary()
			add(Entry{
				Name:     set.QualifiedName(),
				Kind:     string(model.KindFunction),
				File:     t.File,
				Arglist:  o.Signature,
				Decl:     fn,
				Template: fn.Template != "" || inTemplate(fn),
			}, set.Scope.IsGlobal())
		}
	}

	for _, g := range t.Groups {
		m.entries = append(m.entries, Entry{Name: g.Name, Kind: KindGroup, File: t.File, Group: g})
	}
}

// addEnumerators adds the enumerators of e under the enum's name and, for
// unscoped enums, under the enclosing scope as well.
func (m *Map) addEnumerators(t *model.SymbolTable, e *model.EnumDecl, template bool) {
	for _, en := range e.Enumerators {
		var names []string
		if e.Name != "" {
			names = append(names, e.QualifiedName()+"::"+en.Name)
		}
		if !e.Scoped {
			names = append(names, e.Scope.Qualify(en.Name))
		}
		for _, name := range names {
			m.entries = append(m.entries, Entry{Name: name, Kind: KindEnumerator, File: t.File, Decl: e, Template: template})
		}
	}
}

// Find resolves query. A query with an argument list only matches
// functions with that normalised signature. When several entries match,
// an exact name wins, then a single class, then a single non-template
// entry, then the shortest non-template name.
func (m *Map) Find(query string) (*Entry, error) {
	name, args, err := signature.Split(query)
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", query, err)
	}
	kind := ""
	if args != "" {
		kind = string(model.KindFunction)
	}
	return disambiguate(name, m.candidates(name, kind, args))
}

// Candidates returns every entry the query could refer to, before
// disambiguation.
func (m *Map) Candidates(query string) ([]Entry, error) {
	name, args, err := signature.Split(query)
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", query, err)
	}
	kind := ""
	if args != "" {
		kind = string(model.KindFunction)
	}
	return m.candidates(name, kind, args), nil
}

func (m *Map) candidates(name, kind, args string) []Entry {
	rev := reverse(name)
	start := sort.Search(len(m.entries), func(i int) bool {
		return m.entries[i].reversed >= rev
	})
	var out []Entry
	for _, e := range m.entries[start:] {
		if !strings.HasPrefix(e.reversed, rev) {
			break
		}
		if e.matches(name, kind, args) {
			out = append(out, e)
		}
	}
	return out
}

func (e *Entry) matches(name, kind, args string) bool {
	if kind != "" && e.Kind != kind {
		return false
	}
	if !strings.HasSuffix(e.Name, name) {
		return false
	}
	// "do_foo" does not match "foo".
	prefix := e.Name[:len(e.Name)-len(name)]
	if prefix != "" {
		r := rune(prefix[len(prefix)-1])
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return args == "" || e.Arglist == args
}

func disambiguate(name string, candidates []Entry) (*Entry, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w matching %q", ErrNotFound, name)
	}
	if len(candidates) == 1 || candidates[0].Name == name {
		return &candidates[0], nil
	}

	var classes, plain []int
	for i := range candidates {
		if candidates[i].Kind == string(model.KindClass) {
			classes = append(classes, i)
		}
		if !candidates[i].Template {
			plain = append(plain, i)
		}
	}
	if len(classes) == 1 {
		return &candidates[classes[0]], nil
	}
	if len(plain) == 0 {
		return nil, fmt.Errorf("%w matching %q: only template candidates", ErrNotFound, name)
	}
	best := plain[0]
	for _, i := range plain[1:] {
		if len(candidates[i].Name) < len(candidates[best].Name) {
			best = i
		}
	}
	return &candidates[best], nil
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
