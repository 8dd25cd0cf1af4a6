package model

// Overload is one distinct signature within an overload set. Every declaration
// sharing the signature is kept, in source order.
type Overload struct {
	Signature string
	Decls     []*FunctionDecl
}

// Doc concatenates the docs of all declarations in source order.
func (o *Overload) Doc() []DocComment {
	var out []DocComment
	for _, d := range o.Decls {
		out = append(out, d.Doc...)
	}
	return out
}

// Primary returns the first declaration of the overload.
func (o *Overload) Primary() *FunctionDecl {
	return o.Decls[0]
}

// ReturnTypes lists the distinct return types seen across declarations.
func (o *Overload) ReturnTypes() []string {
	var out []string
	seen := make(map[string]bool)
	for _, d := range o.Decls {
		if !seen[d.ReturnType] {
			seen[d.ReturnType] = true
			out = append(out, d.ReturnType)
		}
	}
	return out
}

// OverloadSet groups the functions sharing a scope and a name.
type OverloadSet struct {
	Scope     Scope
	Name      string
	Overloads []*Overload
}

func (s *OverloadSet) QualifiedName() string {
	return s.Scope.Qualify(s.Name)
}

// Overload returns the overload with the given signature, or nil.
func (s *OverloadSet) Overload(sig string) *Overload {
	for _, o := range s.Overloads {
		if o.Signature == sig {
			return o
		}
	}
	return nil
}

// Signatures returns the signatures in first-seen order.
func (s *OverloadSet) Signatures() []string {
	sigs := make([]string, len(s.Overloads))
	for i, o := range s.Overloads {
		sigs[i] = o.Signature
	}
	return sigs
}

// DocGroup is a named collection of declarations bracketed by @{ / @}.
type DocGroup struct {
	Name    string
	Title   string
	Pos     Pos
	Members []Decl
}

// Add appends d unless a declaration with the same key is already listed.
func (g *DocGroup) Add(d Decl) bool {
	if g.Contains(d.Key()) {
		return false
	}
	g.Members = append(g.Members, d)
	return true
}

// Contains reports whether a member with key is listed.
func (g *DocGroup) Contains(key string) bool {
	for _, m := range g.Members {
		if m.Key() == key {
			return true
		}
	}
	return false
}

// MemberNames returns the qualified names of the members in order.
func (g *DocGroup) MemberNames() []string {
	names := make([]string, len(g.Members))
	for i, m := range g.Members {
		names[i] = m.QualifiedName()
	}
	return names
}

// SymbolTable is the documentation model of one header file.
type SymbolTable struct {
	File string

	// Decls holds every declaration in preorder, source order.
	Decls      []Decl
	Namespaces []*NamespaceDecl
	Classes    []*ClassDecl
	Enums      []*EnumDecl
	Macros     []*MacroDecl
	Variables  []*VariableDecl
	Functions  []*OverloadSet
	Groups     []*DocGroup

	byQName map[string][]Decl
	byName  map[string][]Decl
	sets    map[string]*OverloadSet
	groups  map[string]*DocGroup
}

// Reindex rebuilds the lookup indexes from the exported slices.
func (t *SymbolTable) Reindex() {
	t.byQName = make(map[string][]Decl, len(t.Decls))
	t.byName = make(map[string][]Decl, len(t.Decls))
	for _, d := range t.Decls {
		t.byQName[d.QualifiedName()] = append(t.byQName[d.QualifiedName()], d)
		t.byName[d.Ident()] = append(t.byName[d.Ident()], d)
	}
	t.sets = make(map[string]*OverloadSet, len(t.Functions))
	for _, s := range t.Functions {
		t.sets[s.QualifiedName()] = s
	}
	t.groups = make(map[string]*DocGroup, len(t.Groups))
	for _, g := range t.Groups {
		t.groups[g.Name] = g
	}
}

// Lookup returns every declaration whose qualified name equals qualified.
func (t *SymbolTable) Lookup(qualified string) []Decl {
	return t.byQName[qualified]
}

// ByName returns every declaration with the bare name, across all scopes.
func (t *SymbolTable) ByName(name string) []Decl {
	return t.byName[name]
}

// Class returns the class named name directly inside scope, or nil.
func (t *SymbolTable) Class(scope Scope, name string) *ClassDecl {
	for _, d := range t.byQName[scope.Qualify(name)] {
		if c, ok := d.(*ClassDecl); ok {
			return c
		}
	}
	return nil
}

// Enum returns the enum named name directly inside scope, or nil.
func (t *SymbolTable) Enum(scope Scope, name string) *EnumDecl {
	for _, d := range t.byQName[scope.Qualify(name)] {
		if e, ok := d.(*EnumDecl); ok {
			return e
		}
	}
	return nil
}

// Overloads returns the overload set for name inside scope, or nil.
func (t *SymbolTable) Overloads(scope Scope, name string) *OverloadSet {
	return t.sets[scope.Qualify(name)]
}

// Macro returns the macro with name, or nil.
func (t *SymbolTable) Macro(name string) *MacroDecl {
	for _, m := range t.Macros {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Group returns the doc group with name, or nil.
func (t *SymbolTable) Group(name string) *DocGroup {
	return t.groups[name]
}
