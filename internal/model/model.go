// Package model defines core data structures for headerdoc.
package model

import (
	"fmt"
	"strings"
)

// Pos is a 1-based source position.
type Pos struct {
	File string
	Line int
	Col  int
}

func (p Pos) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// Before reports whether p comes strictly before q in the same file.
func (p Pos) Before(q Pos) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Col < q.Col
}

// DeclKind indicates the syntactic kind of a declaration.
type DeclKind string

const (
	KindNamespace DeclKind = "namespace"
	KindClass     DeclKind = "class"
	KindEnum      DeclKind = "enum"
	KindFunction  DeclKind = "function"
	KindVariable  DeclKind = "variable"
	KindMacro     DeclKind = "macro"
)

// Access is a C++ member access level. Namespace-level declarations have AccessNone.
type Access string

const (
	AccessNone      Access = ""
	AccessPublic    Access = "public"
	AccessProtected Access = "protected"
	AccessPrivate   Access = "private"
)

// DocComment is one block of adjacent comments.
type DocComment struct {
	Raw     string // verbatim comment text, lines joined with "\n"
	Text    string // comment markers stripped
	Pos     Pos
	EndLine int

	IsDoc    bool
	Trailing bool

	// Groups lists the define, open and close commands in source order.
	Groups   []GroupCommand
	InGroups []string
	// GroupOnly is set when the block holds nothing but group commands.
	GroupOnly bool
}

// GroupOp is the kind of a group command.
type GroupOp int

const (
	DefineGroup GroupOp = iota // \defgroup, \addtogroup or \weakgroup
	OpenGroup                  // @{
	CloseGroup                 // @}
)

// GroupCommand is one group command of a doc block. Name and Title are set
// for DefineGroup only.
type GroupCommand struct {
	Op    GroupOp
	Name  string
	Title string
}

// DocText joins the stripped text of docs in order, skipping empty blocks.
func DocText(docs []DocComment) string {
	var parts []string
	for i := range docs {
		if t := strings.TrimSpace(docs[i].Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// Decl is implemented by every declaration entity.
type Decl interface {
	Kind() DeclKind
	Enclosing() Scope
	Ident() string
	QualifiedName() string
	// Key is the composite identity (kind, qualified scope, name, signature).
	Key() string
	Position() Pos
	Docs() []DocComment
	Visibility() Access
}

// DeclInfo holds the fields shared by all declarations.
type DeclInfo struct {
	Scope  Scope
	Name   string
	Access Access
	Doc    []DocComment
	Pos    Pos
}

func (d *DeclInfo) Enclosing() Scope      { return d.Scope }
func (d *DeclInfo) Ident() string         { return d.Name }
func (d *DeclInfo) QualifiedName() string { return d.Scope.Qualify(d.Name) }
func (d *DeclInfo) Position() Pos         { return d.Pos }
func (d *DeclInfo) Docs() []DocComment    { return d.Doc }
func (d *DeclInfo) Visibility() Access    { return d.Access }
func (d *DeclInfo) key(k DeclKind) string { return string(k) + "|" + d.QualifiedName() + "|" }
func (d *DeclInfo) Documented() bool      { return DocText(d.Doc) != "" }

// NamespaceDecl is one opening of a namespace block.
type NamespaceDecl struct {
	DeclInfo
	Inline bool
}

func (n *NamespaceDecl) Kind() DeclKind { return KindNamespace }
func (n *NamespaceDecl) Key() string    { return n.key(KindNamespace) }

// BaseSpec is one entry of a class base-clause.
type BaseSpec struct {
	Name    string
	Access  Access
	Virtual bool
}

// ClassDecl is a class, struct or union definition.
type ClassDecl struct {
	DeclInfo
	ClassKind   string // class, struct or union
	Bases       []BaseSpec
	Annotations []string
	Members     []Decl
	Template    string
	Final       bool
}

func (c *ClassDecl) Kind() DeclKind { return KindClass }
func (c *ClassDecl) Key() string    { return c.key(KindClass) }

// Path is the scope formed by the class itself, used by its members.
func (c *ClassDecl) Path() Scope { return c.Scope.Child(c.Name) }

// AddAnnotation records an annotation macro name once.
func (c *ClassDecl) AddAnnotation(name string) {
	for _, a := range c.Annotations {
		if a == name {
			return
		}
	}
	c.Annotations = append(c.Annotations, name)
}

// HasAnnotation reports whether name was recorded on the class.
func (c *ClassDecl) HasAnnotation(name string) bool {
	for _, a := range c.Annotations {
		if a == name {
			return true
		}
	}
	return false
}

// MemberKeys returns the keys of the class members in order.
func (c *ClassDecl) MemberKeys() []string {
	keys := make([]string, len(c.Members))
	for i, m := range c.Members {
		keys[i] = m.Key()
	}
	return keys
}

// Enumerator is one named constant of an enum.
type Enumerator struct {
	Name  string
	Value string
	Doc   []DocComment
	Pos   Pos
}

// EnumDecl is a plain or scoped enumeration.
type EnumDecl struct {
	DeclInfo
	Scoped      bool
	Underlying  string
	Enumerators []Enumerator
}

func (e *EnumDecl) Kind() DeclKind { return KindEnum }

func (e *EnumDecl) Key() string {
	if e.Name == "" {
		return fmt.Sprintf("%s|%s|@%d:%d", KindEnum, e.Scope.Qualify(""), e.Pos.Line, e.Pos.Col)
	}
	return e.key(KindEnum)
}

// EnumeratorNames returns the enumerator names in declaration order.
func (e *EnumDecl) EnumeratorNames() []string {
	names := make([]string, len(e.Enumerators))
	for i := range e.Enumerators {
		names[i] = e.Enumerators[i].Name
	}
	return names
}

// Param is one function parameter. Type is the normalised type descriptor used for
// overload identity; Name and Default are kept for display only.
type Param struct {
	Type    string
	Name    string
	Default string
}

// FunctionDecl is a function, method, constructor, destructor or operator.
type FunctionDecl struct {
	DeclInfo
	ReturnType   string
	Params       []Param
	Const        bool
	Volatile     bool
	RefQualifier string

	Virtual   bool
	Static    bool
	Inline    bool
	Explicit  bool
	Constexpr bool
	Pure      bool
	Defaulted bool
	Deleted   bool

	IsDefinition bool
	Constructor  bool
	Destructor   bool
	Operator     bool
	Template     string
}

func (f *FunctionDecl) Kind() DeclKind { return KindFunction }
func (f *FunctionDecl) Key() string    { return f.key(KindFunction) + f.Signature() }

// ParamTypes returns the parameter type descriptors in order.
func (f *FunctionDecl) ParamTypes() []string {
	types := make([]string, len(f.Params))
	for i := range f.Params {
		types[i] = f.Params[i].Type
	}
	return types
}

// Signature is the normalised argument list, e.g. "(const QString&, int) const".
// The return type is not part of it.
func (f *FunctionDecl) Signature() string {
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(strings.Join(f.ParamTypes(), ", "))
	b.WriteString(")")
	if f.Const {
		b.WriteString(" const")
	}
	if f.Volatile {
		b.WriteString(" volatile")
	}
	b.WriteString(f.RefQualifier)
	return b.String()
}

// Display renders the declaration with parameter names, for output.
func (f *FunctionDecl) Display() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		s := p.Type
		if p.Name != "" {
			s += " " + p.Name
		}
		if p.Default != "" {
			s += " = " + p.Default
		}
		params[i] = s
	}
	sig := f.Name + "(" + strings.Join(params, ", ") + ")"
	if f.Const {
		sig += " const"
	}
	if f.ReturnType != "" {
		sig = f.ReturnType + " " + sig
	}
	return sig
}

// VariableDecl is a field or namespace-scope variable.
type VariableDecl struct {
	DeclInfo
	Type      string
	Static    bool
	Constexpr bool
}

func (v *VariableDecl) Kind() DeclKind { return KindVariable }
func (v *VariableDecl) Key() string    { return v.key(KindVariable) }

// MacroDecl is a #define directive.
type MacroDecl struct {
	DeclInfo
	Params       []string
	FunctionLike bool
	Variadic     bool
	Body         string
}

func (m *MacroDecl) Kind() DeclKind { return KindMacro }
func (m *MacroDecl) Key() string    { return m.key(KindMacro) }

// Display renders the macro head, e.g. "MY_MACRO(x)".
func (m *MacroDecl) Display() string {
	if !m.FunctionLike {
		return m.Name
	}
	return m.Name + "(" + strings.Join(m.Params, ", ") + ")"
}
