// Package export renders a Report as JSON or YAML.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/headerdoc/internal/model"
)

// Format names an output encoding.
type Format string

const (
	FormatTOON Format = "toon"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned by Write for formats it does not encode.
var ErrUnknownFormat = errors.New("unknown output format")

// Document is the serialisable view of a Report.
type Document struct {
	Repo         string       `json:"repo" yaml:"repo"`
	Files        []File       `json:"files" yaml:"files"`
	Inherits     []Inherit    `json:"inherits" yaml:"inherits"`
	Dependencies []Dependency `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Diagnostics  []Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

type File struct {
	Path        string        `json:"path" yaml:"path"`
	Rank        float64       `json:"rank" yaml:"rank"`
	Status      string        `json:"status" yaml:"status"`
	Namespaces  []Symbol      `json:"namespaces,omitempty" yaml:"namespaces,omitempty"`
	Classes     []Class       `json:"classes,omitempty" yaml:"classes,omitempty"`
	Enums       []Enum        `json:"enums,omitempty" yaml:"enums,omitempty"`
	Functions   []OverloadSet `json:"functions,omitempty" yaml:"functions,omitempty"`
	Variables   []Variable    `json:"variables,omitempty" yaml:"variables,omitempty"`
	Macros      []Macro       `json:"macros,omitempty" yaml:"macros,omitempty"`
	Groups      []Group       `json:"groups,omitempty" yaml:"groups,omitempty"`
	Diagnostics []Diagnostic  `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Symbol holds the fields every declaration carries.
type Symbol struct {
	Name   string `json:"name" yaml:"name"`
	Line   int    `json:"line" yaml:"line"`
	Access string `json:"access,omitempty" yaml:"access,omitempty"`
	Doc    string `json:"doc,omitempty" yaml:"doc,omitempty"`
}

type Base struct {
	Name    string `json:"name" yaml:"name"`
	Access  string `json:"access,omitempty" yaml:"access,omitempty"`
	Virtual bool   `json:"virtual,omitempty" yaml:"virtual,omitempty"`
}

type Class struct {
	Symbol      `yaml:",inline"`
	Kind        string   `json:"kind" yaml:"kind"`
	Template    string   `json:"template,omitempty" yaml:"template,omitempty"`
	Final       bool     `json:"final,omitempty" yaml:"final,omitempty"`
	Bases       []Base   `json:"bases,omitempty" yaml:"bases,omitempty"`
	Annotations []string `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	Members     []string `json:"members,omitempty" yaml:"members,omitempty"`
}

type Enumerator struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
	Doc   string `json:"doc,omitempty" yaml:"doc,omitempty"`
}

type Enum struct {
	Symbol      `yaml:",inline"`
	Scoped      bool         `json:"scoped,omitempty" yaml:"scoped,omitempty"`
	Underlying  string       `json:"underlying,omitempty" yaml:"underlying,omitempty"`
	Enumerators []Enumerator `json:"enumerators" yaml:"enumerators"`
}

// Overload is one signature of an overload set. Line is the first
// declaration; Declarations counts every redeclaration merged into it.
type Overload struct {
	Signature    string   `json:"signature" yaml:"signature"`
	Display      string   `json:"display" yaml:"display"`
	Returns      []string `json:"returns,omitempty" yaml:"returns,omitempty"`
	Line         int      `json:"line" yaml:"line"`
	Declarations int      `json:"declarations" yaml:"declarations"`
	Doc          string   `json:"doc,omitempty" yaml:"doc,omitempty"`
}

type OverloadSet struct {
	Name      string     `json:"name" yaml:"name"`
	Overloads []Overload `json:"overloads" yaml:"overloads"`
}

type Variable struct {
	Symbol `yaml:",inline"`
	Type   string `json:"type" yaml:"type"`
}

type Macro struct {
	Symbol       `yaml:",inline"`
	Params       []string `json:"params,omitempty" yaml:"params,omitempty"`
	FunctionLike bool     `json:"function_like,omitempty" yaml:"function_like,omitempty"`
	Body         string   `json:"body,omitempty" yaml:"body,omitempty"`
}

type Group struct {
	Name    string   `json:"name" yaml:"name"`
	Title   string   `json:"title,omitempty" yaml:"title,omitempty"`
	Members []string `json:"members" yaml:"members"`
}

type Inherit struct {
	Derived string `json:"derived" yaml:"derived"`
	Base    string `json:"base" yaml:"base"`
	Access  string `json:"access,omitempty" yaml:"access,omitempty"`
	Virtual bool   `json:"virtual,omitempty" yaml:"virtual,omitempty"`
}

type Dependency struct {
	Source  string   `json:"source" yaml:"source"`
	Target  string   `json:"target" yaml:"target"`
	Classes []string `json:"classes" yaml:"classes"`
}

type Diagnostic struct {
	File     string `json:"file" yaml:"file"`
	Line     int    `json:"line" yaml:"line"`
	Col      int    `json:"col" yaml:"col"`
	Severity string `json:"severity" yaml:"severity"`
	Code     string `json:"code" yaml:"code"`
	Message  string `json:"message" yaml:"message"`
}

// New builds the document for rep.
func New(rep *model.Report) *Document {
	doc := &Document{
		Repo:     rep.Name,
		Files:    make([]File, 0, len(rep.Files)),
		Inherits: make([]Inherit, 0, len(rep.Inherits)),
	}
	for i := range rep.Files {
		doc.Files = append(doc.Files, file(&rep.Files[i]))
	}
	for _, e := range rep.Inherits {
		doc.Inherits = append(doc.Inherits, Inherit{
			Derived: e.Derived,
			Base:    e.Base,
			Access:  string(e.Access),
			Virtual: e.Virtual,
		})
	}
	for _, d := range rep.Dependencies {
		doc.Dependencies = append(doc.Dependencies, Dependency{Source: d.Source, Target: d.Target, Classes: d.Classes})
	}
	doc.Diagnostics = diagnostics(rep.Diagnostics)
	return doc
}

// Write encodes rep to w in the given format.
func Write(w io.Writer, rep *model.Report, format Format) error {
	doc := New(rep)
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func file(f *model.FileReport) File {
	out := File{Path: f.Path, Rank: f.Rank, Status: "ok", Diagnostics: diagnostics(f.Diagnostics)}
	t := f.Table
	if t == nil {
		out.Status = "error"
		return out
	}
	for _, n := range t.Namespaces {
		out.Namespaces = append(out.Namespaces, symbol(n))
	}
	for _, c := range t.Classes {
		cls := Class{
			Symbol:      symbol(c),
			Kind:        c.ClassKind,
			Template:    c.Template,
			Final:       c.Final,
			Annotations: c.Annotations,
		}
		for _, b := range c.Bases {
			cls.Bases = append(cls.Bases, Base{Name: b.Name, Access: string(b.Access), Virtual: b.Virtual})
		}
		for _, m := range c.Members {
			cls.Members = append(cls.Members, m.Ident())
		}
		out.Classes = append(out.Classes, cls)
	}
	for _, e := range t.Enums {
		enum := Enum{Symbol: symbol(e), Scoped: e.Scoped, Underlying: e.Underlying, Enumerators: []Enumerator{}}
		for _, en := range e.Enumerators {
			enum.Enumerators = append(enum.Enumerators, Enumerator{Name: en.Name, Value: en.Value, Doc: model.DocText(en.Doc)})
		}
		out.Enums = append(out.Enums, enum)
	}
	for _, s := range t.Functions {
		set := OverloadSet{Name: s.QualifiedName()}
		for _, o := range s.Overloads {
			p := o.Primary()
			set.Overloads = append(set.Overloads, Overload{
				Signature:    o.Signature,
				Display:      p.Display(),
				Returns:      o.ReturnTypes(),
				Line:         p.Pos.Line,
				Declarations: len(o.Decls),
				Doc:          model.DocText(o.Doc()),
			})
		}
		out.Functions = append(out.Functions, set)
	}
	for _, v := range t.Variables {
		out.Variables = append(out.Variables, Variable{Symbol: symbol(v), Type: v.Type})
	}
	for _, m := range t.Macros {
		out.Macros = append(out.Macros, Macro{Symbol: symbol(m), Params: m.Params, FunctionLike: m.FunctionLike, Body: m.Body})
	}
	for _, g := range t.Groups {
		out.Groups = append(out.Groups, Group{Name: g.Name, Title: g.Title, Members: g.MemberNames()})
	}
	return out
}

func symbol(d model.Decl) Symbol {
	return Symbol{
		Name:   d.QualifiedName(),
		Line:   d.Position().Line,
		Access: string(d.Visibility()),
		Doc:    model.DocText(d.Docs()),
	}
}

func diagnostics(diags []model.Diagnostic) []Diagnostic {
	var out []Diagnostic
	for _, d := range diags {
		out = append(out, Diagnostic{
			File:     d.File,
			Line:     d.Line,
			Col:      d.Col,
			Severity: string(d.Severity),
			Code:     d.Code,
			Message:  d.Message,
		})
	}
	return out
}
