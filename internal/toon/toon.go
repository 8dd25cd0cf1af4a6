// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/headerdoc/internal/coverage"
	"github.com/phobologic/headerdoc/internal/lookup"
	"github.com/phobologic/headerdoc/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a Report into TOON format.
func Encode(rep *model.Report) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("repo: %s", encodeValue(rep.Name)))

	var fileRows [][]any
	for i := range rep.Files {
		f := &rep.Files[i]
		status := "ok"
		if f.Table == nil {
			status = "error"
		}
		fileRows = append(fileRows, []any{f.Path, fmt.Sprintf("%.4f", f.Rank), status})
	}
	parts = append(parts, formatTabular("files", []string{"path", "rank", "status"}, fileRows))

	var symbolRows, overloadRows, groupRows, annotationRows [][]any
	for i := range rep.Files {
		f := &rep.Files[i]
		if f.Table == nil {
			continue
		}
		symbolRows = append(symbolRows, symbols(f.Path, f.Table)...)
		for _, s := range f.Table.Functions {
			if len(s.Overloads) < 2 {
				continue
			}
			overloadRows = append(overloadRows, []any{
				f.Path,
				s.QualifiedName(),
				len(s.Overloads),
				strings.Join(s.Signatures(), " | "),
			})
		}
		for _, g := range f.Table.Groups {
			groupRows = append(groupRows, []any{f.Path, g.Name, g.Title, strings.Join(g.MemberNames(), " ")})
		}
		for _, c := range f.Table.Classes {
			if len(c.Annotations) > 0 {
				annotationRows = append(annotationRows, []any{c.QualifiedName(), strings.Join(c.Annotations, " ")})
			}
		}
	}
	parts = append(parts, formatTabular("symbols", []string{"file", "name", "kind", "line", "signature", "doc"}, symbolRows))
	parts = append(parts, formatTabular("overloads", []string{"file", "name", "count", "signatures"}, overloadRows))
	if len(groupRows) > 0 {
		parts = append(parts, formatTabular("groups", []string{"file", "name", "title", "members"}, groupRows))
	}
	if len(annotationRows) > 0 {
		parts = append(parts, formatTabular("annotations", []string{"class", "macros"}, annotationRows))
	}

	var inheritRows [][]any
	for i := range rep.Inherits {
		e := &rep.Inherits[i]
		inheritRows = append(inheritRows, []any{e.Derived, e.Base, string(e.Access), e.Virtual})
	}
	parts = append(parts, formatTabular("inherits", []string{"derived", "base", "access", "virtual"}, inheritRows))

	if len(rep.Dependencies) > 0 {
		var depRows [][]any
		for i := range rep.Dependencies {
			d := &rep.Dependencies[i]
			depRows = append(depRows, []any{d.Source, d.Target, strings.Join(d.Classes, " ")})
		}
		parts = append(parts, formatTabular("dependencies", []string{"source", "target", "classes"}, depRows))
	}

	if diags := rep.AllDiagnostics(); len(diags) > 0 {
		var diagRows [][]any
		for _, d := range diags {
			diagRows = append(diagRows, []any{
				d.File,
				d.Line,
				d.Col,
				string(d.Severity),
				d.Code,
				d.Message,
			})
		}
		parts = append(parts, formatTabular("diagnostics", []string{"file", "line", "col", "severity", "code", "message"}, diagRows))
	}

	return strings.Join(parts, "\n")
}

// EncodeCoverage renders per-file documentation coverage followed by the
// undocumented declarations.
func EncodeCoverage(cov []coverage.FileCoverage) string {
	total := coverage.Summary(cov)
	parts := []string{
		fmt.Sprintf("documented: %d", total.Documented),
		fmt.Sprintf("total: %d", total.Total),
		fmt.Sprintf("ratio: %.4f", total.Ratio()),
	}

	var fileRows, missingRows [][]any
	for _, c := range cov {
		fileRows = append(fileRows, []any{
			c.Path,
			c.Documented,
			c.Total,
			fmt.Sprintf("%.4f", c.Ratio()),
		})
		for _, name := range c.Undocumented {
			missingRows = append(missingRows, []any{c.Path, name})
		}
	}
	parts = append(parts, formatTabular("coverage", []string{"file", "documented", "total", "ratio"}, fileRows))
	parts = append(parts, formatTabular("undocumented", []string{"file", "symbol"}, missingRows))
	return strings.Join(parts, "\n")
}

// Hierarchy supplies the direct bases and derived classes of a class.
type Hierarchy interface {
	Bases(class string) []string
	Derived(class string) []string
}

// EncodeEntries renders lookup results. Class matches list their direct
// bases and derived classes from h, which may be nil.
func EncodeEntries(entries []lookup.Entry, h Hierarchy) string {
	var rows [][]any
	for i := range entries {
		e := &entries[i]
		var docs []model.DocComment
		var bases, derived []string
		if e.Decl != nil {
			docs = e.Decl.Docs()
			if c, ok := e.Decl.(*model.ClassDecl); ok && h != nil {
				bases = h.Bases(c.QualifiedName())
				derived = h.Derived(c.QualifiedName())
			}
		}
		rows = append(rows, []any{
			e.Name + e.Arglist,
			e.Kind,
			e.File,
			e.Pos().Line,
			strings.Join(bases, " "),
			strings.Join(derived, " "),
			summary(docs),
		})
	}
	return formatTabular("matches", []string{"name", "kind", "file", "line", "bases", "derived", "doc"}, rows)
}

// symbols lists the declarations of t in source order. Each overload is one
// row, placed at its first declaration.
func symbols(path string, t *model.SymbolTable) [][]any {
	primaries := make(map[*model.FunctionDecl]*model.Overload)
	for _, s := range t.Functions {
		for _, o := range s.Overloads {
			primaries[o.Primary()] = o
		}
	}

	var rows [][]any
	for _, d := range t.Decls {
		var sig string
		docs := d.Docs()
		switch d := d.(type) {
		case *model.FunctionDecl:
			o, ok := primaries[d]
			if !ok {
				continue
			}
			sig = o.Signature
			if d.ReturnType != "" {
				sig = d.ReturnType + " " + sig
			}
			docs = o.Doc()
		case *model.ClassDecl:
			sig = d.ClassKind
			if d.Template != "" {
				sig = d.Template + " " + sig
			}
		case *model.EnumDecl:
			sig = "enum"
			if d.Scoped {
				sig = "enum class"
			}
			if d.Underlying != "" {
				sig += " : " + d.Underlying
			}
		case *model.VariableDecl:
			sig = d.Type
		case *model.MacroDecl:
			sig = d.Display()
		}
		rows = append(rows, []any{
			path,
			d.QualifiedName(),
			string(d.Kind()),
			d.Position().Line,
			sig,
			summary(docs),
		})
	}
	return rows
}

// summary is the first line of the documentation.
func summary(docs []model.DocComment) string {
	text := model.DocText(docs)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

func formatTabular(name string, columns []string, rows [][]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeCell(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

// encodeCell writes typed values as-is; only strings go through quoting.
func encodeCell(cell any) string {
	switch v := cell.(type) {
	case string:
		return encodeValue(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	default:
		return encodeValue(fmt.Sprint(v))
	}
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
