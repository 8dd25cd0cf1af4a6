package model

// Inheritance is a derived-to-base class relation.
type Inheritance struct {
	Derived string
	Base    string
	Access  Access
	Virtual bool
}

// Dependency is a file-level edge: Source has classes deriving from classes
// defined in Target.
type Dependency struct {
	Source  string
	Target  string
	Classes []string
}

// FileReport is the outcome for one header.
type FileReport struct {
	Path string
	Rank float64
	// Table is nil when the file failed to parse.
	Table       *SymbolTable
	Diagnostics []Diagnostic
}

// Report is the documentation model of a set of headers.
type Report struct {
	Name         string
	Files        []FileReport
	Inherits     []Inheritance
	Dependencies []Dependency
	// Diagnostics holds the findings that span files, such as inheritance
	// cycles.
	Diagnostics []Diagnostic
}

// Tables returns the tables of the files that parsed, in order.
func (r *Report) Tables() []*SymbolTable {
	var out []*SymbolTable
	for i := range r.Files {
		if r.Files[i].Table != nil {
			out = append(out, r.Files[i].Table)
		}
	}
	return out
}

// AllDiagnostics returns the per-file diagnostics followed by the report-wide
// ones.
func (r *Report) AllDiagnostics() []Diagnostic {
	var out []Diagnostic
	for i := range r.Files {
		out = append(out, r.Files[i].Diagnostics...)
	}
	return append(out, r.Diagnostics...)
}
