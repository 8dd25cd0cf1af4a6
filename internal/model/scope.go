package model

import "strings"

// Anonymous is the scope element used for an unnamed namespace.
const Anonymous = "(anonymous)"

// Scope is a qualified scope, outermost name first. The empty scope is the
// global scope.
type Scope []string

func (s Scope) String() string {
	return strings.Join(s, "::")
}

// Qualify prefixes name with the scope path.
func (s Scope) Qualify(name string) string {
	if len(s) == 0 {
		return name
	}
	return s.String() + "::" + name
}

// Child returns a new scope with name appended; s is not modified.
func (s Scope) Child(name string) Scope {
	out := make(Scope, len(s), len(s)+1)
	copy(out, s)
	return append(out, name)
}

// IsGlobal reports whether s is the global scope.
func (s Scope) IsGlobal() bool {
	return len(s) == 0
}
