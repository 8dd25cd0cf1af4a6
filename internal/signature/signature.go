// Package signature normalises C++ parameter lists into the canonical
// argument-list form used for overload identity and symbol lookup, e.g.
// "( const QString & s, int n = 0 ) const" becomes "(const QString&, int) const".
package signature

import (
	"errors"
	"fmt"
	"strings"

	"github.com/phobologic/headerdoc/internal/lex"
	"github.com/phobologic/headerdoc/internal/model"
)

// ErrInvalid is wrapped by every normalisation error.
var ErrInvalid = errors.New("invalid signature")

var qualifiers = map[string]bool{
	"const": true, "volatile": true, "typename": true,
	"struct": true, "enum": true, "class": true, "union": true,
}

var fundamentals = map[string]bool{
	"bool": true, "short": true, "int": true, "long": true, "signed": true,
	"unsigned": true, "char": true, "float": true, "double": true, "void": true,
	"wchar_t": true, "char8_t": true, "char16_t": true, "char32_t": true, "auto": true,
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Params normalises the tokens between the parentheses of a parameter list.
// "(void)" yields no parameters; a trailing "..." yields a "..." parameter.
func Params(toks []lex.Token) ([]model.Param, error) {
	groups := SplitTopLevel(toks)
	if len(groups) == 1 && len(groups[0]) == 0 {
		return nil, nil
	}
	if len(groups) == 1 && len(groups[0]) == 1 && groups[0][0].Is("void") {
		return nil, nil
	}
	params := make([]model.Param, 0, len(groups))
	for _, g := range groups {
		p, err := Param(g)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, nil
}

// SplitTopLevel splits toks at commas outside brackets and template
// argument lists. Angle brackets are ignored inside default values.
func SplitTopLevel(toks []lex.Token) [][]lex.Token {
	var out [][]lex.Token
	depth, angle := 0, 0
	inDefault := false
	start := 0
	for i, t := range toks {
		if t.Kind != lex.Punct {
			continue
		}
		switch t.Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		case "<":
			if !inDefault && depth == 0 {
				angle++
			}
		case ">":
			if !inDefault && depth == 0 && angle > 0 {
				angle--
			}
		case "=":
			if depth == 0 && angle == 0 {
				inDefault = true
			}
		case ",":
			if depth == 0 && angle == 0 {
				out = append(out, toks[start:i])
				start = i + 1
				inDefault = false
			}
		}
	}
	return append(out, toks[start:])
}

// Param normalises a single parameter declaration.
func Param(toks []lex.Token) (model.Param, error) {
	main, def := splitDefault(toks)
	if len(main) == 0 {
		if len(def) > 0 {
			return model.Param{}, invalidf("parameter has a default but no type")
		}
		return model.Param{}, invalidf("empty parameter")
	}
	switch first := main[0]; {
	case first.Is("*"), first.Is("&"), first.Is("&&"):
		return model.Param{}, invalidf("parameter starts with %s", first)
	case first.Kind == lex.Literal:
		return model.Param{}, invalidf("literal %s in parameter list", first.Text)
	}
	p := model.Param{Default: Join(def)}
	if len(main) == 1 && main[0].Is("...") {
		p.Type = "..."
		return p, nil
	}

	tp := &typeParser{toks: main}
	typ, ok := tp.parse()
	if !ok {
		// Unrecognised shapes such as macro-decorated types keep their
		// spelling so identity still works.
		p.Type = Join(main)
		return p, nil
	}
	p.Type = typ
	if !tp.paren {
		p.Type = adjust(typ, tp.dims)
	}
	p.Name = tp.name
	return p, nil
}

// adjust applies the parameter type adjustments that make two spellings
// declare the same function: an array decays to a pointer and top-level
// cv-qualifiers are dropped.
func adjust(typ string, dims []string) string {
	if len(dims) > 0 {
		if len(dims) == 1 {
			return typ + "*"
		}
		return typ + "(*)[" + strings.Join(dims[1:], "][") + "]"
	}
	if i := strings.LastIndexByte(typ, '*'); i >= 0 && onlyCV(typ[i+1:]) {
		return typ[:i+1]
	}
	if last := typ[len(typ)-1]; last != '>' && last != '_' && !isAlnum(last) {
		return typ
	}
	for {
		rest, ok := strings.CutPrefix(typ, "const ")
		if !ok {
			rest, ok = strings.CutPrefix(typ, "volatile ")
		}
		if !ok {
			return typ
		}
		typ = rest
	}
}

func onlyCV(s string) bool {
	for _, w := range strings.Fields(strings.ReplaceAll(s, "const", " const ")) {
		if w != "const" && w != "volatile" {
			return false
		}
	}
	return true
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// Type normalises a bare type, e.g. a return type. It never fails; unknown
// shapes are joined verbatim.
func Type(toks []lex.Token) string {
	if len(toks) == 0 {
		return ""
	}
	tp := &typeParser{toks: toks}
	if typ, ok := tp.parse(); ok && tp.name == "" {
		return typ
	}
	return Join(toks)
}

func splitDefault(toks []lex.Token) (main, def []lex.Token) {
	depth, angle := 0, 0
	for i, t := range toks {
		if t.Kind != lex.Punct {
			continue
		}
		switch t.Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		case "<":
			angle++
		case ">":
			angle--
		case "=":
			if depth == 0 && angle <= 0 {
				return toks[:i], toks[i+1:]
			}
		}
	}
	return toks, nil
}

type typeParser struct {
	toks []lex.Token
	i    int
	name string
	// dims holds the array bounds after a plain declarator name.
	dims []string
	// paren is set once a parenthesised declarator has been read.
	paren bool
}

func (tp *typeParser) peek() lex.Token {
	if tp.i < len(tp.toks) {
		return tp.toks[tp.i]
	}
	return lex.Token{Kind: lex.EOF}
}

func (tp *typeParser) done() bool { return tp.i >= len(tp.toks) }

func (tp *typeParser) quals() []string {
	var q []string
	for !tp.done() && tp.peek().Kind == lex.Ident && qualifiers[tp.peek().Text] {
		q = append(q, tp.peek().Text)
		tp.i++
	}
	return q
}

// ReadType parses a type with no declarator name from the start of toks and
// reports how many tokens it used.
func ReadType(toks []lex.Token) (string, int, bool) {
	tp := &typeParser{toks: toks}
	typ, ok := tp.typeOnly()
	if !ok {
		return "", 0, false
	}
	return typ, tp.i, true
}

// typeOnly reads qualifiers, the base type, more qualifiers, pointer and
// reference operators, and an optional pack expansion.
func (tp *typeParser) typeOnly() (string, bool) {
	q1 := tp.quals()
	base, ok := tp.base()
	if !ok {
		return "", false
	}
	q2 := tp.quals()
	ptrs := tp.ptrs()
	var b strings.Builder
	for _, q := range append(q1, q2...) {
		b.WriteString(q)
		b.WriteByte(' ')
	}
	b.WriteString(base)
	b.WriteString(ptrs)
	if tp.peek().Is("...") {
		b.WriteString("...")
		tp.i++
	}
	return b.String(), true
}

// parse reads a type followed by an optional declarator name.
func (tp *typeParser) parse() (string, bool) {
	typ, ok := tp.typeOnly()
	if !ok {
		return "", false
	}
	if tp.peek().Is("(") {
		return tp.declarator(typ)
	}
	if t := tp.peek(); t.Kind == lex.Ident && !lex.IsKeyword(t.Text) {
		tp.name = t.Text
		tp.i++
	}
	for tp.peek().Is("[") {
		end := matching(tp.toks, tp.i)
		if end < 0 {
			return "", false
		}
		tp.dims = append(tp.dims, Join(tp.toks[tp.i+1:end]))
		tp.i = end + 1
	}
	return typ, tp.done()
}

func (tp *typeParser) base() (string, bool) {
	t := tp.peek()
	switch {
	case t.Kind == lex.Ident && fundamentals[t.Text]:
		var words []string
		for !tp.done() && tp.peek().Kind == lex.Ident && fundamentals[tp.peek().Text] {
			words = append(words, tp.peek().Text)
			tp.i++
		}
		return fundamental(words), true
	case t.Is("decltype"):
		tp.i++
		if !tp.peek().Is("(") {
			return "", false
		}
		end := matching(tp.toks, tp.i)
		if end < 0 {
			return "", false
		}
		s := "decltype(" + Join(tp.toks[tp.i+1:end]) + ")"
		tp.i = end + 1
		return s, true
	case t.Is("::"), t.Kind == lex.Ident && !lex.IsKeyword(t.Text):
		return tp.qualifiedName()
	}
	return "", false
}

// fundamental spells a fundamental type canonically: "unsigned" is
// "unsigned int", "long int" is "long", "signed short" is "short". Plain,
// signed and unsigned char stay distinct.
func fundamental(words []string) string {
	var unsigned, signed, short, hasInt bool
	long := 0
	var rest []string
	for _, w := range words {
		switch w {
		case "unsigned":
			unsigned = true
		case "signed":
			signed = true
		case "short":
			short = true
		case "long":
			long++
		case "int":
			hasInt = true
		default:
			rest = append(rest, w)
		}
	}
	var out []string
	switch {
	case len(rest) == 1 && rest[0] == "char" && !short && long == 0 && !hasInt:
		if unsigned {
			out = append(out, "unsigned")
		} else if signed {
			out = append(out, "signed")
		}
		out = append(out, "char")
	case len(rest) == 1 && rest[0] == "double" && long == 1 && !short && !hasInt && !signed && !unsigned:
		out = append(out, "long", "double")
	case len(rest) > 0:
		return strings.Join(words, " ")
	default:
		if unsigned {
			out = append(out, "unsigned")
		}
		switch {
		case short:
			out = append(out, "short")
		case long > 0:
			for k := 0; k < long; k++ {
				out = append(out, "long")
			}
		default:
			out = append(out, "int")
		}
	}
	return strings.Join(out, " ")
}

// qualifiedName reads A::B<...>::C, rendering template arguments as "< A, B >".
func (tp *typeParser) qualifiedName() (string, bool) {
	var b strings.Builder
	if tp.peek().Is("::") {
		b.WriteString("::")
		tp.i++
	}
	for {
		t := tp.peek()
		if t.Kind != lex.Ident || lex.IsKeyword(t.Text) && t.Text != "template" {
			return "", false
		}
		if t.Text == "template" {
			tp.i++
			continue
		}
		b.WriteString(t.Text)
		tp.i++
		if tp.peek().Is("<") {
			args, next, ok := templateArgs(tp.toks, tp.i)
			if !ok {
				return "", false
			}
			b.WriteString(args)
			tp.i = next
		}
		if !tp.peek().Is("::") {
			return b.String(), true
		}
		b.WriteString("::")
		tp.i++
	}
}

func (tp *typeParser) ptrs() string {
	var b strings.Builder
	for !tp.done() {
		switch t := tp.peek(); {
		case t.Is("*"):
			b.WriteString("*")
			tp.i++
			for tp.peek().Is("const") || tp.peek().Is("volatile") {
				b.WriteString(tp.peek().Text)
				tp.i++
			}
		case t.Is("&"), t.Is("&&"):
			b.WriteString(t.Text)
			tp.i++
		default:
			return b.String()
		}
	}
	return b.String()
}

// declarator handles a parenthesised declarator after the type: function
// pointers render as "R(*)(Args)"; references to arrays drop the declarator.
func (tp *typeParser) declarator(typ string) (string, bool) {
	end := matching(tp.toks, tp.i)
	if end < 0 {
		return "", false
	}
	tp.paren = true
	inner := tp.toks[tp.i+1 : end]
	var op string
	for len(inner) > 0 && (inner[0].Is("*") || inner[0].Is("&") || inner[0].Is("&&")) {
		op += inner[0].Text
		inner = inner[1:]
	}
	if len(inner) > 0 && inner[len(inner)-1].Kind == lex.Ident {
		tp.name = inner[len(inner)-1].Text
	}
	tp.i = end + 1
	if tp.peek().Is("(") {
		pend := matching(tp.toks, tp.i)
		if pend < 0 {
			return "", false
		}
		params, err := Params(tp.toks[tp.i+1 : pend])
		if err != nil {
			return "", false
		}
		types := make([]string, len(params))
		for i, p := range params {
			types[i] = p.Type
		}
		tp.i = pend + 1
		for tp.peek().Is("const") || tp.peek().Is("noexcept") {
			tp.i++
		}
		return typ + "(" + op + ")(" + strings.Join(types, ", ") + ")", tp.done()
	}
	tp.skipArrays()
	return typ, tp.done()
}

func (tp *typeParser) skipArrays() {
	for tp.peek().Is("[") {
		end := matching(tp.toks, tp.i)
		if end < 0 {
			return
		}
		tp.i = end + 1
	}
}

// matching returns the index of the bracket closing toks[i], or -1.
func matching(toks []lex.Token, i int) int {
	open := toks[i].Text
	var close string
	switch open {
	case "(":
		close = ")"
	case "[":
		close = "]"
	case "{":
		close = "}"
	case "<":
		close = ">"
	default:
		return -1
	}
	depth := 0
	for k := i; k < len(toks); k++ {
		switch {
		case toks[k].Is(open):
			depth++
		case toks[k].Is(close):
			depth--
			if depth == 0 {
				return k
			}
		}
	}
	return -1
}

// Matching is the exported form of matching for other packages that walk
// bracketed token runs.
func Matching(toks []lex.Token, i int) int {
	return matching(toks, i)
}

// templateArgs renders the <...> group starting at toks[i].
func templateArgs(toks []lex.Token, i int) (string, int, bool) {
	var b strings.Builder
	b.WriteString("<")
	glue := false
	for k := i + 1; k < len(toks); k++ {
		t := toks[k]
		switch {
		case t.Is(">"):
			b.WriteString(" >")
			return b.String(), k + 1, true
		case t.Is("<"):
			nested, next, ok := templateArgs(toks, k)
			if !ok {
				return "", 0, false
			}
			if !glue {
				b.WriteByte(' ')
			}
			b.WriteString(nested)
			k = next - 1
			glue = false
			continue
		case t.Is("(") || t.Is("["):
			end := matching(toks, k)
			if end < 0 {
				return "", 0, false
			}
			b.WriteString(t.Text + Join(toks[k+1:end]) + toks[end].Text)
			k = end
			glue = false
			continue
		}
		if !glue && !gluesLeft(t) {
			b.WriteByte(' ')
		}
		b.WriteString(t.Text)
		glue = t.Is("::")
	}
	return "", 0, false
}

func gluesLeft(t lex.Token) bool {
	if t.Kind != lex.Punct {
		return false
	}
	switch t.Text {
	case ",", "::", "*", "&", "&&", "...", ")", "]":
		return true
	}
	return false
}

// Join renders tokens for display with conventional C++ spacing.
func Join(toks []lex.Token) string {
	var b strings.Builder
	for i, t := range toks {
		if i > 0 && spaceBetween(toks[i-1], t) {
			b.WriteByte(' ')
		}
		b.WriteString(t.Text)
	}
	return b.String()
}

func spaceBetween(prev, t lex.Token) bool {
	if prev.Kind == lex.Punct {
		switch prev.Text {
		case "::", "(", "[", "{", "<", "~", "!":
			return false
		}
	}
	if t.Kind == lex.Punct {
		switch t.Text {
		case ",", ";", ")", "]", "}", "::", ">", "<", "...":
			return false
		case "(", "[":
			return prev.Kind == lex.Punct && prev.Text != ")" && prev.Text != ">"
		case "*", "&", "&&":
			return prev.Kind != lex.Ident && prev.Kind != lex.Punct
		}
	}
	return true
}
