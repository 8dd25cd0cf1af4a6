package signature

import (
	"strings"

	"github.com/phobologic/headerdoc/internal/lex"
)

// Split separates a symbol such as "Volume::getVoxelAt(uint16_t x) const"
// into its name and normalised argument list. A symbol without parentheses
// is returned unchanged with an empty argument list.
func Split(symbol string) (name, args string, err error) {
	loc := strings.Index(symbol, "(")
	if strings.Contains(symbol, "operator()") {
		loc = strings.Index(symbol, "operator()(")
		if loc < 0 {
			return strings.TrimSpace(symbol), "", nil
		}
		loc += len("operator()")
	}
	if loc < 0 {
		return strings.TrimSpace(symbol), "", nil
	}
	name = strings.TrimSpace(symbol[:loc])
	args, err = Arglist(symbol[loc:])
	if err != nil {
		return "", "", err
	}
	return name, args, nil
}

// Arglist normalises a parenthesised parameter list with its trailing
// qualifiers, e.g. "( int a, float b = 1 ) const noexcept" -> "(int, float) const".
func Arglist(text string) (string, error) {
	toks, err := lex.Tokenize("", []byte(text))
	if err != nil {
		return "", invalidf("%s", err)
	}
	toks = toks[:len(toks)-1]
	if len(toks) == 0 || !toks[0].Is("(") {
		return "", invalidf("argument list must start with '('")
	}
	end := matching(toks, 0)
	if end < 0 {
		return "", invalidf("unterminated argument list")
	}
	params, err := Params(toks[1:end])
	if err != nil {
		return "", err
	}
	types := make([]string, len(params))
	for i, p := range params {
		types[i] = p.Type
	}
	q := Qualifiers(toks[end+1:])
	return "(" + strings.Join(types, ", ") + ")" + q.String(), nil
}

// FuncQualifiers are the trailing qualifiers of a function declarator that
// take part in overload identity.
type FuncQualifiers struct {
	Const    bool
	Volatile bool
	Ref      string
	// Consumed is the number of tokens that belong to the qualifier run,
	// including ignored ones such as noexcept(...) or override.
	Consumed int
}

func (q FuncQualifiers) String() string {
	var s string
	if q.Const {
		s += " const"
	}
	if q.Volatile {
		s += " volatile"
	}
	return s + q.Ref
}

// Qualifiers reads the tokens after a parameter list up to the first token
// that is not a qualifier. noexcept, throw, override, final and pure or
// defaulted markers are consumed but dropped.
func Qualifiers(toks []lex.Token) FuncQualifiers {
	var q FuncQualifiers
	i := 0
loop:
	for i < len(toks) {
		t := toks[i]
		switch {
		case t.Is("const"):
			q.Const = true
			i++
		case t.Is("volatile"):
			q.Volatile = true
			i++
		case t.Is("&"), t.Is("&&"):
			q.Ref = t.Text
			i++
		case t.Is("override"), t.Is("final"):
			i++
		case t.Is("noexcept"), t.Is("throw"):
			i++
			if i < len(toks) && toks[i].Is("(") {
				end := matching(toks, i)
				if end < 0 {
					break loop
				}
				i = end + 1
			}
		default:
			break loop
		}
	}
	q.Consumed = i
	return q
}
