package parse

import (
	"regexp"
	"strings"

	"github.com/phobologic/headerdoc/internal/lex"
	"github.com/phobologic/headerdoc/internal/macro"
	"github.com/phobologic/headerdoc/internal/model"
	"github.com/phobologic/headerdoc/internal/signature"
)

// decorationPattern matches export and annotation macros written before a
// declaration, such as MYLIB_EXPORT or Q_INVOKABLE.
var decorationPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]+$`)

var accessKeywords = map[string]model.Access{
	"public":    model.AccessPublic,
	"protected": model.AccessProtected,
	"private":   model.AccessPrivate,
}

// signalWords open a Qt signal section, which is public.
var signalWords = map[string]bool{"signals": true, "Q_SIGNALS": true}

func (p *parser) declaration() {
	t := p.cur()
	switch {
	case t.Kind == lex.Preprocessor:
		p.directive()
	case t.Is(";"):
		p.next()
	case t.Is("namespace"), t.Is("inline") && p.peek(1).Is("namespace"):
		p.namespace()
	case t.Is("extern") && p.peek(1).Kind == lex.Literal && p.peek(2).Is("{"):
		p.linkage()
	case t.Is("using"), t.Is("typedef"), t.Is("static_assert"):
		p.skipDecl(true)
	case t.Is("friend"):
		p.skipDecl(false)
	case t.Is("template") && !p.peek(1).Is("<"), t.Is("extern") && p.peek(1).Is("template"):
		p.skipDecl(true)
	case p.classFrame() != nil && p.accessLabel():
	default:
		p.entity()
	}
}

func (p *parser) directive() {
	t := p.next()
	switch macro.Directive(t) {
	case "define":
		m, err := macro.ParseDefine(t)
		if err != nil {
			msg := err.Error()
			if me, ok := err.(*macro.Error); ok {
				msg = me.Msg
			}
			if !p.recover {
				p.fatalf(t.Pos, "%s", msg)
			}
			p.warn(model.CodeParse, t.Pos, "%s", msg)
			return
		}
		m.Doc = p.attach(p.i-1, p.i-1)
		p.res.All = append(p.res.All, m)
		p.res.Decls = append(p.res.Decls, m)
	case "pragma":
		if pragma := macro.Pragma(t); pragma != "once" {
			p.warn(model.CodeSkipped, t.Pos, "ignored #pragma %s", pragma)
		}
	}
}

func (p *parser) namespace() {
	start := p.i
	if p.classFrame() != nil {
		p.errorf(p.cur().Pos, "namespace definition inside a class")
	}
	inline := p.accept("inline")
	p.expect("namespace")
	p.skipAttributes()

	var names []string
	var inlines []bool
	for {
		in := p.at("inline") && p.peek(1).Kind == lex.Ident
		if in {
			p.next()
		}
		if p.cur().Kind != lex.Ident {
			break
		}
		names = append(names, p.next().Text)
		inlines = append(inlines, in)
		if !p.accept("::") {
			break
		}
	}
	if p.at("=") {
		p.skipDecl(true)
		return
	}
	if len(names) == 0 {
		names, inlines = []string{model.Anonymous}, []bool{false}
	}
	inlines[0] = inlines[0] || inline
	p.skipAttributes()
	if !p.at("{") {
		p.errorf(p.cur().Pos, "expected '{' after namespace name, got %s", p.cur())
	}
	open := p.i

	scope := p.scope()
	for k, name := range names {
		ns := &model.NamespaceDecl{
			DeclInfo: model.DeclInfo{Scope: scope, Name: name, Pos: p.toks[start].Pos},
			Inline:   inlines[k],
		}
		if k == len(names)-1 {
			ns.Doc = p.attach(start, open)
		}
		p.res.All = append(p.res.All, ns)
		p.res.Decls = append(p.res.Decls, ns)
		scope = scope.Child(name)
	}

	p.stack = append(p.stack, frame{kind: frameNamespace, names: names})
	p.body("namespace "+strings.Join(names, "::"), p.next())
	p.stack = p.stack[:len(p.stack)-1]
}

// linkage parses an extern "C" { ... } block. It contributes nothing to the
// scope path.
func (p *parser) linkage() {
	p.next()
	p.next()
	open := p.next()
	p.stack = append(p.stack, frame{kind: frameLinkage})
	p.body("linkage specification", open)
	p.stack = p.stack[:len(p.stack)-1]
}

// accessLabel parses "public:", "protected slots:", "signals:" and similar.
func (p *parser) accessLabel() bool {
	f := p.classFrame()
	first := p.cur()
	if first.Kind != lex.Ident {
		return false
	}
	n := 1
	access, isAccess := accessKeywords[first.Text]
	switch {
	case isAccess && p.peek(1).Kind == lex.Ident && p.peek(2).Is(":"):
		n = 2
	case isAccess && p.peek(1).Is(":"):
	case !isAccess && !lex.IsKeyword(first.Text) && p.peek(1).Is(":") && p.peek(2).Kind != lex.Literal:
		if signalWords[first.Text] {
			access, isAccess = model.AccessPublic, true
		}
	default:
		return false
	}
	for k := 0; k < n; k++ {
		if w := p.peek(k).Text; !lex.IsKeyword(w) {
			f.class.AddAnnotation(w)
		}
	}
	if isAccess {
		f.access = access
	}
	p.i += n + 1
	return true
}

// entity parses a class, enum, function or variable declaration, with any
// template header.
func (p *parser) entity() {
	start := p.i
	var headers []string
	for p.at("template") {
		headers = append(headers, p.templateHeader())
	}
	tmpl := strings.Join(headers, " ")
	if tmpl != "" && (p.at("using") || p.at("typedef")) {
		p.skipDecl(true)
		return
	}
	if tmpl != "" && p.at("friend") {
		p.skipDecl(false)
		return
	}
	for {
		if p.skipAttributes() {
			continue
		}
		if p.isDecoration(p.i) && isTagKeyword(p.peek(1)) && p.peek(1).Pos.Line == p.cur().Pos.Line {
			p.noteDecoration(p.next().Text)
			continue
		}
		break
	}
	switch {
	case p.at("class"), p.at("struct"), p.at("union"):
		if p.classDecl(start, tmpl) {
			return
		}
	case p.at("enum"):
		if p.enumDecl(start) {
			return
		}
	}
	p.generic(start, tmpl)
}

func isTagKeyword(t lex.Token) bool {
	return t.Is("class") || t.Is("struct") || t.Is("union") || t.Is("enum")
}

func (p *parser) isDecoration(i int) bool {
	t := p.toks[i]
	return t.Kind == lex.Ident && !lex.IsKeyword(t.Text) && decorationPattern.MatchString(t.Text)
}

// noteDecoration records an annotation macro found in a declaration head.
func (p *parser) noteDecoration(name string) {
	if f := p.classFrame(); f != nil {
		f.class.AddAnnotation(name)
		return
	}
	p.log.Debug("ignored decoration", "name", name)
}

// classDecl parses a class head and, for a definition, its body. It returns
// false when the keyword begins an elaborated type specifier, leaving the
// parser where it started.
func (p *parser) classDecl(start int, tmpl string) bool {
	back := p.i
	kwTok := p.next()
	kw := kwTok.Text
	p.skipAttributes()

	type word struct {
		text string
		tok  lex.Token
		args bool
	}
	var words []word
	for p.cur().Kind == lex.Ident && !lex.IsKeyword(p.cur().Text) || p.at("::") {
		s := p.i
		p.qualifiedID()
		w := word{text: signature.Type(p.toks[s:p.i]), tok: p.toks[s]}
		if p.at("(") {
			p.skipGroup()
			w.args = true
		}
		words = append(words, w)
		p.skipAttributes()
	}

	final := false
	if n := len(words); n > 1 && words[n-1].text == "final" {
		final = true
		words = words[:n-1]
	}

	switch {
	case p.at("{") && len(words) == 0:
		p.anonymousClass(start, kw)
		return true
	case p.at("{") || p.at(":"):
	case p.at(";") && len(words) > 0:
		for _, w := range words[:len(words)-1] {
			if !decorationPattern.MatchString(w.text) {
				p.i = back
				return false
			}
		}
		p.next()
		return true
	default:
		p.i = back
		return false
	}

	if len(words) == 0 {
		p.errorf(p.cur().Pos, "expected class name, got %s", p.cur())
	}
	nameWord := words[len(words)-1]
	if nameWord.args {
		p.errorf(nameWord.tok.Pos, "expected class name, got macro %s", nameWord.text)
	}
	quals, name := splitQualified(nameWord.text)

	var bases []model.BaseSpec
	defAccess := model.AccessPublic
	if kw == "class" {
		defAccess = model.AccessPrivate
	}
	if p.accept(":") {
		bases = p.baseClause(defAccess)
	}
	if !p.at("{") {
		p.errorf(p.cur().Pos, "expected '{' in definition of %s, got %s", name, p.cur())
	}
	open := p.next()

	scope := p.scope()
	for _, q := range quals {
		scope = scope.Child(q)
	}
	cls := &model.ClassDecl{
		DeclInfo: model.DeclInfo{
			Scope:  scope,
			Name:   name,
			Access: p.memberAccess(),
			Pos:    nameWord.tok.Pos,
		},
		ClassKind: kw,
		Bases:     bases,
		Template:  tmpl,
		Final:     final,
	}
	for _, w := range words[:len(words)-1] {
		cls.AddAnnotation(w.text)
	}

	idx := len(p.res.All)
	p.res.All = append(p.res.All, cls)
	p.stack = append(p.stack, frame{
		kind:   frameClass,
		names:  append(append([]string(nil), quals...), name),
		class:  cls,
		access: defAccess,
	})
	for !p.at("}") {
		if p.atEOF() {
			p.fatalf(open.Pos, "unterminated %s %s", kw, name)
		}
		p.member(cls)
	}
	p.next()
	p.stack = p.stack[:len(p.stack)-1]
	p.register(cls, idx)

	if !p.at(";") {
		p.declarators(nil, cls.QualifiedName(), specs{})
	}
	semi := p.i
	p.expect(";")
	cls.Doc = p.attach(start, semi)
	return true
}

// anonymousClass skips an unnamed class body and records its declarators as
// variables.
func (p *parser) anonymousClass(start int, kw string) {
	p.skipGroup()
	if p.at(";") {
		p.next()
		return
	}
	p.declarators(&varHead{docFirst: start}, kw+" {...}", specs{})
}

func (p *parser) baseClause(defAccess model.Access) []model.BaseSpec {
	var bases []model.BaseSpec
	for {
		b := model.BaseSpec{Access: defAccess}
	mods:
		for {
			switch t := p.cur(); {
			case t.Is("virtual"):
				b.Virtual = true
			case t.Kind == lex.Ident && accessKeywords[t.Text] != "":
				b.Access = accessKeywords[t.Text]
			default:
				break mods
			}
			p.next()
		}
		s := p.i
		p.qualifiedID()
		b.Name = signature.Type(p.toks[s:p.i])
		p.accept("...")
		bases = append(bases, b)
		if !p.accept(",") {
			return bases
		}
	}
}

// register records a class definition under its key. An identical
// redefinition is dropped with a warning; a different one is fatal.
func (p *parser) register(cls *model.ClassDecl, idx int) {
	key := cls.Key()
	if prev, ok := p.classes[key]; ok {
		if equalKeys(prev.MemberKeys(), cls.MemberKeys()) {
			p.warn(model.CodeRedeclaration, cls.Pos, "identical redefinition of %s %s ignored (previous definition at %s)",
				cls.ClassKind, cls.QualifiedName(), prev.Pos)
			p.res.All = p.res.All[:idx]
			return
		}
		panic(breakout{
			err: &model.RedeclarationError{
				Key:  key,
				What: cls.ClassKind + " " + cls.QualifiedName(),
				Pos:  cls.Pos,
				Prev: prev.Pos,
			},
			fatal: true,
		})
	}
	p.classes[key] = cls
	p.classLog = append(p.classLog, key)
	p.link(cls)
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (p *parser) enumDecl(start int) bool {
	back := p.i
	kwTok := p.next()
	scoped := p.accept("class") || p.accept("struct")
	p.skipAttributes()

	var quals []string
	var name string
	pos := kwTok.Pos
	if t := p.cur(); t.Kind == lex.Ident && !lex.IsKeyword(t.Text) {
		s := p.i
		p.qualifiedID()
		quals, name = splitQualified(signature.Type(p.toks[s:p.i]))
		pos = t.Pos
	}
	var underlying string
	if p.at(":") && p.peek(1).Kind != lex.Literal {
		p.next()
		typ, n, ok := signature.ReadType(p.toks[p.i:])
		if !ok {
			p.errorf(p.cur().Pos, "expected underlying type, got %s", p.cur())
		}
		p.i += n
		underlying = typ
	}
	switch {
	case p.at("{"):
	case p.at(";") && name != "":
		p.next()
		return true
	default:
		p.i = back
		return false
	}
	open := p.next()

	e := &model.EnumDecl{
		DeclInfo: model.DeclInfo{
			Scope:  p.scope(),
			Name:   name,
			Access: p.memberAccess(),
			Pos:    pos,
		},
		Scoped:     scoped,
		Underlying: underlying,
	}
	for _, q := range quals {
		e.Scope = e.Scope.Child(q)
	}
	for !p.at("}") {
		if p.atEOF() {
			p.fatalf(open.Pos, "unterminated enum %s", name)
		}
		if p.cur().Kind == lex.Preprocessor {
			p.next()
			continue
		}
		e.Enumerators = append(e.Enumerators, p.enumerator())
	}
	p.next()
	p.add(e)

	if !p.at(";") {
		typ := "enum {...}"
		if name != "" {
			typ = e.QualifiedName()
		}
		p.declarators(nil, typ, specs{})
	}
	semi := p.i
	p.expect(";")
	e.Doc = p.attach(start, semi)
	return true
}

func (p *parser) enumerator() model.Enumerator {
	first := p.i
	t := p.cur()
	if t.Kind != lex.Ident || lex.IsKeyword(t.Text) {
		p.errorf(t.Pos, "expected enumerator name, got %s", t)
	}
	p.next()
	p.skipAttributes()
	en := model.Enumerator{Name: t.Text, Pos: t.Pos}
	if p.accept("=") {
		s := p.i
		p.skipExpr()
		if s == p.i {
			p.errorf(p.cur().Pos, "expected value for enumerator %s", t.Text)
		}
		en.Value = signature.Join(p.toks[s:p.i])
	}
	last := p.i - 1
	switch {
	case p.at(","):
		last = p.i
	case !p.at("}"):
		p.errorf(p.cur().Pos, "expected ',' or '}' after enumerator %s, got %s", t.Text, p.cur())
	}
	en.Doc = p.attach(first, last)
	p.accept(",")
	return en
}

// widthKeywords may open a bit-field width expression.
var widthKeywords = map[string]bool{
	"sizeof": true, "alignof": true, "true": true, "false": true,
	"static_cast": true, "const_cast": true, "reinterpret_cast": true,
	"dynamic_cast": true, "noexcept": true, "this": true, "nullptr": true,
}

// bitfieldWidth skips the constant expression after the ':' of a bit-field.
// A width that opens with a type keyword or holds two adjacent names, as in
// "signals: void changed()", is a label followed by a declaration instead.
func (p *parser) bitfieldWidth() {
	start := p.i
	if t := p.cur(); t.Kind == lex.Ident && lex.IsKeyword(t.Text) && !widthKeywords[t.Text] {
		p.errorf(t.Pos, "invalid bit-field width starting with %s", t)
	}
	p.skipExpr()
	for j := start + 1; j < p.i; j++ {
		prev, t := p.toks[j-1], p.toks[j]
		if prev.Kind == lex.Ident && t.Kind == lex.Ident {
			p.errorf(t.Pos, "invalid bit-field width")
		}
	}
}

// skipExpr skips an initializer expression up to a ',' or ';' at depth zero,
// or an unmatched closing bracket.
func (p *parser) skipExpr() {
	for {
		t := p.cur()
		switch {
		case t.Kind == lex.EOF:
			p.errorf(t.Pos, "unexpected end of file in expression")
		case t.Is("(") || t.Is("[") || t.Is("{"):
			p.skipGroup()
			continue
		case t.Is(",") || t.Is(";") || t.Is(")") || t.Is("]") || t.Is("}"):
			return
		}
		p.next()
	}
}

type specs struct {
	static, inline, virtual, explicit, constexpr bool
}

func (s *specs) merge(o specs) {
	s.static = s.static || o.static
	s.inline = s.inline || o.inline
	s.virtual = s.virtual || o.virtual
	s.explicit = s.explicit || o.explicit
	s.constexpr = s.constexpr || o.constexpr
}

// stripSpecs removes leading declaration specifiers and attributes.
func stripSpecs(toks []lex.Token) ([]lex.Token, specs) {
	var s specs
	for len(toks) > 0 {
		t := toks[0]
		n := 1
		switch {
		case t.Is("static"):
			s.static = true
		case t.Is("inline"):
			s.inline = true
		case t.Is("virtual"):
			s.virtual = true
		case t.Is("constexpr"), t.Is("consteval"), t.Is("constinit"):
			s.constexpr = true
		case t.Is("explicit"):
			s.explicit = true
			if len(toks) > 1 && toks[1].Is("(") {
				n = signature.Matching(toks, 1) + 1
			}
		case t.Is("extern"):
			if len(toks) > 1 && toks[1].Kind == lex.Literal {
				n = 2
			}
		case t.Is("mutable"), t.Is("thread_local"), t.Is("register"), t.Is("export"):
		case t.Is("[") && len(toks) > 1 && toks[1].Is("["):
			n = signature.Matching(toks, 0) + 1
		case (t.Is("__attribute__") || t.Is("__declspec") || t.Is("alignas")) && len(toks) > 1 && toks[1].Is("("):
			n = signature.Matching(toks, 1) + 1
		default:
			return toks, s
		}
		if n <= 0 {
			return toks, s
		}
		toks = toks[n:]
	}
	return toks, s
}

// resolveType normalises the type part of a declaration. Leading
// decoration macros on the same line as the rest of the declaration are
// dropped when the type does not parse with them. With wantEmpty only
// specifiers and decorations may be present.
func (p *parser) resolveType(toks []lex.Token, follow lex.Token, wantEmpty bool) (string, specs, bool) {
	var sp specs
	var decos []string
	for {
		var s specs
		toks, s = stripSpecs(toks)
		sp.merge(s)
		if len(toks) == 0 {
			break
		}
		if !wantEmpty {
			if typ, n, ok := signature.ReadType(toks); ok && n == len(toks) {
				p.notes(decos)
				return typ, sp, true
			}
		}
		next := follow
		if len(toks) > 1 {
			next = toks[1]
		}
		t := toks[0]
		if t.Kind != lex.Ident || lex.IsKeyword(t.Text) || !decorationPattern.MatchString(t.Text) || next.Pos.Line != t.Pos.Line {
			return "", sp, false
		}
		decos = append(decos, t.Text)
		toks = toks[1:]
	}
	if !wantEmpty {
		return "", sp, false
	}
	p.notes(decos)
	return "", sp, true
}

func (p *parser) notes(decos []string) {
	for _, d := range decos {
		p.noteDecoration(d)
	}
}

// scanDeclarator finds the token that ends the declaration specifiers and
// declarator name: the operator keyword, the opening parenthesis of a
// parameter list or declarator, or the first token after a variable name.
func (p *parser) scanDeclarator() int {
	k := p.i
	for {
		t := p.toks[k]
		switch {
		case t.Kind == lex.EOF:
			p.errorf(t.Pos, "unexpected end of file in declaration")
		case t.Kind == lex.Preprocessor, t.Is("}"):
			p.errorf(t.Pos, "unexpected %s in declaration", t)
		case t.Is("operator"):
			return k
		case t.Is("[") && p.toks[k+1].Is("["):
			k = p.closing(k) + 1
			continue
		case t.Is("(") && k > 0 && isParenSpecifier(p.toks[k-1]):
			k = p.closing(k) + 1
			continue
		case t.Is("<") && k > p.i && p.toks[k-1].Kind == lex.Ident:
			k = p.closeAngle(k) + 1
			continue
		case t.Is("("), t.Is("="), t.Is(";"), t.Is(","), t.Is("["), t.Is(":"), t.Is("{"):
			return k
		}
		k++
	}
}

func isParenSpecifier(t lex.Token) bool {
	switch t.Text {
	case "__attribute__", "__declspec", "alignas", "decltype", "explicit", "noexcept", "alignof", "sizeof":
		return t.Kind == lex.Ident
	}
	return false
}

func (p *parser) closing(k int) int {
	end := signature.Matching(p.toks, k)
	if end < 0 {
		p.fatalf(p.toks[k].Pos, "unbalanced %q", p.toks[k].Text)
	}
	return end
}

// closeAngle returns the index of the '>' closing the template argument
// list opened at k.
func (p *parser) closeAngle(k int) int {
	depth := 0
	for ; ; k++ {
		t := p.toks[k]
		switch {
		case t.Kind == lex.EOF, t.Is(";"), t.Is("{"), t.Is("}"):
			p.errorf(t.Pos, "unterminated template argument list")
		case t.Is("(") || t.Is("["):
			k = p.closing(k)
		case t.Is("<"):
			depth++
		case t.Is(">"):
			depth--
			if depth == 0 {
				return k
			}
		}
	}
}

// openAngle returns the index of the '<' matching the '>' at k, not looking
// before lo.
func (p *parser) openAngle(k, lo int) int {
	depth := 0
	for ; k >= lo; k-- {
		switch {
		case p.toks[k].Is(">"):
			depth++
		case p.toks[k].Is("<"):
			depth--
			if depth == 0 {
				return k
			}
		}
	}
	return -1
}

// qualifiersBefore walks back from the declarator name at j over "X::"
// prefixes and returns the qualifiers and the index of the first one.
func (p *parser) qualifiersBefore(j, lo int) ([]string, int) {
	start := j
	var quals []string
	for start-2 >= lo && p.toks[start-1].Is("::") {
		k := start - 2
		if p.toks[k].Is(">") {
			k = p.openAngle(k, lo) - 1
			if k < lo {
				break
			}
		}
		t := p.toks[k]
		if t.Kind != lex.Ident || lex.IsKeyword(t.Text) {
			break
		}
		quals = append([]string{t.Text}, quals...)
		start = k
	}
	if start-1 >= lo && p.toks[start-1].Is("::") {
		start--
	}
	return quals, start
}

// generic parses function and variable declarations.
func (p *parser) generic(start int, tmpl string) {
	typeStart := p.i
	k := p.scanDeclarator()

	if p.toks[k].Is("operator") {
		quals, qs := p.qualifiersBefore(k, typeStart)
		name, next, conversion := p.operatorName(k)
		p.function(funcHead{
			start: start, tmpl: tmpl, typeToks: p.toks[typeStart:qs], quals: quals,
			name: name, nameTok: p.toks[k], params: next, operator: true, noType: conversion,
		})
		return
	}

	if p.toks[k].Is("(") && p.isDeclaratorParen(k, typeStart) {
		p.functionPointer(start, typeStart, k)
		return
	}

	nameIdx := k - 1
	if nameIdx < typeStart {
		p.errorf(p.toks[k].Pos, "expected declaration, got %s", p.toks[k])
	}
	nameTok := p.toks[nameIdx]
	name := nameTok.Text
	first := nameIdx
	if nameTok.Is(">") && p.toks[k].Is("(") {
		open := p.openAngle(nameIdx, typeStart)
		if open < typeStart+1 {
			p.errorf(nameTok.Pos, "expected declarator name, got %s", nameTok)
		}
		first = open - 1
		nameTok = p.toks[first]
		name = signature.Type(p.toks[first:k])
	}
	if nameTok.Kind != lex.Ident || lex.IsKeyword(nameTok.Text) {
		p.errorf(nameTok.Pos, "expected declarator name, got %s", nameTok)
	}
	destructor := first > typeStart && p.toks[first-1].Is("~")
	if destructor {
		first--
		name = "~" + name
	}
	quals, qs := p.qualifiersBefore(first, typeStart)

	if p.toks[k].Is("(") {
		p.function(funcHead{
			start: start, tmpl: tmpl, typeToks: p.toks[typeStart:qs], quals: quals,
			name: name, nameTok: p.toks[first], params: k,
			destructor: destructor, noType: destructor,
		})
		return
	}
	if destructor {
		p.errorf(nameTok.Pos, "expected '(' after %s", name)
	}

	typ, sp, ok := p.resolveType(p.toks[typeStart:qs], p.toks[qs], false)
	if !ok {
		p.errorf(p.toks[typeStart].Pos, "invalid type in declaration of %s", name)
	}
	p.i = k
	p.declarators(&varHead{
		typ:      typ,
		name:     name,
		nameTok:  nameTok,
		quals:    quals,
		docFirst: start,
	}, stripPointers(typ), sp)
}

// isDeclaratorParen reports whether the '(' at k starts a parenthesised
// declarator such as (*cb) or (Class::*pm) rather than a parameter list.
func (p *parser) isDeclaratorParen(k, typeStart int) bool {
	if k == typeStart {
		return false
	}
	for j := k + 1; ; j++ {
		t := p.toks[j]
		switch {
		case t.Is("*"), t.Is("&"), t.Is("&&"):
			return true
		case t.Kind == lex.Ident && p.toks[j+1].Is("::"):
			j++
		default:
			return false
		}
	}
}

// operatorName reads the name of an operator function starting at the
// operator keyword at k. It returns the index of the parameter list.
func (p *parser) operatorName(k int) (name string, params int, conversion bool) {
	j := k + 1
	t := p.toks[j]
	switch {
	case t.Is("(") && p.toks[j+1].Is(")"):
		return "operator()", j + 2, false
	case t.Is("[") && p.toks[j+1].Is("]"):
		return "operator[]", j + 2, false
	case t.Is("new"), t.Is("delete"):
		name = "operator " + t.Text
		j++
		if p.toks[j].Is("[") && p.toks[j+1].Is("]") {
			name += "[]"
			j += 2
		}
		return name, j, false
	case t.Is("co_await"):
		return "operator co_await", j + 1, false
	case t.Kind == lex.Literal && strings.HasPrefix(t.Text, `""`):
		name = "operator" + t.Text
		j++
		if t.Text == `""` && p.toks[j].Kind == lex.Ident {
			name += p.toks[j].Text
			j++
		}
		return name, j, false
	case t.Kind == lex.Punct && !t.Is("("):
		var b strings.Builder
		for p.toks[j].Kind == lex.Punct && !p.toks[j].Is("(") {
			b.WriteString(p.toks[j].Text)
			j++
		}
		return "operator" + b.String(), j, false
	}
	typ, n, ok := signature.ReadType(p.toks[j:])
	if !ok {
		p.errorf(t.Pos, "expected operator, got %s", t)
	}
	return "operator " + typ, j + n, true
}

type funcHead struct {
	start      int
	tmpl       string
	typeToks   []lex.Token
	quals      []string
	name       string
	nameTok    lex.Token
	params     int
	operator   bool
	destructor bool
	noType     bool
}

// className returns the bare name of the class a member declarator belongs
// to, used to recognise constructors.
func (p *parser) className(quals []string) string {
	if len(quals) > 0 {
		return quals[len(quals)-1]
	}
	if f := p.classFrame(); f != nil {
		return baseName(f.class.Name)
	}
	return ""
}

func (p *parser) function(h funcHead) {
	ctor := !h.operator && !h.destructor && h.name == p.className(h.quals)
	noType := h.noType || ctor

	follow := h.nameTok
	typ, sp, ok := p.resolveType(h.typeToks, follow, noType)
	switch {
	case !ok && noType:
		p.errorf(h.nameTok.Pos, "%s cannot have a return type", h.name)
	case !ok || !noType && typ == "":
		p.errorf(h.nameTok.Pos, "missing or invalid return type for %s", h.name)
	}

	if !p.toks[h.params].Is("(") {
		p.errorf(p.toks[h.params].Pos, "expected '(' after %s, got %s", h.name, p.toks[h.params])
	}
	end := p.closing(h.params)
	params, err := signature.Params(p.toks[h.params+1 : end])
	if err != nil {
		p.errorf(p.toks[h.params].Pos, "%v", err)
	}
	p.i = end + 1
	q := signature.Qualifiers(p.toks[p.i:])
	p.i += q.Consumed

	fn := &model.FunctionDecl{
		DeclInfo: model.DeclInfo{
			Scope:  p.scope(),
			Name:   h.name,
			Access: p.memberAccess(),
			Pos:    h.nameTok.Pos,
		},
		ReturnType:   typ,
		Params:       params,
		Const:        q.Const,
		Volatile:     q.Volatile,
		RefQualifier: q.Ref,
		Virtual:      sp.virtual,
		Static:       sp.static,
		Inline:       sp.inline,
		Explicit:     sp.explicit,
		Constexpr:    sp.constexpr,
		Constructor:  ctor,
		Destructor:   h.destructor,
		Operator:     h.operator,
		Template:     h.tmpl,
	}
	for _, qual := range h.quals {
		fn.Scope = fn.Scope.Child(qual)
	}

	p.functionTail(fn)
	last := p.functionEnd(fn)
	fn.Doc = p.attach(h.start, last)
	p.add(fn)
}

// functionTail consumes trailing return types, virt-specifiers, exception
// specifications and requires-clauses after the parameter list.
func (p *parser) functionTail(fn *model.FunctionDecl) {
	for {
		switch t := p.cur(); {
		case t.Is("->"):
			p.next()
			typ, n, ok := signature.ReadType(p.toks[p.i:])
			if !ok {
				p.errorf(p.cur().Pos, "expected trailing return type, got %s", p.cur())
			}
			p.i += n
			if fn.ReturnType == "" || fn.ReturnType == "auto" {
				fn.ReturnType = typ
			}
		case t.Is("override"), t.Is("final"):
			p.next()
		case t.Is("noexcept"), t.Is("throw"):
			p.next()
			if p.at("(") {
				p.skipGroup()
			}
		case t.Is("requires"):
			p.next()
			for !p.at("{") && !p.at(";") && !p.at("=") && !p.atEOF() {
				if p.at("(") {
					p.skipGroup()
					continue
				}
				p.next()
			}
		case t.Is("[") && p.peek(1).Is("["), t.Is("__attribute__"):
			p.skipAttributes()
		case p.isDecoration(p.i):
			p.next()
			if p.at("(") {
				p.skipGroup()
			}
		default:
			return
		}
	}
}

// functionEnd consumes a pure, defaulted or deleted marker, a body or a
// terminating ';', and returns the index of the declaration's last token.
func (p *parser) functionEnd(fn *model.FunctionDecl) int {
	switch {
	case p.accept("="):
		switch t := p.cur(); {
		case t.Kind == lex.Literal && t.Text == "0":
			fn.Pure = true
		case t.Is("default"):
			fn.Defaulted = true
		case t.Is("delete"):
			fn.Deleted = true
		default:
			p.errorf(t.Pos, "expected 0, default or delete, got %s", t)
		}
		p.next()
		last := p.i
		p.expect(";")
		return last
	case p.at(";"):
		p.next()
		return p.i - 1
	case p.accept("try"):
		p.initializers()
		last := p.fnBody(fn)
		for p.accept("catch") {
			if !p.at("(") {
				p.errorf(p.cur().Pos, "expected '(' after catch, got %s", p.cur())
			}
			p.skipGroup()
			if !p.at("{") {
				p.errorf(p.cur().Pos, "expected handler body, got %s", p.cur())
			}
			last = p.closing(p.i)
			p.skipGroup()
		}
		return last
	case p.at(":"), p.at("{"):
		p.initializers()
		last := p.fnBody(fn)
		if p.at(";") {
			last = p.i
			p.next()
		}
		return last
	}
	p.errorf(p.cur().Pos, "expected ';' or function body after %s, got %s", fn.Name, p.cur())
	return 0
}

// initializers skips a constructor's member initializer list.
func (p *parser) initializers() {
	if !p.accept(":") {
		return
	}
	for {
		p.qualifiedID()
		if !p.at("(") && !p.at("{") {
			p.errorf(p.cur().Pos, "expected member initializer, got %s", p.cur())
		}
		p.skipGroup()
		p.accept("...")
		if !p.accept(",") {
			return
		}
	}
}

// fnBody skips an inline function body and returns the index of its closing brace.
func (p *parser) fnBody(fn *model.FunctionDecl) int {
	if !p.at("{") {
		p.errorf(p.cur().Pos, "expected function body, got %s", p.cur())
	}
	last := p.closing(p.i)
	p.skipGroup()
	fn.IsDefinition = true
	return last
}

// functionPointer parses a variable declared with a parenthesised
// declarator, e.g. "void (*callback)(int);".
func (p *parser) functionPointer(start, typeStart, k int) {
	p.i = p.closing(k) + 1
	for p.at("(") || p.at("[") {
		p.skipGroup()
	}
	q := signature.Qualifiers(p.toks[p.i:])
	p.i += q.Consumed
	toks, sp := stripSpecs(p.toks[typeStart:p.i])
	param, err := signature.Param(toks)
	if err != nil || param.Name == "" {
		p.errorf(p.toks[k].Pos, "invalid declarator")
	}
	var nameTok lex.Token
	for j := k + 1; j < p.i; j++ {
		if p.toks[j].Kind == lex.Ident && p.toks[j].Text == param.Name {
			nameTok = p.toks[j]
			break
		}
	}
	p.declarators(&varHead{
		typ:      param.Type,
		name:     param.Name,
		nameTok:  nameTok,
		docFirst: start,
	}, param.Type, sp)
}

type varHead struct {
	typ      string
	name     string
	nameTok  lex.Token
	quals    []string
	docFirst int
}

// declarators parses a comma-separated declarator list, starting just after
// the name of head, or at the first declarator when head has no name. Each
// declarator becomes a variable; base is the type before pointer operators.
func (p *parser) declarators(head *varHead, base string, sp specs) {
	if head == nil {
		head = &varHead{docFirst: p.i}
	}
	for {
		if head.name == "" {
			p.declaratorName(head, base)
		}
		typ := head.typ
		for p.at("[") {
			end := p.closing(p.i)
			typ += "[" + signature.Join(p.toks[p.i+1:end]) + "]"
			p.i = end + 1
		}
		if p.at(":") {
			if signalWords[head.name] {
				p.errorf(head.nameTok.Pos, "%s: is a signal section, not a declarator", head.name)
			}
			p.next()
			p.bitfieldWidth()
		}
		switch {
		case p.accept("="):
			p.skipExpr()
		case p.at("{"), p.at("("):
			p.skipGroup()
		}
		if !p.at(",") && !p.at(";") {
			p.errorf(p.cur().Pos, "expected ';' after declaration of %s, got %s", head.name, p.cur())
		}

		v := &model.VariableDecl{
			DeclInfo: model.DeclInfo{
				Scope:  p.scope(),
				Name:   head.name,
				Access: p.memberAccess(),
				Pos:    head.nameTok.Pos,
			},
			Type:      typ,
			Static:    sp.static,
			Constexpr: sp.constexpr,
		}
		for _, q := range head.quals {
			v.Scope = v.Scope.Child(q)
		}
		v.Doc = p.attach(head.docFirst, p.i)
		p.add(v)

		if p.at(";") {
			return
		}
		p.next()
		head = &varHead{docFirst: p.i}
	}
}

// declaratorName reads pointer operators and a name for a declarator that
// follows a comma or a class body.
func (p *parser) declaratorName(head *varHead, base string) {
	var b strings.Builder
	for {
		switch t := p.cur(); {
		case t.Is("*"), t.Is("&"), t.Is("&&"):
			b.WriteString(t.Text)
		case t.Is("const"), t.Is("volatile"):
			if b.Len() == 0 {
				p.errorf(t.Pos, "unexpected %s in declarator", t.Text)
			}
			b.WriteString(t.Text)
		default:
			if t.Kind != lex.Ident || lex.IsKeyword(t.Text) {
				p.errorf(t.Pos, "expected declarator name, got %s", t)
			}
			head.typ = base + b.String()
			head.name = t.Text
			head.nameTok = t
			p.next()
			return
		}
		p.next()
	}
}

// stripPointers removes pointer and reference operators that follow the
// base type, e.g. "const QUrl*const" becomes "const QUrl".
func stripPointers(typ string) string {
	depth := 0
	for i := 0; i < len(typ); i++ {
		switch typ[i] {
		case '<', '(':
			depth++
		case '>', ')':
			depth--
		case '*', '&':
			if depth == 0 {
				return typ[:i]
			}
		}
	}
	return typ
}

// splitQualified splits "a::b< c::d >::e" into ["a", "b"] and "e". Template
// arguments of qualifiers are dropped.
func splitQualified(s string) ([]string, string) {
	var parts []string
	depth, last := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			depth--
		case ':':
			if depth == 0 && i+1 < len(s) && s[i+1] == ':' {
				parts = append(parts, s[last:i])
				i++
				last = i + 1
			}
		}
	}
	parts = append(parts, s[last:])
	if parts[0] == "" {
		parts = parts[1:]
	}
	quals := parts[:len(parts)-1]
	for i := range quals {
		quals[i] = baseName(quals[i])
	}
	return quals, parts[len(parts)-1]
}

// baseName strips template arguments from a class name.
func baseName(name string) string {
	if i := strings.IndexByte(name, '<'); i >= 0 {
		return strings.TrimSpace(name[:i])
	}
	return name
}
