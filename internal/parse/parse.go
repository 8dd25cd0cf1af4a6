// Package parse builds declaration entities from a C++ header token stream.
// It tracks namespace and class nesting on an explicit scope stack and asks a
// macro.Policy for help whenever a declaration cannot be parsed.
package parse

import (
	"fmt"
	"log/slog"

	"github.com/phobologic/headerdoc/internal/doc"
	"github.com/phobologic/headerdoc/internal/lex"
	"github.com/phobologic/headerdoc/internal/macro"
	"github.com/phobologic/headerdoc/internal/model"
	"github.com/phobologic/headerdoc/internal/signature"
)

// Options configures Parse.
type Options struct {
	// Policy recognises annotation macros. Nil means macro.Generic.
	Policy macro.Policy
	// Recover turns member grammar errors into warnings; the offending
	// declaration is skipped.
	Recover bool
	Logger  *slog.Logger
}

// Result is the outcome of parsing one file.
type Result struct {
	File string
	// Decls holds the declarations that are not class members, in source
	// order: namespaces, classes, enums, functions, variables and macros.
	Decls []model.Decl
	// All holds every declaration in preorder.
	All      []model.Decl
	Warnings []model.Diagnostic
}

// Error is a declaration grammar error.
type Error struct {
	Pos model.Pos
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("syntax error: %s at %s", e.Msg, e.Pos)
}

func (e *Error) Diagnostic() model.Diagnostic {
	return model.Diagnostic{
		Severity: model.SeverityError,
		Code:     model.CodeParse,
		File:     e.Pos.File,
		Line:     e.Pos.Line,
		Col:      e.Pos.Col,
		Message:  e.Msg,
	}
}

// breakout unwinds the parser to the nearest recovery point. fatal errors
// are never recovered.
type breakout struct {
	err   error
	fatal bool
}

type frameKind int

const (
	frameNamespace frameKind = iota
	frameClass
	frameLinkage
)

type frame struct {
	kind   frameKind
	names  []string
	class  *model.ClassDecl
	access model.Access
}

type parser struct {
	file    string
	toks    []lex.Token
	orig    []int
	i       int
	docs    *doc.Index
	policy  macro.Policy
	recover bool
	log     *slog.Logger

	stack    []frame
	classes  map[string]*model.ClassDecl
	classLog []string
	res      *Result
}

// Parse parses toks, which must come from lex.Tokenize and end with EOF.
// docs may be nil, in which case no documentation is attached.
func Parse(file string, toks []lex.Token, docs *doc.Index, opts Options) (res *Result, err error) {
	p := &parser{
		file:    file,
		docs:    docs,
		policy:  opts.Policy,
		recover: opts.Recover,
		log:     opts.Logger,
		classes: make(map[string]*model.ClassDecl),
		res:     &Result{File: file},
	}
	if p.docs == nil {
		p.docs = doc.NewIndex(toks, nil)
	}
	if p.policy == nil {
		p.policy = macro.Generic{}
	}
	if p.log == nil {
		p.log = slog.New(slog.DiscardHandler)
	}
	p.log = p.log.With("component", "parser", "file", file)
	p.toks, p.orig = activeTokens(toks)
	if len(p.toks) == 0 || p.toks[len(p.toks)-1].Kind != lex.EOF {
		p.toks = append(p.toks, lex.Token{Kind: lex.EOF, Pos: model.Pos{File: file, Line: 1, Col: 1}})
		p.orig = append(p.orig, len(toks))
	}

	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(breakout)
			if !ok {
				panic(r)
			}
			res, err = nil, b.err
		}
	}()
	p.unit()
	return p.res, nil
}

func (p *parser) cur() lex.Token { return p.toks[p.i] }

func (p *parser) peek(n int) lex.Token {
	if p.i+n < len(p.toks) {
		return p.toks[p.i+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) at(text string) bool { return p.cur().Is(text) }

func (p *parser) atEOF() bool { return p.cur().Kind == lex.EOF }

func (p *parser) next() lex.Token {
	t := p.cur()
	if t.Kind != lex.EOF {
		p.i++
	}
	return t
}

func (p *parser) accept(text string) bool {
	if p.at(text) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(text string) lex.Token {
	if !p.at(text) {
		p.errorf(p.cur().Pos, "expected %q, got %s", text, p.cur())
	}
	return p.next()
}

// errorf reports a grammar error. Running out of input is always fatal.
func (p *parser) errorf(pos model.Pos, format string, args ...any) {
	panic(breakout{
		err:   &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)},
		fatal: p.atEOF(),
	})
}

func (p *parser) fatalf(pos model.Pos, format string, args ...any) {
	panic(breakout{err: &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}, fatal: true})
}

func (p *parser) warn(code string, pos model.Pos, format string, args ...any) {
	d := model.Warning(code, pos, format, args...)
	p.log.Debug("warning", "code", code, "pos", pos.String(), "msg", d.Message)
	p.res.Warnings = append(p.res.Warnings, d)
}

// try runs fn and returns the breakout it raised, if any.
func (p *parser) try(fn func()) (b *breakout) {
	defer func() {
		if r := recover(); r != nil {
			br, ok := r.(breakout)
			if !ok {
				panic(r)
			}
			b = &br
		}
	}()
	fn()
	return nil
}

type mark struct {
	i, all, decls, stack, classes, docs int
}

func (p *parser) mark() mark {
	return mark{
		i:       p.i,
		all:     len(p.res.All),
		decls:   len(p.res.Decls),
		stack:   len(p.stack),
		classes: len(p.classLog),
		docs:    p.docs.Mark(),
	}
}

// reset rewinds to m, discarding declarations created since.
func (p *parser) reset(m mark) {
	p.i = m.i
	p.res.All = p.res.All[:m.all]
	p.res.Decls = p.res.Decls[:m.decls]
	p.stack = p.stack[:m.stack]
	for _, key := range p.classLog[m.classes:] {
		delete(p.classes, key)
	}
	p.classLog = p.classLog[:m.classes]
	p.docs.Release(m.docs)
}

func (p *parser) scope() model.Scope {
	var s model.Scope
	for _, f := range p.stack {
		for _, n := range f.names {
			s = s.Child(n)
		}
	}
	return s
}

func (p *parser) classFrame() *frame {
	if len(p.stack) == 0 {
		return nil
	}
	if f := &p.stack[len(p.stack)-1]; f.kind == frameClass {
		return f
	}
	return nil
}

func (p *parser) memberAccess() model.Access {
	if f := p.classFrame(); f != nil {
		return f.access
	}
	return model.AccessNone
}

// link records a finished declaration in its parent: the enclosing class, or
// the namespace-level list.
func (p *parser) link(d model.Decl) {
	if f := p.classFrame(); f != nil {
		f.class.Members = append(f.class.Members, d)
		return
	}
	p.res.Decls = append(p.res.Decls, d)
}

// add records a finished leaf declaration.
func (p *parser) add(d model.Decl) {
	p.res.All = append(p.res.All, d)
	p.link(d)
}

func (p *parser) attach(first, last int) []model.DocComment {
	f, l := -1, -1
	if first >= 0 {
		f = p.orig[first]
	}
	if last >= 0 {
		l = p.orig[last]
	}
	return p.docs.Attach(f, l)
}

func (p *parser) unit() {
	for !p.atEOF() {
		if p.at("}") {
			p.fatalf(p.cur().Pos, "unbalanced '}'")
		}
		p.namespaceMember()
	}
}

// body parses namespace-level declarations up to and including the closing
// brace of a block opened at open.
func (p *parser) body(what string, open lex.Token) {
	for !p.at("}") {
		if p.atEOF() {
			p.fatalf(open.Pos, "unterminated %s", what)
		}
		p.namespaceMember()
	}
	p.next()
}

// namespaceMember parses one namespace-level declaration. Anything that does
// not parse is handed to the macro policy and otherwise skipped with a
// warning.
func (p *parser) namespaceMember() {
	m := p.mark()
	b := p.try(p.declaration)
	if b == nil {
		return
	}
	if b.fatal {
		panic(*b)
	}
	p.reset(m)
	pos := p.cur().Pos
	if name, next, ok := p.policy.Recover(p.toks, p.i); ok && next > p.i {
		p.warn(model.CodeSkipped, pos, "skipped unknown macro %s", name)
		p.i = next
		return
	}
	p.warn(model.CodeSkipped, pos, "skipped unrecognised declaration: %s", message(b.err))
	p.skipDecl(false)
}

// member parses one class member. When ordinary parsing fails the macro
// policy may claim the tokens as an annotation macro; otherwise the error
// stands unless recovery is enabled.
func (p *parser) member(cls *model.ClassDecl) {
	m := p.mark()
	b := p.try(p.declaration)
	if b == nil {
		return
	}
	if b.fatal {
		panic(*b)
	}
	p.reset(m)
	if name, next, ok := p.policy.Recover(p.toks, p.i); ok && next > p.i {
		p.log.Debug("annotation macro", "name", name, "class", cls.QualifiedName(), "pos", p.cur().Pos.String())
		cls.AddAnnotation(name)
		p.i = next
		return
	}
	if !p.recover {
		panic(breakout{err: b.err, fatal: true})
	}
	p.warnErr(b.err)
	p.skipDecl(false)
}

func (p *parser) warnErr(err error) {
	if e, ok := err.(*Error); ok {
		p.warn(model.CodeParse, e.Pos, "%s", e.Msg)
		return
	}
	p.warn(model.CodeParse, p.cur().Pos, "%s", err)
}

func message(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Msg
	}
	return err.Error()
}

// skipDecl advances past the current declaration: through the next ';' at
// depth zero, through a brace block that closes at depth zero unless toSemi
// is set, or up to an unmatched '}'.
func (p *parser) skipDecl(toSemi bool) {
	depth := 0
	for {
		t := p.cur()
		switch {
		case t.Kind == lex.EOF:
			if depth > 0 {
				p.fatalf(t.Pos, "unbalanced braces")
			}
			return
		case t.Is("(") || t.Is("[") || t.Is("{"):
			depth++
		case t.Is(")") || t.Is("]"):
			if depth > 0 {
				depth--
			}
		case t.Is("}"):
			if depth == 0 {
				return
			}
			depth--
			if depth == 0 && !toSemi {
				p.next()
				p.accept(";")
				return
			}
		case t.Is(";") && depth == 0:
			p.next()
			return
		}
		p.next()
	}
}

// skipGroup skips the bracketed group opening at the current token.
func (p *parser) skipGroup() {
	end := signature.Matching(p.toks, p.i)
	if end < 0 {
		p.fatalf(p.cur().Pos, "unbalanced %q", p.cur().Text)
	}
	p.i = end + 1
}

// skipAngles skips a template argument list starting at '<'.
func (p *parser) skipAngles() {
	depth := 0
	for {
		t := p.cur()
		switch {
		case t.Kind == lex.EOF:
			p.fatalf(t.Pos, "unterminated template argument list")
		case t.Is("(") || t.Is("["):
			p.skipGroup()
			continue
		case t.Is(";") || t.Is("{") || t.Is("}"):
			p.errorf(t.Pos, "unterminated template argument list")
		case t.Is("<"):
			depth++
		case t.Is(">"):
			depth--
			if depth == 0 {
				p.next()
				return
			}
		}
		p.next()
	}
}

// skipAttributes skips [[...]], __attribute__((...)), __declspec(...) and
// alignas(...). It reports whether anything was skipped.
func (p *parser) skipAttributes() bool {
	skipped := false
	for {
		switch {
		case p.at("[") && p.peek(1).Is("["):
			p.skipGroup()
		case (p.at("__attribute__") || p.at("__declspec") || p.at("alignas")) && p.peek(1).Is("("):
			p.next()
			p.skipGroup()
		default:
			return skipped
		}
		skipped = true
	}
}

// qualifiedID consumes a possibly qualified name with template arguments.
func (p *parser) qualifiedID() {
	p.accept("::")
	for {
		p.accept("template")
		if t := p.cur(); t.Kind != lex.Ident || lex.IsKeyword(t.Text) {
			p.errorf(t.Pos, "expected identifier, got %s", t)
		}
		p.next()
		if p.at("<") {
			p.skipAngles()
		}
		if !p.accept("::") {
			return
		}
	}
}

// templateHeader consumes "template<...>" and returns its text.
func (p *parser) templateHeader() string {
	start := p.i
	p.expect("template")
	if !p.at("<") {
		p.errorf(p.cur().Pos, "expected '<' after template, got %s", p.cur())
	}
	depth := 0
	for {
		t := p.cur()
		switch {
		case t.Kind == lex.EOF:
			p.fatalf(p.toks[start].Pos, "unterminated template parameter list")
		case t.Is("(") || t.Is("["):
			p.skipGroup()
			continue
		case t.Is("<"):
			depth++
		case t.Is(">"):
			depth--
			if depth == 0 {
				p.next()
				return signature.Join(p.toks[start:p.i])
			}
		}
		p.next()
	}
}
