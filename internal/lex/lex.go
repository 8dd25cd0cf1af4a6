// Package lex splits C++ header text into tokens, keeping comments and
// preprocessor lines as whole tokens.
package lex

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/phobologic/headerdoc/internal/model"
)

type lexer struct {
	src  []byte
	off  int
	pos  model.Pos
	mark model.Pos
	// Only whitespace seen since the last newline.
	bol  bool
	toks []Token
}

type breakout struct{}

// Tokenize lexes src. file is used only in positions. The returned slice always
// ends with an EOF token.
func Tokenize(file string, src []byte) (toks []Token, err error) {
	lx := &lexer{
		src: src,
		pos: model.Pos{File: file, Line: 1, Col: 1},
		bol: true,
	}
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*Error); ok {
				toks, err = nil, e
				return
			}
			panic(r)
		}
	}()
	lx.run()
	return lx.toks, nil
}

func (lx *lexer) errorf(pos model.Pos, msg string) {
	panic(&Error{Pos: pos, Msg: msg})
}

func (lx *lexer) peekAt(n int) byte {
	if lx.off+n < len(lx.src) {
		return lx.src[lx.off+n]
	}
	return 0
}

func (lx *lexer) peek() byte { return lx.peekAt(0) }

func (lx *lexer) eof() bool { return lx.off >= len(lx.src) }

func (lx *lexer) advance() byte {
	c := lx.src[lx.off]
	lx.off++
	if c == '\n' {
		lx.pos.Line++
		lx.pos.Col = 1
		lx.bol = true
	} else {
		lx.pos.Col++
	}
	return c
}

func (lx *lexer) emit(kind Kind, text string) {
	lx.toks = append(lx.toks, Token{Kind: kind, Text: text, Pos: lx.mark, EndLine: lx.pos.Line})
	lx.bol = false
}

// continuation reports whether a backslash-newline starts at the current offset.
func (lx *lexer) continuation() bool {
	if lx.peek() != '\\' {
		return false
	}
	return lx.peekAt(1) == '\n' || (lx.peekAt(1) == '\r' && lx.peekAt(2) == '\n')
}

func (lx *lexer) skipContinuation() {
	lx.advance()
	if lx.peek() == '\r' {
		lx.advance()
	}
	lx.advance()
}

func (lx *lexer) run() {
	for {
		for !lx.eof() && isSpace(lx.peek()) {
			lx.advance()
		}
		lx.mark = lx.pos
		if lx.eof() {
			lx.toks = append(lx.toks, Token{Kind: EOF, Pos: lx.pos, EndLine: lx.pos.Line})
			return
		}
		c := lx.peek()
		switch {
		case c == '#' && lx.bol:
			lx.directive()
		case c == '/' && lx.peekAt(1) == '/':
			lx.emit(Comment, lx.lineComment())
		case c == '/' && lx.peekAt(1) == '*':
			lx.emit(Comment, lx.blockComment())
		case isIdentStart(c):
			lx.identOrPrefixedLiteral()
		case isDigit(c) || (c == '.' && isDigit(lx.peekAt(1))):
			lx.emit(Literal, lx.number())
		case c == '"':
			lx.emit(Literal, lx.quoted('"', ""))
		case c == '\'':
			lx.emit(Literal, lx.quoted('\'', ""))
		case c == '\\':
			if lx.continuation() {
				lx.skipContinuation()
				continue
			}
			lx.errorf(lx.pos, "stray '\\' in program")
		default:
			lx.punct()
		}
	}
}

var multiPunct = []string{"...", "::", "->", "&&", "||", "##"}

const singlePunct = "(){}[];,:.?~!%^&*-+=|<>/#"

func (lx *lexer) punct() {
	rest := lx.src[lx.off:]
	for _, p := range multiPunct {
		if bytes.HasPrefix(rest, []byte(p)) {
			for range p {
				lx.advance()
			}
			lx.emit(Punct, p)
			return
		}
	}
	c := lx.peek()
	if strings.IndexByte(singlePunct, c) < 0 {
		lx.errorf(lx.pos, fmt.Sprintf("unknown character %q", rune(c)))
	}
	lx.advance()
	lx.emit(Punct, string(c))
}

func (lx *lexer) lineComment() string {
	start := lx.off
	for !lx.eof() && lx.peek() != '\n' {
		lx.advance()
	}
	return strings.TrimRight(string(lx.src[start:lx.off]), "\r")
}

func (lx *lexer) blockComment() string {
	start, pos := lx.off, lx.pos
	lx.advance()
	lx.advance()
	for {
		if lx.eof() {
			lx.errorf(pos, "unterminated comment")
		}
		if lx.peek() == '*' && lx.peekAt(1) == '/' {
			lx.advance()
			lx.advance()
			return string(lx.src[start:lx.off])
		}
		lx.advance()
	}
}

func (lx *lexer) identOrPrefixedLiteral() {
	start := lx.off
	for !lx.eof() && isIdentChar(lx.peek()) {
		lx.advance()
	}
	word := string(lx.src[start:lx.off])
	switch lx.peek() {
	case '"':
		switch word {
		case "u8", "u", "U", "L":
			lx.emit(Literal, lx.quoted('"', word))
			return
		case "R", "u8R", "uR", "UR", "LR":
			lx.emit(Literal, lx.rawString(word))
			return
		}
	case '\'':
		switch word {
		case "u8", "u", "U", "L":
			lx.emit(Literal, lx.quoted('\'', word))
			return
		}
	}
	lx.emit(Ident, word)
}

func (lx *lexer) number() string {
	start := lx.off
	for !lx.eof() {
		c := lx.peek()
		switch {
		case isIdentChar(c) || c == '.':
			lx.advance()
		case c == '\'' && isIdentChar(lx.peekAt(1)):
			lx.advance()
		case (c == '+' || c == '-') && lx.off > start && strings.IndexByte("eEpP", lx.src[lx.off-1]) >= 0:
			lx.advance()
		default:
			return string(lx.src[start:lx.off])
		}
	}
	return string(lx.src[start:lx.off])
}

func (lx *lexer) quoted(quote byte, prefix string) string {
	pos := lx.pos
	start := lx.off
	lx.advance()
	for {
		if lx.eof() || lx.peek() == '\n' {
			if quote == '"' {
				lx.errorf(pos, "unterminated string literal")
			}
			lx.errorf(pos, "unterminated character literal")
		}
		c := lx.advance()
		switch c {
		case '\\':
			if !lx.eof() {
				lx.advance()
			}
		case quote:
			return prefix + string(lx.src[start:lx.off])
		}
	}
}

func (lx *lexer) rawString(prefix string) string {
	pos := lx.pos
	start := lx.off
	lx.advance()
	dstart := lx.off
	for !lx.eof() && lx.peek() != '(' {
		if c := lx.peek(); c == ' ' || c == ')' || c == '\\' || c == '\n' || lx.off-dstart >= 16 {
			lx.errorf(pos, "invalid raw string delimiter")
		}
		lx.advance()
	}
	if lx.eof() {
		lx.errorf(pos, "unterminated raw string literal")
	}
	closer := ")" + string(lx.src[dstart:lx.off]) + `"`
	lx.advance()
	for {
		if lx.eof() {
			lx.errorf(pos, "unterminated raw string literal")
		}
		if bytes.HasPrefix(lx.src[lx.off:], []byte(closer)) {
			for range closer {
				lx.advance()
			}
			return prefix + string(lx.src[start:lx.off])
		}
		lx.advance()
	}
}

// directive reads one logical preprocessor line. Comments on the line are
// emitted as their own tokens after the directive.
func (lx *lexer) directive() {
	var b strings.Builder
	var comments []Token
	for !lx.eof() && lx.peek() != '\n' {
		switch c := lx.peek(); {
		case lx.continuation():
			lx.skipContinuation()
			b.WriteByte(' ')
		case c == '/' && lx.peekAt(1) == '/':
			mark := lx.pos
			text := lx.lineComment()
			comments = append(comments, Token{Kind: Comment, Text: text, Pos: mark, EndLine: lx.pos.Line})
		case c == '/' && lx.peekAt(1) == '*':
			mark := lx.pos
			text := lx.blockComment()
			comments = append(comments, Token{Kind: Comment, Text: text, Pos: mark, EndLine: lx.pos.Line})
			b.WriteByte(' ')
		case (c == '"' || c == '\'') && lx.closedOnLine(c):
			b.WriteString(lx.quoted(c, ""))
		default:
			b.WriteByte(lx.advance())
		}
	}
	lx.emit(Preprocessor, strings.TrimRight(b.String(), " \t\r"))
	lx.toks = append(lx.toks, comments...)
}

// closedOnLine reports whether the quote at the current offset is matched
// before the end of the line. Directive text such as #error may hold a lone
// apostrophe.
func (lx *lexer) closedOnLine(quote byte) bool {
	for i := lx.off + 1; i < len(lx.src) && lx.src[i] != '\n'; i++ {
		switch lx.src[i] {
		case '\\':
			i++
		case quote:
			return true
		}
	}
	return false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentChar(c byte) bool { return isIdentStart(c) || isDigit(c) }
