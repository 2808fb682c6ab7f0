package dub

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenType int

const (
	typeUnknown tokenType = iota
	typeInt
	typeFloat
	typeIdentifier
	typeString
	typeQuote
	typeComma
	typeColon
	typeAsterisk
	typeSemicolon
	typeEOF
)

const eof = -1

var punctuation = map[rune]tokenType{
	'\'': typeQuote,
	',':  typeComma,
	':':  typeColon,
	'*':  typeAsterisk,
	';':  typeSemicolon,
}

type token struct {
	typ  tokenType
	pos  int
	text string
}

// stateFn scans from the current position and returns the next state, or nil
// when lexing is done.
type stateFn func(*lexer) stateFn

type lexer struct {
	input  string
	start  int
	pos    int
	tokens []token
	err    error
}

func lex(input string) ([]token, error) {
	l := &lexer{input: input}
	for state := lexAny; state != nil; {
		state = state(l)
	}
	return l.tokens, l.err
}

func (l *lexer) peek() rune {
	if l.pos >= len(l.input) {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

func (l *lexer) advance() rune {
	r := l.peek()
	if r != eof {
		l.pos += utf8.RuneLen(r)
	}
	return r
}

func (l *lexer) acceptRune(r rune) bool {
	if l.peek() != r {
		return false
	}
	l.advance()
	return true
}

func (l *lexer) acceptWhile(ok func(rune) bool) {
	for ok(l.peek()) {
		l.advance()
	}
}

func (l *lexer) emit(t tokenType) {
	l.tokens = append(l.tokens, token{t, l.start, l.input[l.start:l.pos]})
	l.start = l.pos
}

func (l *lexer) errorf(format string, args ...any) stateFn {
	l.err = fmt.Errorf(format, args...)
	return nil
}

func (l *lexer) unexpected(r rune) stateFn {
	if r == eof {
		return l.errorf("unexpected end of input")
	}
	return l.errorf("unexpected character %#U at position %d", r, l.pos)
}

func lexAny(l *lexer) stateFn {
	r := l.peek()
	switch {
	case r == eof:
		l.emit(typeEOF)
		return nil
	case isSpace(r):
		l.acceptWhile(isSpace)
		l.start = l.pos
		return lexAny
	case r == '"':
		return lexString
	case unicode.IsLetter(r):
		return lexIdentifier
	case startsNumber(l.input[l.pos:]):
		return lexNumber
	}
	typ, ok := punctuation[r]
	if !ok {
		return l.unexpected(r)
	}
	l.advance()
	l.emit(typ)
	return lexAny
}

// lexIdentifier scans names like tempo, env.release and F#4.
func lexIdentifier(l *lexer) stateFn {
	l.acceptWhile(isNameRune)
	if r := l.peek(); !isTerminator(r) {
		return l.unexpected(r)
	}
	l.emit(typeIdentifier)
	return lexAny
}

func lexString(l *lexer) stateFn {
	l.advance()
	for {
		switch l.advance() {
		case '"':
			l.emit(typeString)
			return lexAny
		case eof:
			return l.errorf("unterminated string starting at position %d", l.start)
		}
	}
}

// lexNumber scans -1, 2.5, .5 and -1. Numbers may be followed by the
// separators of a match expression.
func lexNumber(l *lexer) stateFn {
	l.acceptRune('-')
	l.acceptWhile(isDigit)
	typ := typeInt
	if l.acceptRune('.') {
		typ = typeFloat
		l.acceptWhile(isDigit)
	}
	if r := l.peek(); !isTerminator(r) && r != ':' && r != ',' {
		return l.unexpected(r)
	}
	l.emit(typ)
	return lexAny
}

func startsNumber(s string) bool {
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimPrefix(s, ".")
	return len(s) > 0 && isDigit(rune(s[0]))
}

func isNameRune(r rune) bool {
	return unicode.IsLetter(r) || isDigit(r) || r == '_' || r == '.' || r == '#'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t'
}

func isTerminator(r rune) bool {
	return isSpace(r) || r == ';' || r == eof
}
