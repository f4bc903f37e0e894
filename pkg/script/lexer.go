package script

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNewline
	tokSemi
	tokIdent
	tokString
	tokNumber
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokLBrace
	tokRBrace
	tokComma
	tokColon
	tokAssign
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// lexer produces tokens from a (possibly truncated) source buffer.
// A construct cut off by the end of input yields ErrIncomplete rather
// than a definite error, so streaming callers can keep buffering.
type lexer struct {
	src string
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: src}
}

func (l *lexer) errorf(pos int, format string, args ...any) error {
	return fmt.Errorf("%s at offset %d", fmt.Sprintf(format, args...), pos)
}

// next returns the next token. io errors are never produced: the end of
// the buffer is tokEOF, and constructs cut off mid-way return ErrIncomplete.
func (l *lexer) next() (token, error) {
	l.skipBlanks()
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}

	start := l.pos
	c := l.src[l.pos]

	switch {
	case c == '\n':
		l.pos++
		return token{kind: tokNewline, text: "\n", pos: start}, nil
	case c == ';':
		l.pos++
		return token{kind: tokSemi, text: ";", pos: start}, nil
	case c == '(':
		l.pos++
		return token{kind: tokLParen, text: "(", pos: start}, nil
	case c == ')':
		l.pos++
		return token{kind: tokRParen, text: ")", pos: start}, nil
	case c == '[':
		l.pos++
		return token{kind: tokLBracket, text: "[", pos: start}, nil
	case c == ']':
		l.pos++
		return token{kind: tokRBracket, text: "]", pos: start}, nil
	case c == '{':
		l.pos++
		return token{kind: tokLBrace, text: "{", pos: start}, nil
	case c == '}':
		l.pos++
		return token{kind: tokRBrace, text: "}", pos: start}, nil
	case c == ',':
		l.pos++
		return token{kind: tokComma, text: ",", pos: start}, nil
	case c == ':':
		l.pos++
		return token{kind: tokColon, text: ":", pos: start}, nil
	case c == '=':
		l.pos++
		return token{kind: tokAssign, text: "=", pos: start}, nil
	case c == '"' || c == '\'':
		return l.lexString()
	case c >= '0' && c <= '9':
		return l.lexNumber(false)
	case c == '-':
		return l.lexNumber(true)
	case isIdentStart(rune(c)):
		return l.lexIdent()
	}

	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	if isIdentStart(r) {
		return l.lexIdent()
	}
	return token{}, l.errorf(start, "unexpected character %q", r)
}

// skipBlanks consumes spaces, tabs, carriage returns and comments.
// Newlines are significant (statement separators) and are not skipped.
func (l *lexer) skipBlanks() {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\r':
			l.pos++
		case '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

func (l *lexer) lexString() (token, error) {
	start := l.pos
	quote := l.src[l.pos]
	l.pos++

	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case quote:
			l.pos++
			return token{kind: tokString, text: sb.String(), pos: start}, nil
		case '\\':
			if l.pos+1 >= len(l.src) {
				return token{}, ErrIncomplete
			}
			l.pos++
			switch esc := l.src[l.pos]; esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\', '\'', '"':
				sb.WriteByte(esc)
			default:
				// Unknown escapes pass through verbatim.
				sb.WriteByte('\\')
				sb.WriteByte(esc)
			}
			l.pos++
		case '\n':
			return token{}, l.errorf(l.pos, "newline in string literal")
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
	// Unterminated string: more tokens may still close it.
	return token{}, ErrIncomplete
}

func (l *lexer) lexNumber(negative bool) (token, error) {
	start := l.pos
	if negative {
		l.pos++
		if l.pos >= len(l.src) {
			return token{}, ErrIncomplete
		}
		if c := l.src[l.pos]; c < '0' || c > '9' {
			return token{}, l.errorf(start, "expected digit after '-'")
		}
	}

	sawDot := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c >= '0' && c <= '9' {
			l.pos++
			continue
		}
		if c == '.' && !sawDot {
			sawDot = true
			l.pos++
			continue
		}
		if isIdentStart(rune(c)) {
			return token{}, l.errorf(start, "malformed number %q", l.src[start:l.pos+1])
		}
		break
	}
	return token{kind: tokNumber, text: l.src[start:l.pos], pos: start}, nil
}

func (l *lexer) lexIdent() (token, error) {
	start := l.pos
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !isIdentPart(r) {
			break
		}
		l.pos += size
	}
	return token{kind: tokIdent, text: l.src[start:l.pos], pos: start}, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
