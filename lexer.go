package pgdelta

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const eof = rune(0)

type lexer struct {
	input string

	pos   int
	start int
	width int
}

func newLexer(input string) *lexer {
	return &lexer{input: input}
}

func (l *lexer) str() string {
	return l.input[l.start:l.pos]
}

func (l *lexer) emit(t token) Token {
	return Token{Type: t, Value: l.str(), Pos: l.start}
}

func (l *lexer) illegal() Token {
	return Token{Type: ILLEGAL, Value: l.str(), Pos: l.start, EOF: l.pos >= len(l.input)}
}

func (l *lexer) read() Token {
	l.start = l.pos

	r := l.next()

	if isSpace(r) {
		return l.runSpace()
	} else if (r == 'E' || r == 'e') && l.peek() == '\'' {
		l.next()
		return l.runEscapeString()
	} else if isLetter(r) {
		return l.runIdent()
	} else if isDigit(r) {
		l.backup()
		return l.runNumber()
	}

	switch r {
	case eof:
		if l.pos >= len(l.input) {
			return Token{Type: EOF, Pos: l.pos, EOF: true}
		}
		// a literal NUL in the input
		return l.illegal()
	case '"':
		return l.runQuote('"', QUOTED_IDENT)
	case '`':
		// MySQL sources hand us backquoted identifiers
		return l.runQuote('`', QUOTED_IDENT)
	case '\'':
		return l.runQuote('\'', STRING)
	case '$':
		if t, ok := l.runDollarString(); ok {
			return t
		}
		for isDigit(l.peek()) {
			l.next()
		}
		return l.emit(OPERATOR)
	case '/':
		if l.peek() == '*' {
			return l.runCComment()
		}
		return l.emit(OPERATOR)
	case '-':
		if l.peek() == '-' {
			return l.runToEOL()
		}
		return l.emit(OPERATOR)
	case '(':
		return l.emit(LPAREN)
	case ')':
		return l.emit(RPAREN)
	case ';':
		return l.emit(SEMICOLON)
	case ',':
		return l.emit(COMMA)
	case '.':
		if isDigit(l.peek()) {
			l.backup()
			return l.runNumber()
		}
		return l.emit(DOT)
	case '=':
		return l.emit(EQUAL)
	case ':':
		// keep casts such as ::text in one token
		if l.peek() == ':' {
			l.next()
		}
		return l.emit(OPERATOR)
	default:
		return l.emit(OPERATOR)
	}
}

func (l *lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += l.width

	return r
}

func (l *lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

func (l *lexer) backup() {
	l.pos -= l.width
}

func (l *lexer) runSpace() Token {
	for isSpace(l.peek()) {
		l.next()
	}
	return l.emit(SPACE)
}

func (l *lexer) runIdent() Token {
	for isCharacter(l.peek()) {
		l.next()
	}
	return l.emit(IDENT)
}

// runQuote reads up to the closing pair. A doubled pair is an escaped
// pair, and does not close the quote.
func (l *lexer) runQuote(pair rune, t token) Token {
	for {
		r := l.next()
		if r == eof && l.pos >= len(l.input) {
			return l.illegal()
		}
		if r == pair {
			if l.peek() == pair {
				l.next()
				continue
			}
			return l.emit(t)
		}
	}
}

// E'...' strings additionally allow backslash escapes
func (l *lexer) runEscapeString() Token {
	for {
		r := l.next()
		switch {
		case r == eof && l.pos >= len(l.input):
			return l.illegal()
		case r == '\\':
			l.next()
		case r == '\'':
			if l.peek() == '\'' {
				l.next()
				continue
			}
			return l.emit(STRING)
		}
	}
}

// runDollarString reads $tag$ ... $tag$. The opening $ has already been
// consumed. Returns false, leaving the lexer where it was, if what
// follows is not a dollar quote opener.
func (l *lexer) runDollarString() (Token, bool) {
	mark := l.pos
	for {
		r := l.next()
		if r == '$' {
			break
		}
		if !(isLetter(r) || r == '_' || (isDigit(r) && l.pos-l.width > mark)) {
			l.pos = mark
			return Token{}, false
		}
	}

	tag := l.input[mark-1 : l.pos]
	i := strings.Index(l.input[l.pos:], tag)
	if i < 0 {
		l.pos = len(l.input)
		return l.illegal(), true
	}
	l.pos += i + len(tag)
	return l.emit(DOLLAR_STRING), true
}

func (l *lexer) runCComment() Token {
	l.next() // '*'
	depth := 1
	for {
		r := l.next()
		switch r {
		case eof:
			if l.pos >= len(l.input) {
				return l.illegal()
			}
		case '/':
			if l.peek() == '*' {
				l.next()
				depth++
			}
		case '*':
			if l.peek() == '/' {
				l.next()
				depth--
				if depth == 0 {
					return l.emit(COMMENT)
				}
			}
		}
	}
}

func (l *lexer) runToEOL() Token {
	for {
		r := l.peek()
		if r == '\n' || (r == eof && l.pos >= len(l.input)) {
			return l.emit(COMMENT)
		}
		l.next()
	}
}

func (l *lexer) runNumber() Token {
	runDigit := func() {
		for isDigit(l.peek()) {
			l.next()
		}
	}

	runDigit()

	if l.peek() == '.' {
		l.next()
		runDigit()
	}

	switch l.peek() {
	case 'E', 'e':
		l.next()
		if r := l.peek(); r == '-' || r == '+' {
			l.next()
		}
		runDigit()
	}
	return l.emit(NUMBER)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r' || r == '\f'
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || (r >= utf8.RuneSelf && unicode.IsLetter(r))
}

func isCharacter(r rune) bool {
	return isDigit(r) || isLetter(r) || r == '$'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
