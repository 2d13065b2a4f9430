package translate

import (
	"strings"
	"unicode"
)

// Lexer tokenizes a calculated-column formula.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}

	pos := l.pos
	var tok Token
	tok.Pos = pos

	switch l.ch {
	case 0:
		tok.Type = TOKEN_EOF
	case '+':
		tok = Token{Type: TOKEN_PLUS, Literal: "+", Pos: pos}
	case '-':
		tok = Token{Type: TOKEN_MINUS, Literal: "-", Pos: pos}
	case '*':
		tok = Token{Type: TOKEN_STAR, Literal: "*", Pos: pos}
	case '/':
		tok = Token{Type: TOKEN_SLASH, Literal: "/", Pos: pos}
	case '%':
		tok = Token{Type: TOKEN_PERCENT, Literal: "%", Pos: pos}
	case '=':
		tok = Token{Type: TOKEN_EQ, Literal: "=", Pos: pos}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TOKEN_LE, Literal: "<=", Pos: pos}
		} else if l.peekChar() == '>' {
			l.readChar()
			tok = Token{Type: TOKEN_NE, Literal: "<>", Pos: pos}
		} else {
			tok = Token{Type: TOKEN_LT, Literal: "<", Pos: pos}
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TOKEN_GE, Literal: ">=", Pos: pos}
		} else {
			tok = Token{Type: TOKEN_GT, Literal: ">", Pos: pos}
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TOKEN_NE, Literal: "!=", Pos: pos}
		} else {
			tok = Token{Type: TOKEN_ILLEGAL, Literal: string(l.ch), Pos: pos}
		}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			tok = Token{Type: TOKEN_DPIPE, Literal: "||", Pos: pos}
		} else {
			tok = Token{Type: TOKEN_ILLEGAL, Literal: string(l.ch), Pos: pos}
		}
	case ',':
		tok = Token{Type: TOKEN_COMMA, Literal: ",", Pos: pos}
	case '(':
		tok = Token{Type: TOKEN_LPAREN, Literal: "(", Pos: pos}
	case ')':
		tok = Token{Type: TOKEN_RPAREN, Literal: ")", Pos: pos}
	case '\'':
		return Token{Type: TOKEN_STRING, Literal: l.readString(), Pos: pos}
	case '"':
		return Token{Type: TOKEN_IDENT, Literal: l.readQuotedIdentifier(), Pos: pos, Quoted: true}
	default:
		if isLetter(l.ch) || l.ch == '_' {
			lit := l.readIdentifier()
			return Token{Type: LookupIdent(strings.ToLower(lit)), Literal: lit, Pos: pos}
		}
		if isDigit(l.ch) {
			return Token{Type: TOKEN_NUMBER, Literal: l.readNumber(), Pos: pos}
		}
		tok = Token{Type: TOKEN_ILLEGAL, Literal: string(l.ch), Pos: pos}
	}

	l.readChar()
	return tok
}

// readString reads a single-quoted string literal.
// Doubled single quotes escape: 'it''s' -> it's
func (l *Lexer) readString() string {
	l.readChar() // skip opening quote

	var result strings.Builder
	for {
		if l.ch == 0 {
			break // unterminated string
		}
		if l.ch == '\'' {
			if l.peekChar() == '\'' {
				result.WriteByte('\'')
				l.readChar()
				l.readChar()
			} else {
				l.readChar() // skip closing quote
				break
			}
		} else {
			result.WriteByte(l.ch)
			l.readChar()
		}
	}
	return result.String()
}

// readQuotedIdentifier reads a double-quoted identifier.
func (l *Lexer) readQuotedIdentifier() string {
	l.readChar() // skip opening quote

	var result strings.Builder
	for {
		if l.ch == 0 {
			break
		}
		if l.ch == '"' {
			if l.peekChar() == '"' {
				result.WriteByte('"')
				l.readChar()
				l.readChar()
			} else {
				l.readChar()
				break
			}
		} else {
			result.WriteByte(l.ch)
			l.readChar()
		}
	}
	return result.String()
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[start:l.pos]
}

func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch))
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
