package translate

import "fmt"

// TokenType represents the type of a lexical token.
type TokenType int

//nolint:revive // TOKEN_* names are intentionally ALL_CAPS for SQL token conventions
const (
	TOKEN_EOF TokenType = iota
	TOKEN_ILLEGAL

	TOKEN_IDENT  // bare or double-quoted identifier
	TOKEN_NUMBER // 123, 45.67, 1e10
	TOKEN_STRING // 'hello'

	TOKEN_PLUS    // +
	TOKEN_MINUS   // -
	TOKEN_STAR    // *
	TOKEN_SLASH   // /
	TOKEN_PERCENT // %
	TOKEN_DPIPE   // ||
	TOKEN_EQ      // =
	TOKEN_NE      // != or <>
	TOKEN_LT      // <
	TOKEN_GT      // >
	TOKEN_LE      // <=
	TOKEN_GE      // >=
	TOKEN_COMMA   // ,
	TOKEN_LPAREN  // (
	TOKEN_RPAREN  // )

	// Keywords
	TOKEN_AND
	TOKEN_OR
	TOKEN_NOT
	TOKEN_IS
	TOKEN_IN
	TOKEN_LIKE
	TOKEN_NULL
	TOKEN_TRUE
	TOKEN_FALSE
)

var keywords = map[string]TokenType{
	"and":   TOKEN_AND,
	"or":    TOKEN_OR,
	"not":   TOKEN_NOT,
	"is":    TOKEN_IS,
	"in":    TOKEN_IN,
	"like":  TOKEN_LIKE,
	"null":  TOKEN_NULL,
	"true":  TOKEN_TRUE,
	"false": TOKEN_FALSE,
}

// LookupIdent checks if an identifier is a keyword.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return TOKEN_IDENT
}

// Token is a lexical token with its source offset.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int
	Quoted  bool // identifier was double-quoted in the source
}

func (t Token) String() string {
	return fmt.Sprintf("%d:%q", t.Type, t.Literal)
}
