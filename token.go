package pgdelta

type token int

const (
	EOF token = iota
	ILLEGAL
	SPACE
	COMMENT
	IDENT
	QUOTED_IDENT
	STRING
	DOLLAR_STRING
	NUMBER
	LPAREN
	RPAREN
	COMMA
	DOT
	SEMICOLON
	EQUAL
	OPERATOR
)

var tokenNames = [...]string{
	EOF:           "EOF",
	ILLEGAL:       "ILLEGAL",
	SPACE:         "SPACE",
	COMMENT:       "COMMENT",
	IDENT:         "IDENT",
	QUOTED_IDENT:  "QUOTED_IDENT",
	STRING:        "STRING",
	DOLLAR_STRING: "DOLLAR_STRING",
	NUMBER:        "NUMBER",
	LPAREN:        "LPAREN",
	RPAREN:        "RPAREN",
	COMMA:         "COMMA",
	DOT:           "DOT",
	SEMICOLON:     "SEMICOLON",
	EQUAL:         "EQUAL",
	OPERATOR:      "OPERATOR",
}

func (t token) String() string {
	if int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return "token(?)"
}

// Token is a single lexical element. Value holds the exact source text
// of the token, quotes included.
type Token struct {
	Type  token
	Value string
	Pos   int
	EOF   bool
}
