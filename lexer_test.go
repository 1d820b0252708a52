package pgdelta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRead(t *testing.T) {
	type Spec struct {
		Input string
		Value string
		Type  token
		EOF   bool
	}

	specs := []Spec{
		// number
		{Input: "123", Value: "123", Type: NUMBER},
		{Input: ".2", Value: ".2", Type: NUMBER},
		{Input: "3.4", Value: "3.4", Type: NUMBER},
		{Input: "1.2E3", Value: "1.2E3", Type: NUMBER},
		{Input: "1.2E-3 ", Value: "1.2E-3", Type: NUMBER},
		// strings keep their quotes
		{Input: `'hoge'`, Value: `'hoge'`, Type: STRING},
		{Input: `'ho''ge' x`, Value: `'ho''ge'`, Type: STRING},
		{Input: `E'ho\'ge'`, Value: `E'ho\'ge'`, Type: STRING},
		// identifiers
		{Input: "hoge_1$x y", Value: "hoge_1$x", Type: IDENT},
		{Input: "e", Value: "e", Type: IDENT},
		{Input: "テーブル", Value: "テーブル", Type: IDENT},
		{Input: `"Hoge"`, Value: `"Hoge"`, Type: QUOTED_IDENT},
		{Input: `"ho""ge"`, Value: `"ho""ge"`, Type: QUOTED_IDENT},
		{Input: "`hoge`", Value: "`hoge`", Type: QUOTED_IDENT},
		// dollar quoting
		{Input: "$$body$$", Value: "$$body$$", Type: DOLLAR_STRING},
		{Input: "$fn$ select $$x$$; $fn$;", Value: "$fn$ select $$x$$; $fn$", Type: DOLLAR_STRING},
		{Input: "$1", Value: "$1", Type: OPERATOR},
		// comments
		{Input: "-- comment\nfoo", Value: "-- comment", Type: COMMENT},
		{Input: "/* a /* b */ c */x", Value: "/* a /* b */ c */", Type: COMMENT},
		// whitespace
		{Input: "  \n\tx", Value: "  \n\t", Type: SPACE},
		// punctuation
		{Input: "(", Value: "(", Type: LPAREN},
		{Input: ")", Value: ")", Type: RPAREN},
		{Input: ",", Value: ",", Type: COMMA},
		{Input: ".", Value: ".", Type: DOT},
		{Input: ";", Value: ";", Type: SEMICOLON},
		{Input: "=", Value: "=", Type: EQUAL},
		{Input: "::text", Value: "::", Type: OPERATOR},
		{Input: "-5", Value: "-", Type: OPERATOR},
		// unterminated
		{Input: `'abc`, Value: `'abc`, Type: ILLEGAL, EOF: true},
		{Input: `"abc`, Value: `"abc`, Type: ILLEGAL, EOF: true},
		{Input: "$x$ abc", Value: "$x$ abc", Type: ILLEGAL, EOF: true},
		{Input: "/* abc", Value: "/* abc", Type: ILLEGAL, EOF: true},
		// end of input
		{Input: "", Value: "", Type: EOF, EOF: true},
	}

	for _, spec := range specs {
		tok := newLexer(spec.Input).read()
		if !assert.Equal(t, spec.Type, tok.Type, "token type for %q", spec.Input) {
			continue
		}
		assert.Equal(t, spec.Value, tok.Value, "token value for %q", spec.Input)
		assert.Equal(t, spec.EOF, tok.EOF, "EOF flag for %q", spec.Input)
	}
}

func TestReadSequence(t *testing.T) {
	l := newLexer("GRANT SELECT ON public.t TO \"Alice\";")

	var types []token
	var values []string
	for {
		tok := l.read()
		if tok.Type == EOF {
			break
		}
		if tok.Type == SPACE {
			continue
		}
		types = append(types, tok.Type)
		values = append(values, tok.Value)
	}

	assert.Equal(t, []token{IDENT, IDENT, IDENT, IDENT, DOT, IDENT, IDENT, QUOTED_IDENT, SEMICOLON}, types)
	assert.Equal(t, []string{"GRANT", "SELECT", "ON", "public", ".", "t", "TO", `"Alice"`, ";"}, values)
}

func TestTokenString(t *testing.T) {
	assert.Equal(t, "DOLLAR_STRING", DOLLAR_STRING.String())
	assert.Equal(t, "token(?)", token(999).String())
}
