package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func lexAll(input string) []token {
	l := newLexer(input)
	var tokens []token
	for {
		tok := l.next()
		if tok.kind == tokenEOF {
			return tokens
		}
		tokens = append(tokens, tok)
	}
}

func kinds(tokens []token) []tokenKind {
	out := make([]tokenKind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.kind
	}
	return out
}

func TestLexer_Words(t *testing.T) {
	tokens := lexAll("SELECT name FROM artist_2 WHERE id = 10")
	assert.Equal(t, []tokenKind{
		tokenWord, tokenWord, tokenWord, tokenWord,
		tokenWord, tokenWord, tokenSymbol, tokenNumber,
	}, kinds(tokens))
	assert.Equal(t, "artist_2", tokens[3].literal)
}

func TestLexer_StringLiteralIsOpaque(t *testing.T) {
	tokens := lexAll("SELECT 'DROP TABLE x; DELETE'")
	assert.Equal(t, []tokenKind{tokenWord, tokenString}, kinds(tokens))
}

func TestLexer_QuotedIdentifiers(t *testing.T) {
	tokens := lexAll("SELECT \"drop\", `update`, [delete]")
	assert.Equal(t, []tokenKind{
		tokenWord, tokenQuotedIdent, tokenSymbol,
		tokenQuotedIdent, tokenSymbol, tokenQuotedIdent,
	}, kinds(tokens))
}

func TestLexer_CommentsSkipped(t *testing.T) {
	tokens := lexAll("-- line\nSELECT /* block\nspanning */ 1")
	assert.Equal(t, []tokenKind{tokenWord, tokenNumber}, kinds(tokens))
}

func TestLexer_UnterminatedBlockComment(t *testing.T) {
	tokens := lexAll("SELECT 1 /* never closed")
	assert.Equal(t, []tokenKind{tokenWord, tokenNumber}, kinds(tokens))
}

func TestLexer_SemicolonOffsets(t *testing.T) {
	input := "SELECT 1;"
	tokens := lexAll(input)
	last := tokens[len(tokens)-1]
	assert.Equal(t, tokenSemicolon, last.kind)
	assert.Equal(t, len(input)-1, last.offset)
}

func TestLexer_DoubledQuoteEscape(t *testing.T) {
	tokens := lexAll("'it''s'")
	assert.Equal(t, []tokenKind{tokenString}, kinds(tokens))
	assert.Equal(t, "'it''s'", tokens[0].literal)
}
