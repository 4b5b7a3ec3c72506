package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeBasicStatement(t *testing.T) {
	toks, err := Tokenize(`select remote_host, status_code where status_code = 200;`)
	require.NoError(t, err)

	want := []Type{SELECT, IDENTIFIER, COMMA, IDENTIFIER, WHERE, IDENTIFIER, OPERATOR, INTEGER}
	require.Len(t, toks, len(want))
	for i, w := range want {
		assert.Equal(t, w, toks[i].Type, "token %d", i)
	}
	assert.Equal(t, "remote_host", toks[1].Value, "identifiers keep case")
	assert.Equal(t, "=", toks[6].Value)
}

func TestTokenizeKeywordsCaseInsensitive(t *testing.T) {
	toks, err := Tokenize(`SELECT * FROM x WhErE a BETWEEN 1 AND 2`)
	require.NoError(t, err)
	assert.Equal(t, SELECT, toks[0].Type)
	assert.Equal(t, STAR, toks[1].Type)
	assert.Equal(t, FROM, toks[2].Type)
	assert.Equal(t, WHERE, toks[4].Type)
	assert.Equal(t, BETWEEN, toks[6].Type)
}

func TestTokenizeOperators(t *testing.T) {
	for _, op := range []string{"=", "<>", "<", ">", "<=", ">="} {
		toks, err := Tokenize("a " + op + " b")
		require.NoError(t, err)
		require.Len(t, toks, 3)
		assert.Equal(t, OPERATOR, toks[1].Type)
		assert.Equal(t, op, toks[1].Value)
	}
}

func TestTokenizeStringEscapes(t *testing.T) {
	toks, err := Tokenize(`'line1\nline2\ttab\'quote'`)
	require.NoError(t, err)
	require.Len(t, toks, 1)
	assert.Equal(t, "line1\nline2\ttab'quote", toks[0].Value)
}

func TestTokenizeAggregateKeywords(t *testing.T) {
	toks, err := Tokenize("avg(x)")
	require.NoError(t, err)
	require.Len(t, toks, 4)
	assert.Equal(t, AVG, toks[0].Type)
}

func TestTokenizeUnknownCharacter(t *testing.T) {
	_, err := Tokenize("select @")
	assert.Error(t, err)
}
