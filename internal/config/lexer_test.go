package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexerBasicTokens(t *testing.T) {
	lex := NewLexer("secret = 'hello'")

	tok, err := lex.NextToken()
	require.NoError(t, err)
	assert.Equal(t, TokSecret, tok.Kind)

	tok, err = lex.NextToken()
	require.NoError(t, err)
	assert.Equal(t, TokEq, tok.Kind)

	tok, err = lex.NextToken()
	require.NoError(t, err)
	assert.Equal(t, TokStr, tok.Kind)
	assert.Equal(t, "hello", tok.Str)

	tok, err = lex.NextToken()
	require.NoError(t, err)
	assert.Equal(t, TokEOF, tok.Kind)
}

func TestLexerYesNo(t *testing.T) {
	lex := NewLexer("'yes' 'no'")
	tok, _ := lex.NextToken()
	assert.Equal(t, TokYes, tok.Kind)
	tok, _ = lex.NextToken()
	assert.Equal(t, TokNo, tok.Kind)
}

func TestLexerFixedVariants(t *testing.T) {
	lex := NewLexer("fixed null fixed quoted fixed unquoted fixed")
	kinds := []TokenKind{TokFixedNull, TokFixedQuoted, TokFixedUnquoted, TokFixed}
	for _, want := range kinds {
		tok, err := lex.NextToken()
		require.NoError(t, err)
		assert.Equal(t, want, tok.Kind)
	}
}

func TestLexerSeparatedBy(t *testing.T) {
	lex := NewLexer("separated by ','")
	tok, err := lex.NextToken()
	require.NoError(t, err)
	assert.Equal(t, TokSeparatedBy, tok.Kind)
	tok, err = lex.NextToken()
	require.NoError(t, err)
	assert.Equal(t, ",", tok.Str)
}

func TestLexerIdentifier(t *testing.T) {
	lex := NewLexer("`my_table`")
	tok, err := lex.NextToken()
	require.NoError(t, err)
	assert.Equal(t, TokIdent, tok.Kind)
	assert.Equal(t, "my_table", tok.Str)
}

func TestLexerLength(t *testing.T) {
	lex := NewLexer("32")
	tok, err := lex.NextToken()
	require.NoError(t, err)
	assert.Equal(t, TokLength, tok.Kind)
	assert.Equal(t, 32, tok.Length)
}

func TestLexerLengthTooLong(t *testing.T) {
	lex := NewLexer("33")
	_, err := lex.NextToken()
	assert.Error(t, err)
}

func TestLexerCommentsAndWhitespace(t *testing.T) {
	lex := NewLexer("# comment\nsecret  # inline\n= 'x'")
	tok, err := lex.NextToken()
	require.NoError(t, err)
	assert.Equal(t, TokSecret, tok.Kind)
	tok, err = lex.NextToken()
	require.NoError(t, err)
	assert.Equal(t, TokEq, tok.Kind)
	tok, err = lex.NextToken()
	require.NoError(t, err)
	assert.Equal(t, "x", tok.Str)
}

func TestLexerLineTracking(t *testing.T) {
	lex := NewLexer("secret\n=\n'val'")
	_, err := lex.NextToken()
	require.NoError(t, err)
	assert.Equal(t, 1, lex.Line())
	_, err = lex.NextToken()
	require.NoError(t, err)
	assert.Equal(t, 2, lex.Line())
	_, err = lex.NextToken()
	require.NoError(t, err)
	assert.Equal(t, 3, lex.Line())
}

func TestLexerRegexKeyword(t *testing.T) {
	lex := NewLexer("regex `pattern`")
	tok, err := lex.NextToken()
	require.NoError(t, err)
	assert.Equal(t, TokRegex, tok.Kind)
	tok, err = lex.NextToken()
	require.NoError(t, err)
	assert.Equal(t, "pattern", tok.Str)
}

func TestLexerEmptyString(t *testing.T) {
	lex := NewLexer("''")
	tok, err := lex.NextToken()
	require.NoError(t, err)
	assert.Equal(t, TokStr, tok.Kind)
	assert.Equal(t, "", tok.Str)
}

func TestLexerPeekTokenDoesNotAdvance(t *testing.T) {
	lex := NewLexer("secret = 'hi'")
	peeked, err := lex.PeekToken()
	require.NoError(t, err)
	assert.Equal(t, TokSecret, peeked.Kind)

	tok, err := lex.NextToken()
	require.NoError(t, err)
	assert.Equal(t, TokSecret, tok.Kind)
}
