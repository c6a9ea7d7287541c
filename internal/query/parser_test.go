package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmpty(t *testing.T) {
	node, err := Parse("   ")
	require.NoError(t, err)
	assert.Equal(t, Empty{}, node)
}

func TestParseExactly(t *testing.T) {
	node, err := Parse("p: exactly 5")
	require.NoError(t, err)
	assert.Equal(t, EqualityQuery{Property: "p", Value: "5"}, node)
}

func TestParsePhraseUnquoted(t *testing.T) {
	node, err := Parse("comments: hello world")
	require.NoError(t, err)
	assert.Equal(t, PhraseQuery{Property: "comments", Phrase: "hello world"}, node)
}

func TestParsePhraseQuoted(t *testing.T) {
	node, err := Parse(`p: "a phrase"`)
	require.NoError(t, err)
	assert.Equal(t, PhraseQuery{Property: "p", Phrase: "a phrase"}, node)
}

func TestParseBetweenNumbers(t *testing.T) {
	node, err := Parse("p: between 1 and 2")
	require.NoError(t, err)
	assert.Equal(t, BetweenNumbersQuery{Property: "p", From: "1", To: "2"}, node)
}

func TestParseBetweenDates(t *testing.T) {
	node, err := Parse("p: between dates 2020-01-01 and 2020-12-31")
	require.NoError(t, err)
	assert.Equal(t, BetweenDatesQuery{Property: "p", From: "2020-01-01", To: "2020-12-31"}, node)
}

func TestParseConjunction(t *testing.T) {
	node, err := Parse(`a: exactly 1, b: "two words"`)
	require.NoError(t, err)
	assert.Equal(t, AndQueries{Children: []Node{
		EqualityQuery{Property: "a", Value: "1"},
		PhraseQuery{Property: "b", Phrase: "two words"},
	}}, node)
}

func TestParseFieldNameCharset(t *testing.T) {
	node, err := Parse("file-modified-at.nested_field: exactly x")
	require.NoError(t, err)
	assert.Equal(t, EqualityQuery{Property: "file-modified-at.nested_field", Value: "x"}, node)
}

func TestParseMissingColon(t *testing.T) {
	_, err := Parse("p exactly 5")
	assert.Error(t, err)
}

func TestParseUnterminatedQuote(t *testing.T) {
	_, err := Parse(`p: "unterminated`)
	assert.Error(t, err)
}

func TestParseMissingFieldName(t *testing.T) {
	_, err := Parse(": exactly 5")
	assert.Error(t, err)
}

func TestParseTrailingSpacesTrimmed(t *testing.T) {
	node, err := Parse("p:   spaced value   ")
	require.NoError(t, err)
	assert.Equal(t, PhraseQuery{Property: "p", Phrase: "spaced value"}, node)
}
