package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileEquality(t *testing.T) {
	sqlStr, args, fields, err := Compile(EqualityQuery{Property: "filename", Value: "a.txt"}, nil)
	require.NoError(t, err)
	assert.Contains(t, sqlStr, "CAST(json_extract(properties, '$.filename') AS TEXT) = ?")
	assert.Equal(t, []any{"a.txt"}, args)
	assert.ElementsMatch(t, []string{"filename"}, fields)
}

func TestCompileEqualityOnNumberFieldCastsBothSides(t *testing.T) {
	// rating is stored as a JSON number (SQLite INTEGER/REAL storage
	// class); without a cast, comparing it against the always-string
	// bound parameter would never match.
	sqlStr, args, _, err := Compile(EqualityQuery{Property: "rating", Value: "5"}, nil)
	require.NoError(t, err)
	assert.Contains(t, sqlStr, "CAST(json_extract(properties, '$.rating') AS TEXT) = ?")
	assert.Equal(t, []any{"5"}, args)
}

func TestCompileEqualityOnHashUsesRealColumn(t *testing.T) {
	sqlStr, args, _, err := Compile(EqualityQuery{Property: "hash", Value: "abc123"}, nil)
	require.NoError(t, err)
	assert.Contains(t, sqlStr, "CAST(hash AS TEXT) = ?")
	assert.NotContains(t, sqlStr, "json_extract")
	assert.Equal(t, []any{"abc123"}, args)
}

func TestCompileBetweenNumbersOpenEnded(t *testing.T) {
	sqlStr, args, _, err := Compile(BetweenNumbersQuery{Property: "rating", From: "3"}, nil)
	require.NoError(t, err)
	assert.Contains(t, sqlStr, ">= ?")
	assert.Equal(t, []any{"3"}, args)
}

func TestCompileBetweenNumbersBothOpen(t *testing.T) {
	sqlStr, _, _, err := Compile(BetweenNumbersQuery{Property: "rating"}, nil)
	require.NoError(t, err)
	assert.Contains(t, sqlStr, "IS NOT NULL")
}

func TestCompileAliasResolver(t *testing.T) {
	resolve := func(name string) string {
		if name == "fname" {
			return "filename"
		}
		return name
	}
	sqlStr, _, fields, err := Compile(EqualityQuery{Property: "fname", Value: "x"}, resolve)
	require.NoError(t, err)
	assert.Contains(t, sqlStr, "$.filename")
	assert.Equal(t, []string{"filename"}, fields)
}

func TestCompileConjunction(t *testing.T) {
	node := AndQueries{Children: []Node{
		EqualityQuery{Property: "a", Value: "1"},
		EqualityQuery{Property: "b", Value: "2"},
	}}
	sqlStr, args, fields, err := Compile(node, nil)
	require.NoError(t, err)
	assert.Contains(t, sqlStr, "AND")
	assert.Equal(t, []any{"1", "2"}, args)
	assert.ElementsMatch(t, []string{"a", "b"}, fields)
}

func TestCompileEmpty(t *testing.T) {
	sqlStr, args, fields, err := Compile(Empty{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "1 = 1", sqlStr)
	assert.Empty(t, args)
	assert.Empty(t, fields)
}
