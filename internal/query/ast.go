// Package query implements the search sublanguage: a small grammar of
// equality, phrase, and between terms joined by commas, parsed to an
// AST and compiled to a SQL filter over the `properties` JSON column.
package query

// Node is one parsed query term or combinator. Implementations are a
// closed set (Empty, EqualityQuery, PhraseQuery, BetweenDatesQuery,
// BetweenNumbersQuery, AndQueries); Compile type-switches over them
// rather than dispatching through a method, and returns an error for a
// node kind its switch does not handle.
type Node interface {
	node()
}

// Empty matches every object (an unfiltered Select/All).
type Empty struct{}

func (Empty) node() {}

// EqualityQuery matches objects where Property equals Value exactly.
type EqualityQuery struct {
	Property string
	Value    string
}

func (EqualityQuery) node() {}

// PhraseQuery matches objects where Property's text contains Phrase as a
// whole word (Unicode word boundaries, see searchindex.WordBoundaryPattern).
type PhraseQuery struct {
	Property string
	Phrase   string
}

func (PhraseQuery) node() {}

// BetweenDatesQuery matches objects where Property, compared as text
// (ISO-8601 strings sort chronologically), falls within [From, To]
// inclusive. Either bound may be the
// zero value to mean "unbounded" on that side.
type BetweenDatesQuery struct {
	Property string
	From, To string
}

func (BetweenDatesQuery) node() {}

// BetweenNumbersQuery matches objects where Property, parsed as a
// number, falls within [From, To] inclusive.
type BetweenNumbersQuery struct {
	Property string
	From, To string
}

func (BetweenNumbersQuery) node() {}

// AndQueries is the comma-joined conjunction of its Children. An empty
// AndQueries matches everything, same as Empty.
type AndQueries struct {
	Children []Node
}

func (AndQueries) node() {}
