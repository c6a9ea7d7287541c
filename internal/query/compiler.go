package query

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/qualia-db/qualia/internal/searchindex"
)

// AliasResolver rewrites a field name the user typed to its canonical
// name before compilation. A resolver that returns its input unchanged
// disables alias rewriting.
type AliasResolver func(name string) string

// Compile turns an AST into a SQL boolean expression (with positional
// '?' placeholders) suitable for squirrel's Where(sql, args...), plus
// the ordered args and the list of canonical field names the query
// touched (for callers that want to lazily pin field types before
// running the query).
//
// Grounded on internal/repository/query.go's BuildWhereClause/
// buildStringCondition family: one builder function per term kind,
// composed with squirrel's sq.And rather than hand-joined strings.
func Compile(node Node, resolve AliasResolver) (string, []any, []string, error) {
	if resolve == nil {
		resolve = func(name string) string { return name }
	}
	touched := map[string]struct{}{}
	sqlizer, err := compileNode(node, resolve, touched)
	if err != nil {
		return "", nil, nil, err
	}

	sqlStr, args, err := sqlizer.ToSql()
	if err != nil {
		return "", nil, nil, err
	}

	fields := make([]string, 0, len(touched))
	for f := range touched {
		fields = append(fields, f)
	}
	return sqlStr, args, fields, nil
}

func compileNode(node Node, resolve AliasResolver, touched map[string]struct{}) (sq.Sqlizer, error) {
	switch n := node.(type) {
	case Empty:
		return sq.Expr("1 = 1"), nil

	case EqualityQuery:
		field := resolve(n.Property)
		touched[field] = struct{}{}
		// The bound parameter is always a string (n.Value), but a
		// number-typed field's JSON value has SQLite's INTEGER/REAL
		// storage class, not TEXT; an uncast comparison between the two
		// affinities never matches, so both sides must land on TEXT.
		return sq.Expr(fieldExprAs(field, "TEXT")+" = ?", n.Value), nil

	case PhraseQuery:
		field := resolve(n.Property)
		touched[field] = struct{}{}
		pattern := searchindex.WordBoundaryPattern(n.Phrase)
		return sq.Expr(fieldExpr(field)+" REGEXP ?", pattern), nil

	case BetweenNumbersQuery:
		field := resolve(n.Property)
		touched[field] = struct{}{}
		return betweenClause(fieldExprAs(field, "REAL"), n.From, n.To)

	case BetweenDatesQuery:
		field := resolve(n.Property)
		touched[field] = struct{}{}
		return betweenClause(fieldExprAs(field, "TEXT"), n.From, n.To)

	case AndQueries:
		if len(n.Children) == 0 {
			return sq.Expr("1 = 1"), nil
		}
		conj := make(sq.And, 0, len(n.Children))
		for _, child := range n.Children {
			compiled, err := compileNode(child, resolve, touched)
			if err != nil {
				return nil, err
			}
			conj = append(conj, compiled)
		}
		return conj, nil

	default:
		return nil, fmt.Errorf("query: unhandled node type %T", node)
	}
}

// realColumns names the fields backed by an actual `objects` column
// rather than a key inside the `properties` JSON blob. "hash" is
// declared in fieldschema.CoreFields like any other field so it can be
// queried the same way, but it lives in its own UNIQUE, indexed column
// (internal/journal/migrations/0001_init.up.sql) rather than being
// duplicated into the JSON blob.
var realColumns = map[string]string{
	"hash": "hash",
}

func jsonExtract(field string) string {
	return fmt.Sprintf("json_extract(properties, '$.%s')", field)
}

func jsonExtractAs(field, sqlType string) string {
	return fmt.Sprintf("CAST(%s AS %s)", jsonExtract(field), sqlType)
}

// fieldExpr is the SQL expression reading field's value, honoring
// realColumns before falling back to the generic JSON property path.
func fieldExpr(field string) string {
	if col, ok := realColumns[field]; ok {
		return col
	}
	return jsonExtract(field)
}

func fieldExprAs(field, sqlType string) string {
	if col, ok := realColumns[field]; ok {
		return fmt.Sprintf("CAST(%s AS %s)", col, sqlType)
	}
	return jsonExtractAs(field, sqlType)
}

// betweenClause builds an inclusive range test, omitting whichever side
// has an empty bound, so either end of a range may be left open.
func betweenClause(expr, from, to string) (sq.Sqlizer, error) {
	switch {
	case from == "" && to == "":
		return sq.Expr(expr + " IS NOT NULL"), nil
	case from == "":
		return sq.Expr(expr+" <= ?", to), nil
	case to == "":
		return sq.Expr(expr+" >= ?", from), nil
	default:
		return sq.Expr(expr+" BETWEEN ? AND ?", from, to), nil
	}
}
