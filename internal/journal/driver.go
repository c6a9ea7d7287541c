package journal

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/qualia-db/qualia/pkg/log"
	"github.com/qustavo/sqlhooks/v2"
)

const driverName = "sqlite3_qualia"

var registerOnce sync.Once

// registerDriver wires a custom sqlite3 driver once per process: a
// REGEXP(pattern, value) SQL function used by the query compiler's
// phrase matches, plus query tracing through sqlhooks.
func registerDriver() {
	registerOnce.Do(func() {
		base := &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc("REGEXP", regexpMatch, true)
			},
		}
		sql.Register(driverName, sqlhooks.Wrap(base, &traceHooks{}))
	})
}

var regexCache sync.Map // pattern string -> *regexp.Regexp

// regexpMatch implements SQLite's REGEXP operator: `value REGEXP pattern`
// calls regexp(pattern, value). Patterns the query compiler emits for
// word-boundary phrase matches use \p{L}/\p{N} classes instead of \b, so
// boundaries are Unicode-aware rather than ASCII-only (Go's RE2 engine
// treats \b as an ASCII word boundary).
func regexpMatch(pattern, value string) (bool, error) {
	cached, ok := regexCache.Load(pattern)
	var re *regexp.Regexp
	if ok {
		re = cached.(*regexp.Regexp)
	} else {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("invalid query regexp %q: %w", pattern, err)
		}
		regexCache.Store(pattern, compiled)
		re = compiled
	}
	return re.MatchString(value), nil
}

// traceHooks logs query timing through pkg/log, matching
// internal/repository/hooks.go's Hooks, at debug level only.
type traceHooks struct{}

type tsKey struct{}

func (h *traceHooks) Before(ctx context.Context, query string, args ...any) (context.Context, error) {
	log.Debugf("journal: query %s %v", query, args)
	return context.WithValue(ctx, tsKey{}, time.Now()), nil
}

func (h *traceHooks) After(ctx context.Context, query string, args ...any) (context.Context, error) {
	if begin, ok := ctx.Value(tsKey{}).(time.Time); ok {
		log.Debugf("journal: took %s", time.Since(begin))
	}
	return ctx, nil
}
