// Package searchindex maintains the field-typed index: a record, per
// field name, of the type it was first written with, pinned for the
// lifetime of the database, plus short-hash prefix resolution.
//
// Relevance-ranked full-text search is explicitly out of scope, so this
// index folds into the same embedded relational store the journal uses
// (internal/journal), using SQLite's REGEXP extension (registered in
// internal/journal/driver.go) for simple word-boundary term matching
// instead of a dedicated full-text engine. See DESIGN.md for the full
// justification.
package searchindex

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/qualia-db/qualia/internal/cache"
	"github.com/qualia-db/qualia/internal/fieldschema"
	"github.com/qualia-db/qualia/internal/qerrors"
)

// shortHashCacheSize bounds how many resolved short-hash widenings
// ShortestHash remembers; a handful of recently touched hashes covers
// the common "add a few files, then refer back to them" CLI session.
const shortHashCacheSize = 256

// Index owns the `fields` table: name -> the type it was first written
// with. `db` is shared with the journal (same embedded relational file).
type Index struct {
	db       *sqlx.DB
	readOnly bool

	// degraded is set when field-type drift was tolerated because the
	// database was opened read-only.
	degraded bool

	shortHashes *cache.LRU
}

// Open validates every already-indexed field against its currently
// declared type. A mismatch is fatal unless readOnly is true, in which
// case the mismatch is tolerated and Degraded() reports true so the
// caller can surface a warning.
func Open(db *sqlx.DB, declared map[string]fieldschema.FieldDescriptor, readOnly bool) (*Index, error) {
	idx := &Index{db: db, readOnly: readOnly, shortHashes: cache.New(shortHashCacheSize)}

	type row struct {
		Name string `db:"name"`
		Type string `db:"type"`
	}
	var rows []row
	if err := db.Select(&rows, `SELECT name, type FROM fields`); err != nil {
		return nil, err
	}

	for _, r := range rows {
		desc, ok := declared[r.Name]
		if !ok {
			// Field was written previously but has since been undeclared;
			// nothing to compare against, tolerate silently (plugins may
			// come and go between runs).
			continue
		}
		if string(desc.Type) != r.Type {
			if readOnly {
				idx.degraded = true
				continue
			}
			return nil, &qerrors.FieldConfigChangedError{Field: r.Name, StoredType: r.Type, DeclaredType: string(desc.Type)}
		}
	}

	return idx, nil
}

// Degraded reports whether a field-type mismatch was tolerated at Open
// because the database is read-only.
func (idx *Index) Degraded() bool { return idx.degraded }

// EnsureField records name's type the first time it is written, adding
// new fields lazily, and verifies the pin on every subsequent write.
func (idx *Index) EnsureField(exec sqlx.Ext, serial int64, name string, t fieldschema.FieldType) error {
	var existing sql.NullString
	err := sqlx.Get(exec, &existing, `SELECT type FROM fields WHERE name = ?`, name)
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	if err == sql.ErrNoRows {
		_, err := exec.Exec(`INSERT INTO fields(name, type, first_serial) VALUES (?, ?, ?)`, name, string(t), serial)
		return err
	}

	if existing.String != string(t) {
		return &qerrors.FieldConfigChangedError{Field: name, StoredType: existing.String, DeclaredType: string(t)}
	}
	return nil
}

// StoredType returns the type recorded for a field, if any have been
// written yet.
func (idx *Index) StoredType(name string) (fieldschema.FieldType, bool, error) {
	var t string
	err := idx.db.Get(&t, `SELECT type FROM fields WHERE name = ?`, name)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return fieldschema.FieldType(t), true, nil
}

// ResolveHash expands a (possibly short) hash prefix to the one full
// hash it unambiguously identifies. A prefix shorter than the
// database's recommended minimum short-hash length (4) is still
// resolved exactly as typed: it is the caller's job to ask for at least
// that many characters.
func (idx *Index) ResolveHash(prefix string) (string, error) {
	return idx.resolveExact(prefix)
}

// MatchingHashes returns every full hash beginning with prefix, for
// callers (the `find-hashes` CLI command) that want the full candidate
// list rather than ResolveHash's fail-on-ambiguity behavior.
func (idx *Index) MatchingHashes(prefix string) ([]string, error) {
	return idx.matchesFor(prefix)
}

// matchesFor returns every full hash beginning with prefix.
func (idx *Index) matchesFor(prefix string) ([]string, error) {
	var hashes []string
	err := idx.db.Select(&hashes, `SELECT hash FROM objects WHERE hash LIKE ? ESCAPE '\' ORDER BY hash`, likeEscape(prefix)+"%")
	return hashes, err
}

func (idx *Index) resolveExact(prefix string) (string, error) {
	full, err := idx.matchesFor(prefix)
	if err != nil {
		return "", err
	}
	switch len(full) {
	case 0:
		return "", &qerrors.FileDoesNotExistError{Hash: prefix}
	case 1:
		return full[0], nil
	default:
		return "", &qerrors.AmbiguousHashError{Prefix: prefix}
	}
}

// ShortestHash returns the minimal-length prefix of hash (starting at
// minLen, widening by 2) that resolves back to exactly hash.
func (idx *Index) ShortestHash(hash string, minLen int) (string, error) {
	if cached, ok := idx.shortHashes.Get(hash); ok {
		return cached.(string), nil
	}

	for n := minLen; n <= len(hash); n += 2 {
		candidate := hash[:n]
		full, err := idx.matchesFor(candidate)
		if err != nil {
			return "", err
		}
		if len(full) == 1 && full[0] == hash {
			idx.shortHashes.Put(hash, candidate)
			return candidate, nil
		}
	}
	idx.shortHashes.Put(hash, hash)
	return hash, nil
}

// InvalidateShortHash drops any cached widening for hash. Callers must
// call this whenever a new hash is added that could change the minimal
// unambiguous prefix of an existing one.
func (idx *Index) InvalidateShortHash(hash string) {
	idx.shortHashes.Invalidate(hash)
}

// InvalidateAllShortHashes drops the whole widening cache. A newly added
// hash can turn a previously unambiguous prefix of some other hash
// ambiguous, so this is called on every blob-object insertion rather
// than trying to reason about which entries it could affect.
func (idx *Index) InvalidateAllShortHashes() {
	idx.shortHashes = cache.New(shortHashCacheSize)
}

func likeEscape(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' || c == '_' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(out)
}

// WordBoundaryPattern builds the Unicode-aware word-boundary regex the
// registered REGEXP function (internal/journal/driver.go) expects for a
// phrase match.
func WordBoundaryPattern(phrase string) string {
	return fmt.Sprintf(`(^|[^\p{L}\p{N}_])%s($|[^\p{L}\p{N}_])`, quoteRegex(phrase))
}

func quoteRegex(s string) string {
	special := `\.+*?()|[]{}^$`
	out := make([]byte, 0, len(s)+4)
	for _, r := range s {
		if r < 128 && containsRune(special, r) {
			out = append(out, '\\')
		}
		out = append(out, []byte(string(r))...)
	}
	return string(out)
}

func containsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}
