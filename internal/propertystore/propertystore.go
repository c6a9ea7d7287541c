// Package propertystore implements a schemaless property map per object
// (optionally backed by a blob, via a nullable `hash` column), with the
// "read affected objects, then mutate, then journal" discipline undo
// depends on.
package propertystore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/qualia-db/qualia/internal/fieldschema"
	"github.com/qualia-db/qualia/internal/journal"
	"github.com/qualia-db/qualia/internal/qerrors"
	"github.com/qualia-db/qualia/internal/query"
	"github.com/qualia-db/qualia/internal/searchindex"
)

// Properties is the public shape of one object's property map, with its
// identity folded in for iteration.
type Properties map[string]any

// Store owns the `objects` table.
type Store struct {
	db       *sqlx.DB
	j        *journal.Journal
	idx      *searchindex.Index
	registry *fieldschema.Registry
}

func New(db *sqlx.DB, j *journal.Journal, idx *searchindex.Index, registry *fieldschema.Registry) *Store {
	return &Store{db: db, j: j, idx: idx, registry: registry}
}

func objectKey(id int64) string { return strconv.FormatInt(id, 10) }

// validate checks every field in props against the registry, returning
// *qerrors.FieldDoesNotExistError for undeclared fields.
func (s *Store) validate(props Properties) error {
	for name := range props {
		if _, ok := s.registry.Get(name); !ok {
			return &qerrors.FieldDoesNotExistError{Field: name}
		}
	}
	return nil
}

func (s *Store) ensureFields(exec sqlx.Ext, serial int64, props Properties) error {
	for name, value := range props {
		desc, _ := s.registry.Get(name)
		if err := s.idx.EnsureField(exec, serial, name, desc.Type); err != nil {
			return err
		}
		_ = value
	}
	return nil
}

// Add inserts a new property-only object, journals an `add` whose
// previous state is the empty map, and returns its object_id.
func (s *Store) Add(props Properties) (int64, error) {
	if props == nil {
		props = Properties{}
	}
	if err := s.validate(props); err != nil {
		return 0, err
	}

	raw, err := json.Marshal(props)
	if err != nil {
		return 0, err
	}

	res, err := s.db.Exec(`INSERT INTO objects(properties) VALUES (?)`, string(raw))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	serial, err := s.j.Append(objectKey(id), journal.ActionAdd, []byte("{}"), nil, nil)
	if err != nil {
		return 0, err
	}
	if err := s.ensureFields(s.db, serial, props); err != nil {
		return 0, err
	}

	return id, nil
}

// AddBlobObject is Add's blob-object counterpart: the row carries a
// non-null unique hash, so blob objects and property-only objects can
// coexist under two separate identity schemes.
func (s *Store) AddBlobObject(hash string, props Properties) (int64, error) {
	if props == nil {
		props = Properties{}
	}
	if err := s.validate(props); err != nil {
		return 0, err
	}

	raw, err := json.Marshal(props)
	if err != nil {
		return 0, err
	}

	res, err := s.db.Exec(`INSERT INTO objects(hash, properties) VALUES (?, ?)`, hash, string(raw))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	serial, err := s.j.Append(hash, journal.ActionAdd, nil, nil, nil)
	if err != nil {
		return 0, err
	}
	if err := s.ensureFields(s.db, serial, props); err != nil {
		return 0, err
	}
	s.idx.InvalidateAllShortHashes()

	return id, nil
}

// SetField writes a single field on a blob object, journaling an
// ActionSet row with the previous scalar value (or none), batching one
// change per field.
func (s *Store) SetField(hash, field string, value any, source string) error {
	desc, ok := s.registry.Get(field)
	if !ok {
		return &qerrors.FieldDoesNotExistError{Field: field}
	}

	var current Properties
	if err := s.db.Get((*jsonProps)(&current), `SELECT properties FROM objects WHERE hash = ?`, hash); err != nil {
		if err == sql.ErrNoRows {
			return &qerrors.FileDoesNotExistError{Hash: hash}
		}
		return err
	}

	if prior, had := current[field]; had {
		if desc.ReadOnly {
			return &qerrors.FieldReadOnlyError{Field: field}
		}
		_ = prior
	}

	var previous []byte
	if prior, had := current[field]; had {
		previous, _ = json.Marshal(prior)
	}

	current[field] = value
	raw, err := json.Marshal(current)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(`UPDATE objects SET properties = ? WHERE hash = ?`, string(raw), hash); err != nil {
		return err
	}

	extra, err := json.Marshal(journal.SetPayload{Field: field, Source: source})
	if err != nil {
		return err
	}

	serial, err := s.j.Append(hash, journal.ActionSet, previous, extra, nil)
	if err != nil {
		return err
	}
	return s.idx.EnsureField(s.db, serial, field, desc.Type)
}

// jsonProps unmarshals a JSON TEXT column directly into a Properties map
// via database/sql.Scanner, so sqlx.Get can populate it in one call.
type jsonProps Properties

func (p *jsonProps) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case nil:
		*p = jsonProps{}
		return nil
	default:
		return fmt.Errorf("propertystore: cannot scan %T into Properties", src)
	}
	m := Properties{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	*p = jsonProps(m)
	return nil
}

// All returns a Subset matching every object.
func (s *Store) All() *Subset {
	return &Subset{store: s, node: query.Empty{}}
}

// Select returns a Subset matching an equality conjunction over the
// given fields.
func (s *Store) Select(equalities map[string]string) *Subset {
	children := make([]query.Node, 0, len(equalities))
	for k, v := range equalities {
		children = append(children, query.EqualityQuery{Property: k, Value: v})
	}
	return &Subset{store: s, node: query.AndQueries{Children: children}}
}

// Query parses text and returns the matching Subset.
func (s *Store) Query(text string) (*Subset, error) {
	node, err := query.Parse(text)
	if err != nil {
		return nil, err
	}
	return &Subset{store: s, node: node}, nil
}

// Subset is a lazy, re-iterable view produced by a query/selection, the
// target of bulk delete/update.
type Subset struct {
	store *Store
	node  query.Node
}

func (sub *Subset) selectBuilder(columns ...string) (sq.SelectBuilder, error) {
	where, args, aliases, err := query.Compile(sub.node, sub.store.aliasResolver())
	if err != nil {
		return sq.SelectBuilder{}, err
	}
	_ = aliases
	return sq.Select(columns...).From("objects").Where(where, args...), nil
}

func (s *Store) aliasResolver() query.AliasResolver {
	return func(name string) string { return name }
}

// Len counts matching objects.
func (sub *Subset) Len() (int, error) {
	b, err := sub.selectBuilder("COUNT(*)")
	if err != nil {
		return 0, err
	}
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := sub.store.db.Get(&n, sqlStr, args...); err != nil {
		return 0, err
	}
	return n, nil
}

// Each streams every matching object's properties (augmented with
// object_id and, if present, hash) to fn. Iteration stops at the first
// error fn returns.
func (sub *Subset) Each(fn func(id int64, hash *string, props Properties) error) error {
	b, err := sub.selectBuilder("object_id", "hash", "properties")
	if err != nil {
		return err
	}
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return err
	}

	rows, err := sub.store.db.Queryx(sqlStr, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var hash sql.NullString
		var raw string
		if err := rows.Scan(&id, &hash, &raw); err != nil {
			return err
		}
		props := Properties{}
		if err := json.Unmarshal([]byte(raw), &props); err != nil {
			return err
		}
		var hp *string
		if hash.Valid {
			h := hash.String
			hp = &h
		}
		if err := fn(id, hp, props); err != nil {
			return err
		}
	}
	return rows.Err()
}

// All materializes Each into a slice for callers that want eager
// evaluation (small result sets, e.g. CLI output).
func (sub *Subset) All() ([]Properties, error) {
	var out []Properties
	err := sub.Each(func(id int64, hash *string, props Properties) error {
		augmented := Properties{}
		for k, v := range props {
			augmented[k] = v
		}
		augmented["object_id"] = id
		if hash != nil {
			augmented["hash"] = *hash
		}
		out = append(out, augmented)
		return nil
	})
	return out, err
}

// Delete reads every currently-matching object's full properties, then
// deletes it, journaling a `delete` whose previous is the read-back map.
// The read must happen before the delete or undo would have nothing to
// restore.
func (sub *Subset) Delete() error {
	type affected struct {
		id    int64
		hash  *string
		props Properties
	}
	var rows []affected
	if err := sub.Each(func(id int64, hash *string, props Properties) error {
		rows = append(rows, affected{id, hash, props})
		return nil
	}); err != nil {
		return err
	}

	for _, r := range rows {
		if _, err := sub.store.db.Exec(`DELETE FROM objects WHERE object_id = ?`, r.id); err != nil {
			return err
		}

		previous, err := json.Marshal(r.props)
		if err != nil {
			return err
		}

		key := objectKey(r.id)
		if r.hash != nil {
			key = *r.hash
		}
		if _, err := sub.store.j.Append(key, journal.ActionDelete, previous, nil, nil); err != nil {
			return err
		}
	}
	return nil
}

// Update deep-merges patch into every currently-matching object
// (JSON-merge-patch semantics: a `nil` value in patch removes that key),
// journaling an `update` whose previous is the pre-patch map.
func (sub *Subset) Update(patch Properties) error {
	for name := range patch {
		if _, ok := sub.store.registry.Get(name); !ok {
			return &qerrors.FieldDoesNotExistError{Field: name}
		}
	}

	type affected struct {
		id    int64
		hash  *string
		props Properties
	}
	var rows []affected
	if err := sub.Each(func(id int64, hash *string, props Properties) error {
		rows = append(rows, affected{id, hash, props})
		return nil
	}); err != nil {
		return err
	}

	for _, r := range rows {
		merged := Properties{}
		for k, v := range r.props {
			merged[k] = v
		}
		for k, v := range patch {
			if v == nil {
				delete(merged, k)
			} else {
				merged[k] = v
			}
		}

		raw, err := json.Marshal(merged)
		if err != nil {
			return err
		}
		if _, err := sub.store.db.Exec(`UPDATE objects SET properties = ? WHERE object_id = ?`, string(raw), r.id); err != nil {
			return err
		}

		previous, err := json.Marshal(r.props)
		if err != nil {
			return err
		}

		key := objectKey(r.id)
		if r.hash != nil {
			key = *r.hash
		}
		serial, err := sub.store.j.Append(key, journal.ActionUpdate, previous, nil, nil)
		if err != nil {
			return err
		}
		if err := sub.store.ensureFields(sub.store.db, serial, patch); err != nil {
			return err
		}
	}
	return nil
}

var _ = time.Now
