// Package database assembles the blob store, journal, property store,
// search index, and field schema into a single facade exposing
// open/close/add/select/query/commit/undo.
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/qualia-db/qualia/internal/blobstore"
	"github.com/qualia-db/qualia/internal/fieldschema"
	"github.com/qualia-db/qualia/internal/journal"
	"github.com/qualia-db/qualia/internal/propertystore"
	"github.com/qualia-db/qualia/internal/qerrors"
	"github.com/qualia-db/qualia/internal/searchindex"
	"github.com/qualia-db/qualia/pkg/log"
)

// shortHashMinLen is the starting width for prefix widening.
const shortHashMinLen = 4

// Facade is the single entry point a CLI or other frontend talks to.
type Facade struct {
	root     string
	readOnly bool
	degraded bool

	blobs    *blobstore.Store // nil in single-file ("object store only") mode
	journal  *journal.Journal
	index    *searchindex.Index
	props    *propertystore.Store
	registry *fieldschema.Registry
}

// Open opens (creating if necessary) the database rooted at path.
//
// If path ends in ".qualia" it is treated as "object store only"
// single-file mode: one embedded relational file, no blob storage.
// Otherwise path is a directory with `files/`, `journal`, and `state`
// (`search/` is folded into `journal`, per internal/searchindex's doc
// comment). configPath overrides where the field schema config is read
// from (the `--config` CLI flag); an empty configPath falls back to
// `<path>/state` in directory mode and to fieldschema.DefaultConfigPath()
// in single-file mode.
func Open(path string, readOnly bool, configPath string) (*Facade, error) {
	if strings.HasSuffix(path, ".qualia") {
		return openSingleFile(path, readOnly, configPath)
	}
	return openDirectory(path, readOnly, configPath)
}

func openDirectory(root string, readOnly bool, configPath string) (*Facade, error) {
	if !readOnly {
		if err := os.MkdirAll(root, 0o777); err != nil {
			return nil, err
		}
	}

	registry := fieldschema.NewRegistry()
	statePath := configPath
	if statePath == "" {
		statePath = filepath.Join(root, "state")
	}
	aliases, err := registry.Load(statePath)
	if err != nil {
		return nil, err
	}

	j, err := journal.Open(filepath.Join(root, "journal"), readOnly)
	if err != nil {
		return nil, err
	}

	blobs, err := blobstore.New(root)
	if err != nil {
		j.Close()
		return nil, err
	}

	return assemble(root, readOnly, j, blobs, registry, aliases)
}

func openSingleFile(path string, readOnly bool, configPath string) (*Facade, error) {
	registry := fieldschema.NewRegistry()

	if configPath == "" {
		configPath = fieldschema.DefaultConfigPath()
	}
	aliases, err := registry.Load(configPath)
	if err != nil {
		return nil, err
	}

	j, err := journal.Open(path, readOnly)
	if err != nil {
		return nil, err
	}

	return assemble(path, readOnly, j, nil, registry, aliases)
}

func assemble(root string, readOnly bool, j *journal.Journal, blobs *blobstore.Store, registry *fieldschema.Registry, aliases map[string]string) (*Facade, error) {
	idx, err := searchindex.Open(j.DB, registry.Fields, readOnly)
	if err != nil {
		j.Close()
		return nil, err
	}

	f := &Facade{
		root:     root,
		readOnly: readOnly || idx.Degraded(),
		degraded: idx.Degraded(),
		blobs:    blobs,
		journal:  j,
		index:    idx,
		registry: registry,
	}
	j.ReadOnly = f.readOnly
	f.props = propertystore.New(j.DB, j, idx, registry)

	if f.degraded {
		log.Warnf("database: field schema drift tolerated, reopened %q read-only", root)
	}
	_ = aliases

	return f, nil
}

func (f *Facade) Close() error {
	return f.journal.Close()
}

// ReadOnly reports whether mutating operations are refused, either
// because the caller asked for read-only or because schema drift forced
// a downgrade.
func (f *Facade) ReadOnly() bool { return f.readOnly }

// Degraded reports whether this session tolerated field-type drift.
func (f *Facade) Degraded() bool { return f.degraded }

// Registry exposes the field schema for CLI commands that list/declare
// fields.
func (f *Facade) Registry() *fieldschema.Registry { return f.registry }

// Add creates a property-only object: a row with no backing blob.
func (f *Facade) Add(props propertystore.Properties) (int64, error) {
	if f.readOnly {
		return 0, &qerrors.DatabaseReadOnlyError{}
	}
	return f.props.Add(props)
}

// AddFile hashes and stores file bytes, then creates a blob object
// carrying any initial properties.
func (f *Facade) AddFile(sourcePath string, move bool, props propertystore.Properties) (hash string, err error) {
	if f.readOnly {
		return "", &qerrors.DatabaseReadOnlyError{}
	}
	if f.blobs == nil {
		return "", &qerrors.ConstrainedError{Path: "mode", Message: "blob storage is unavailable in single-file mode"}
	}

	hash, err = f.blobs.AddFile(sourcePath, move)
	if err != nil {
		return "", err
	}

	if props == nil {
		props = propertystore.Properties{}
	}
	if _, err := f.props.AddBlobObject(hash, props); err != nil {
		return "", err
	}
	return hash, nil
}

// Select returns objects matching an equality conjunction.
func (f *Facade) Select(equalities map[string]string) *propertystore.Subset {
	return f.props.Select(equalities)
}

// All returns every object.
func (f *Facade) All() *propertystore.Subset {
	return f.props.All()
}

// Query parses the search sublanguage and returns the matching objects.
func (f *Facade) Query(text string) (*propertystore.Subset, error) {
	return f.props.Query(text)
}

// SetField writes one field on a blob object by hash (resolving a short
// hash first).
func (f *Facade) SetField(hashPrefix, field string, value any, source string) error {
	if f.readOnly {
		return &qerrors.DatabaseReadOnlyError{}
	}
	hash, err := f.ResolveHash(hashPrefix)
	if err != nil {
		return err
	}
	return f.props.SetField(hash, field, value, source)
}

// ResolveHash expands a short hash to the one full hash it identifies.
func (f *Facade) ResolveHash(prefix string) (string, error) {
	return f.index.ResolveHash(prefix)
}

// MatchingHashes lists every full hash beginning with prefix, the
// `find-hashes` CLI command's data source.
func (f *Facade) MatchingHashes(prefix string) ([]string, error) {
	return f.index.MatchingHashes(prefix)
}

// ShortestHash returns the minimal unambiguous prefix of hash.
func (f *Facade) ShortestHash(hash string) (string, error) {
	return f.index.ShortestHash(hash, shortHashMinLen)
}

// Exists reports whether prefix resolves to exactly one stored hash.
func (f *Facade) Exists(prefix string) bool {
	_, err := f.ResolveHash(prefix)
	return err == nil
}

// OpenBlob returns a reader for a blob object's bytes, resolving a short
// hash first.
func (f *Facade) OpenBlob(hashPrefix string) (*os.File, string, error) {
	if f.blobs == nil {
		return nil, "", &qerrors.ConstrainedError{Path: "mode", Message: "blob storage is unavailable in single-file mode"}
	}
	hash, err := f.ResolveHash(hashPrefix)
	if err != nil {
		return nil, "", err
	}
	file, err := f.blobs.Open(hash)
	return file, hash, err
}

// Delete removes the blob (if any) and the object row for hashPrefix.
// Only the row's deletion is journaled; the blob unlink is not. Deleting a blob object is not undoable: once its
// content-addressed bytes are unlinked there is nothing left to
// reconstruct them from, so Undo fails the whole checkpoint rather than
// resurrecting a row with a dangling hash. Deleting a property-only
// object (no backing blob) can still be undone.
func (f *Facade) Delete(hashPrefix string) error {
	if f.readOnly {
		return &qerrors.DatabaseReadOnlyError{}
	}
	hash, err := f.ResolveHash(hashPrefix)
	if err != nil {
		return err
	}

	if err := f.props.Select(map[string]string{"hash": hash}).Delete(); err != nil {
		return err
	}

	if f.blobs != nil && f.blobs.Exists(hash) {
		if err := f.blobs.Delete(hash); err != nil {
			return err
		}
	}
	return nil
}

// Commit flushes pending journal changes into a new checkpoint.
func (f *Facade) Commit() (checkpointID int64, created bool, err error) {
	if f.readOnly {
		return 0, false, &qerrors.DatabaseReadOnlyError{}
	}
	return f.journal.Commit()
}

// Undo inverts the last checkpoint (or a specific one), a no-op if none
// exists.
func (f *Facade) Undo(checkpointID *int64) error {
	if f.readOnly {
		return &qerrors.DatabaseReadOnlyError{}
	}
	return f.journal.Undo(checkpointID, f)
}

// Log returns every checkpoint, most recent first (the `qualia log` CLI
// command's data source).
func (f *Facade) Log() ([]journal.Checkpoint, error) {
	return f.journal.AllCheckpoints(true)
}

// Changes returns the raw change rows belonging to one checkpoint, in
// ascending serial order (the `qualia dump journal` CLI command's data
// source).
func (f *Facade) Changes(checkpointID int64) ([]journal.ChangeRecord, error) {
	return f.journal.TransactionsOf(checkpointID)
}

// RestoreAutoMetadata reverts, per field, the latest `set` journaled for
// a blob object in the last checkpoint back to its prior value; sets in
// earlier checkpoints or not yet committed are not examined. When
// onlyAuto is true,
// entries whose recorded source is not "auto" are skipped, so a manual
// edit is never clobbered by a stale revert.
func (f *Facade) RestoreAutoMetadata(hashPrefix string, onlyAuto bool) error {
	if f.readOnly {
		return &qerrors.DatabaseReadOnlyError{}
	}
	hash, err := f.ResolveHash(hashPrefix)
	if err != nil {
		return err
	}

	cp, ok, err := f.journal.LastCheckpoint()
	if err != nil {
		return err
	}
	var records []journal.ChangeRecord
	if ok {
		records, err = f.journal.TransactionsOf(cp.CheckpointID)
	} else {
		records, err = f.journal.TransactionsOf(0)
	}
	if err != nil {
		return err
	}

	latest := map[string]journal.ChangeRecord{}
	for _, r := range records {
		if r.ObjectKey != hash || r.Action != journal.ActionSet {
			continue
		}
		var payload journal.SetPayload
		if err := journal.Decode(r.ExtraBlob, &payload); err != nil {
			return err
		}
		if onlyAuto && payload.Source != "auto" {
			continue
		}
		latest[payload.Field] = r
	}

	for field, r := range latest {
		var payload journal.SetPayload
		if err := journal.Decode(r.ExtraBlob, &payload); err != nil {
			return err
		}
		var value any
		if err := journal.Decode(r.PreviousBlob, &value); err != nil {
			return err
		}
		if err := f.props.SetField(hash, field, value, payload.Source); err != nil {
			return err
		}
	}
	return nil
}

// --- journal.Undoer -------------------------------------------------

func (f *Facade) UndoAdd(tx *sqlx.Tx, objectKey string, previous []byte) error {
	return f.execByKey(tx, `DELETE FROM objects WHERE hash = ?`, `DELETE FROM objects WHERE object_id = ?`, objectKey)
}

func (f *Facade) UndoUpdate(tx *sqlx.Tx, objectKey string, previous []byte) error {
	return f.writeProperties(tx, objectKey, previous)
}

// UndoDelete only reverses a property-only delete (objectKey parses as a
// decimal object_id). A blob object's delete checkpoint cannot be
// undone: by the time this runs, Delete has already unlinked the
// content-addressed bytes the row's hash pointed at, and there is
// nothing left on disk to reattach the row to.
func (f *Facade) UndoDelete(tx *sqlx.Tx, objectKey string, previous []byte) error {
	id, err := strconv.ParseInt(objectKey, 10, 64)
	if err != nil {
		return fmt.Errorf("delete of blob object %s is not invertible", objectKey)
	}

	var props map[string]any
	if err := journal.Decode(previous, &props); err != nil {
		return err
	}
	raw, err := journal.Encode(props)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`INSERT INTO objects(object_id, properties) VALUES (?, ?)`, id, string(raw))
	return err
}

func (f *Facade) UndoSet(tx *sqlx.Tx, objectKey string, extra []byte, previous []byte, hadPrevious bool) error {
	var payload journal.SetPayload
	if err := journal.Decode(extra, &payload); err != nil {
		return err
	}

	var current map[string]any
	row := tx.QueryRow(`SELECT properties FROM objects WHERE hash = ?`, objectKey)
	var raw string
	if err := row.Scan(&raw); err != nil {
		return err
	}
	if err := journal.Decode([]byte(raw), &current); err != nil {
		return err
	}

	if hadPrevious {
		var value any
		if err := journal.Decode(previous, &value); err != nil {
			return err
		}
		current[payload.Field] = value
	} else {
		delete(current, payload.Field)
	}

	encoded, err := journal.Encode(current)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`UPDATE objects SET properties = ? WHERE hash = ?`, string(encoded), objectKey)
	return err
}

func (f *Facade) writeProperties(tx *sqlx.Tx, objectKey string, previous []byte) error {
	var props map[string]any
	if err := journal.Decode(previous, &props); err != nil {
		return err
	}
	raw, err := journal.Encode(props)
	if err != nil {
		return err
	}
	return f.execByKey(tx, `UPDATE objects SET properties = ? WHERE hash = ?`, `UPDATE objects SET properties = ? WHERE object_id = ?`, objectKey, string(raw))
}

// execByKey runs byHash against the hash column; if that touches no
// rows (objectKey is a decimal object_id, not a hash - property-only
// objects have no hash) it falls back to byID with objectKey parsed as
// an integer. Journal rows don't record which identity scheme an object
// key uses, so undo must try both.
func (f *Facade) execByKey(tx *sqlx.Tx, byHash, byID, objectKey string, extraArgs ...any) error {
	hashArgs := append(append([]any{}, extraArgs...), objectKey)
	res, err := tx.Exec(byHash, hashArgs...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n > 0 {
		return nil
	}

	id, err := strconv.ParseInt(objectKey, 10, 64)
	if err != nil {
		return nil
	}
	idArgs := append(append([]any{}, extraArgs...), id)
	_, err = tx.Exec(byID, idArgs...)
	return err
}
