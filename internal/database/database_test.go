package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/qualia-db/qualia/internal/propertystore"
	"github.com/qualia-db/qualia/internal/qerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOpenDirectoryCreatesLayoutAndStoresBlob(t *testing.T) {
	root := filepath.Join(t.TempDir(), "db")
	db, err := Open(root, false, "")
	require.NoError(t, err)
	defer db.Close()

	hash, err := db.AddFile(writeTempFile(t, "hello"), false, propertystore.Properties{"comments": "a note"})
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	_, _, err = db.Commit()
	require.NoError(t, err)

	assert.DirExists(t, filepath.Join(root, "files"))
	assert.FileExists(t, filepath.Join(root, "journal"))

	rows, err := db.Select(map[string]string{"hash": hash}).All()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a note", rows[0]["comments"])
}

func TestOpenSingleFileModeHasNoBlobStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.qualia")
	db, err := Open(path, false, "")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.AddFile(writeTempFile(t, "hello"), false, nil)
	var constrained *qerrors.ConstrainedError
	assert.ErrorAs(t, err, &constrained)

	id, err := db.Add(propertystore.Properties{"comments": "property only"})
	require.NoError(t, err)
	assert.NotZero(t, id)
}

func TestReadOnlyFacadeRejectsMutations(t *testing.T) {
	root := filepath.Join(t.TempDir(), "db")
	rw, err := Open(root, false, "")
	require.NoError(t, err)
	_, err = rw.AddFile(writeTempFile(t, "hello"), false, nil)
	require.NoError(t, err)
	_, _, err = rw.Commit()
	require.NoError(t, err)
	require.NoError(t, rw.Close())

	ro, err := Open(root, true, "")
	require.NoError(t, err)
	defer ro.Close()

	_, err = ro.AddFile(writeTempFile(t, "other"), false, nil)
	var readOnly *qerrors.DatabaseReadOnlyError
	assert.ErrorAs(t, err, &readOnly)

	_, err = ro.Add(propertystore.Properties{"comments": "x"})
	assert.ErrorAs(t, err, &readOnly)
}

func TestUndoAddRemovesObject(t *testing.T) {
	root := filepath.Join(t.TempDir(), "db")
	db, err := Open(root, false, "")
	require.NoError(t, err)
	defer db.Close()

	hash, err := db.AddFile(writeTempFile(t, "transient"), false, nil)
	require.NoError(t, err)
	_, _, err = db.Commit()
	require.NoError(t, err)

	require.NoError(t, db.Undo(nil))

	assert.False(t, db.Exists(hash))
}

func TestUndoSetRestoresPreviousValue(t *testing.T) {
	root := filepath.Join(t.TempDir(), "db")
	db, err := Open(root, false, "")
	require.NoError(t, err)
	defer db.Close()

	hash, err := db.AddFile(writeTempFile(t, "content"), false, propertystore.Properties{"comments": "first"})
	require.NoError(t, err)
	_, _, err = db.Commit()
	require.NoError(t, err)

	require.NoError(t, db.SetField(hash, "comments", "second", "manual"))
	_, _, err = db.Commit()
	require.NoError(t, err)

	require.NoError(t, db.Undo(nil))

	rows, err := db.Select(map[string]string{"hash": hash}).All()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "first", rows[0]["comments"])
}

func TestDeleteRemovesBlobAndMetadata(t *testing.T) {
	root := filepath.Join(t.TempDir(), "db")
	db, err := Open(root, false, "")
	require.NoError(t, err)
	defer db.Close()

	hash, err := db.AddFile(writeTempFile(t, "to be deleted"), false, nil)
	require.NoError(t, err)
	_, _, err = db.Commit()
	require.NoError(t, err)

	require.NoError(t, db.Delete(hash))

	assert.False(t, db.Exists(hash))
	_, _, err = db.OpenBlob(hash)
	assert.Error(t, err)
}

func TestUndoOfBlobDeleteFailsInstead(t *testing.T) {
	root := filepath.Join(t.TempDir(), "db")
	db, err := Open(root, false, "")
	require.NoError(t, err)
	defer db.Close()

	hash, err := db.AddFile(writeTempFile(t, "gone for good"), false, propertystore.Properties{"comments": "seed"})
	require.NoError(t, err)
	_, _, err = db.Commit()
	require.NoError(t, err)

	require.NoError(t, db.Delete(hash))
	_, _, err = db.Commit()
	require.NoError(t, err)

	err = db.Undo(nil)
	var undoFailed *qerrors.UndoFailedError
	assert.ErrorAs(t, err, &undoFailed)

	assert.False(t, db.Exists(hash), "a failed undo must not resurrect the deleted object")
}

func TestRestoreAutoMetadataRevertsLastAutoSet(t *testing.T) {
	root := filepath.Join(t.TempDir(), "db")
	db, err := Open(root, false, "")
	require.NoError(t, err)
	defer db.Close()

	hash, err := db.AddFile(writeTempFile(t, "content"), false, propertystore.Properties{"comments": "seed"})
	require.NoError(t, err)
	_, _, err = db.Commit()
	require.NoError(t, err)

	require.NoError(t, db.SetField(hash, "comments", "scanned value", "auto"))
	_, _, err = db.Commit()
	require.NoError(t, err)

	require.NoError(t, db.RestoreAutoMetadata(hash, true))

	rows, err := db.Select(map[string]string{"hash": hash}).All()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "seed", rows[0]["comments"], "restoring should revert the field to its value before the auto write")
}

func TestRestoreAutoMetadataOnlyAutoSkipsManualEntries(t *testing.T) {
	root := filepath.Join(t.TempDir(), "db")
	db, err := Open(root, false, "")
	require.NoError(t, err)
	defer db.Close()

	hash, err := db.AddFile(writeTempFile(t, "content"), false, propertystore.Properties{"comments": "seed"})
	require.NoError(t, err)
	_, _, err = db.Commit()
	require.NoError(t, err)

	require.NoError(t, db.SetField(hash, "comments", "from manual", "manual"))
	_, _, err = db.Commit()
	require.NoError(t, err)

	require.NoError(t, db.RestoreAutoMetadata(hash, true))

	rows, err := db.Select(map[string]string{"hash": hash}).All()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "from manual", rows[0]["comments"], "a manual write must survive an auto-only restore")
}

func TestMatchingHashesAndShortestHashRoundTrip(t *testing.T) {
	root := filepath.Join(t.TempDir(), "db")
	db, err := Open(root, false, "")
	require.NoError(t, err)
	defer db.Close()

	hash, err := db.AddFile(writeTempFile(t, "unique content"), false, nil)
	require.NoError(t, err)
	_, _, err = db.Commit()
	require.NoError(t, err)

	short, err := db.ShortestHash(hash)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(short), len(hash))

	resolved, err := db.ResolveHash(short)
	require.NoError(t, err)
	assert.Equal(t, hash, resolved)

	matches, err := db.MatchingHashes(short)
	require.NoError(t, err)
	assert.Contains(t, matches, hash)
}

func TestRegistryExposesCoreFields(t *testing.T) {
	root := filepath.Join(t.TempDir(), "db")
	db, err := Open(root, false, "")
	require.NoError(t, err)
	defer db.Close()

	_, ok := db.Registry().Get("hash")
	assert.True(t, ok)
}
