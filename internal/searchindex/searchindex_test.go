package searchindex

import (
	"path/filepath"
	"testing"

	"github.com/qualia-db/qualia/internal/fieldschema"
	"github.com/qualia-db/qualia/internal/journal"
	"github.com/qualia-db/qualia/internal/qerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestIndex(t *testing.T, declared map[string]fieldschema.FieldDescriptor, readOnly bool) (*journal.Journal, *Index) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal")
	j, err := journal.Open(path, false)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })

	idx, err := Open(j.DB, declared, readOnly)
	require.NoError(t, err)
	return j, idx
}

func TestEnsureFieldPinsTypeOnFirstWrite(t *testing.T) {
	_, idx := openTestIndex(t, nil, false)

	require.NoError(t, idx.EnsureField(idx.db, 1, "rating", fieldschema.Number))

	stored, ok, err := idx.StoredType("rating")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, fieldschema.Number, stored)
}

func TestEnsureFieldRejectsTypeDrift(t *testing.T) {
	_, idx := openTestIndex(t, nil, false)

	require.NoError(t, idx.EnsureField(idx.db, 1, "rating", fieldschema.Number))
	err := idx.EnsureField(idx.db, 2, "rating", fieldschema.Text)

	var drift *qerrors.FieldConfigChangedError
	assert.ErrorAs(t, err, &drift)
}

func TestOpenToleratesDriftWhenReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal")
	j, err := journal.Open(path, false)
	require.NoError(t, err)

	idx, err := Open(j.DB, map[string]fieldschema.FieldDescriptor{"rating": {Type: fieldschema.Number}}, false)
	require.NoError(t, err)
	require.NoError(t, idx.EnsureField(idx.db, 1, "rating", fieldschema.Number))
	j.Close()

	ro, err := journal.Open(path, true)
	require.NoError(t, err)
	defer ro.Close()

	roIdx, err := Open(ro.DB, map[string]fieldschema.FieldDescriptor{"rating": {Type: fieldschema.Text}}, true)
	require.NoError(t, err)
	assert.True(t, roIdx.Degraded())
}

func TestOpenFailsOnDriftWhenReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal")
	j, err := journal.Open(path, false)
	require.NoError(t, err)

	idx, err := Open(j.DB, map[string]fieldschema.FieldDescriptor{"rating": {Type: fieldschema.Number}}, false)
	require.NoError(t, err)
	require.NoError(t, idx.EnsureField(idx.db, 1, "rating", fieldschema.Number))

	_, err = Open(j.DB, map[string]fieldschema.FieldDescriptor{"rating": {Type: fieldschema.Text}}, false)
	assert.Error(t, err)
}

func insertObject(t *testing.T, idx *Index, hash string) {
	t.Helper()
	_, err := idx.db.Exec(`INSERT INTO objects(hash, properties) VALUES (?, '{}')`, hash)
	require.NoError(t, err)
}

func TestResolveHashUnique(t *testing.T) {
	_, idx := openTestIndex(t, nil, false)
	insertObject(t, idx, "abcdef")

	full, err := idx.ResolveHash("abcd")
	require.NoError(t, err)
	assert.Equal(t, "abcdef", full)
}

func TestResolveHashAmbiguous(t *testing.T) {
	_, idx := openTestIndex(t, nil, false)
	insertObject(t, idx, "abcdef")
	insertObject(t, idx, "abcxyz")

	_, err := idx.ResolveHash("abc")
	var ambiguous *qerrors.AmbiguousHashError
	assert.ErrorAs(t, err, &ambiguous)
}

func TestResolveHashNotFound(t *testing.T) {
	_, idx := openTestIndex(t, nil, false)
	_, err := idx.ResolveHash("nope")
	var notFound *qerrors.FileDoesNotExistError
	assert.ErrorAs(t, err, &notFound)
}

func TestMatchingHashesListsAllCandidates(t *testing.T) {
	_, idx := openTestIndex(t, nil, false)
	insertObject(t, idx, "abcdef")
	insertObject(t, idx, "abcxyz")

	matches, err := idx.MatchingHashes("abc")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"abcdef", "abcxyz"}, matches)
}

func TestShortestHashWidensUntilUnique(t *testing.T) {
	_, idx := openTestIndex(t, nil, false)
	insertObject(t, idx, "aabbcc")
	insertObject(t, idx, "aabbdd")

	short, err := idx.ShortestHash("aabbcc", 2)
	require.NoError(t, err)
	assert.Equal(t, "aabbcc"[:len(short)], short)

	full, err := idx.ResolveHash(short)
	require.NoError(t, err)
	assert.Equal(t, "aabbcc", full)
}

func TestInvalidateAllShortHashesClearsCache(t *testing.T) {
	_, idx := openTestIndex(t, nil, false)
	insertObject(t, idx, "aabbcc")

	_, err := idx.ShortestHash("aabbcc", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, idx.shortHashes.Len())

	idx.InvalidateAllShortHashes()
	assert.Equal(t, 0, idx.shortHashes.Len())
}

func TestWordBoundaryPatternEscapesSpecialChars(t *testing.T) {
	pattern := WordBoundaryPattern("a.b")
	assert.Contains(t, pattern, `a\.b`)
}
