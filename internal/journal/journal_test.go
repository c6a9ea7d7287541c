package journal

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal"), false)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

type recordingUndoer struct {
	adds, updates, deletes, sets []string
}

func (u *recordingUndoer) UndoAdd(tx *sqlx.Tx, objectKey string, previous []byte) error {
	u.adds = append(u.adds, objectKey)
	return nil
}

func (u *recordingUndoer) UndoUpdate(tx *sqlx.Tx, objectKey string, previous []byte) error {
	u.updates = append(u.updates, objectKey)
	return nil
}

func (u *recordingUndoer) UndoDelete(tx *sqlx.Tx, objectKey string, previous []byte) error {
	u.deletes = append(u.deletes, objectKey)
	return nil
}

func (u *recordingUndoer) UndoSet(tx *sqlx.Tx, objectKey string, extra []byte, previous []byte, hadPrevious bool) error {
	u.sets = append(u.sets, objectKey)
	return nil
}

func TestAppendRequiresWritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal")
	j, err := Open(path, false)
	require.NoError(t, err)
	j.Close()

	ro, err := Open(path, true)
	require.NoError(t, err)
	defer ro.Close()

	_, err = ro.Append("1", ActionAdd, nil, nil, nil)
	assert.Error(t, err)
}

func TestCommitNoPendingChangesIsANoOp(t *testing.T) {
	j := openTestJournal(t)
	id, created, err := j.Commit()
	require.NoError(t, err)
	assert.False(t, created)
	assert.Zero(t, id)
}

func TestCommitCreatesCheckpointCoveringPendingChanges(t *testing.T) {
	j := openTestJournal(t)

	_, err := j.Append("1", ActionAdd, nil, nil, nil)
	require.NoError(t, err)
	_, err = j.Append("1", ActionUpdate, nil, nil, nil)
	require.NoError(t, err)

	id, created, err := j.Commit()
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, id)

	changes, err := j.TransactionsOf(id)
	require.NoError(t, err)
	assert.Len(t, changes, 2)
}

func TestUndoWithNoCheckpointIsANoOp(t *testing.T) {
	j := openTestJournal(t)
	u := &recordingUndoer{}
	assert.NoError(t, j.Undo(nil, u))
	assert.Empty(t, u.adds)
}

func TestUndoInvertsInReverseSerialOrder(t *testing.T) {
	j := openTestJournal(t)

	_, err := j.Append("a", ActionAdd, nil, nil, nil)
	require.NoError(t, err)
	_, err = j.Append("b", ActionAdd, nil, nil, nil)
	require.NoError(t, err)
	_, _, err = j.Commit()
	require.NoError(t, err)

	u := &recordingUndoer{}
	require.NoError(t, j.Undo(nil, u))
	assert.Equal(t, []string{"b", "a"}, u.adds)

	_, ok, err := j.LastCheckpoint()
	require.NoError(t, err)
	assert.False(t, ok, "undone checkpoint must be removed")
}

func TestUndoSpecificCheckpoint(t *testing.T) {
	j := openTestJournal(t)

	_, err := j.Append("a", ActionAdd, nil, nil, nil)
	require.NoError(t, err)
	firstID, _, err := j.Commit()
	require.NoError(t, err)

	_, err = j.Append("b", ActionAdd, nil, nil, nil)
	require.NoError(t, err)
	_, _, err = j.Commit()
	require.NoError(t, err)

	u := &recordingUndoer{}
	require.NoError(t, j.Undo(&firstID, u))
	assert.Equal(t, []string{"a"}, u.adds)
}

func TestUndoUnknownCheckpointErrors(t *testing.T) {
	j := openTestJournal(t)
	bogus := int64(999)
	err := j.Undo(&bogus, &recordingUndoer{})
	assert.Error(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	raw, err := Encode(payload{Name: "x"})
	require.NoError(t, err)

	var out payload
	require.NoError(t, Decode(raw, &out))
	assert.Equal(t, "x", out.Name)
}

func TestEncodeNilRoundTrips(t *testing.T) {
	raw, err := Encode(nil)
	require.NoError(t, err)
	assert.Nil(t, raw)

	var out map[string]any
	require.NoError(t, Decode(raw, &out))
	assert.Nil(t, out)
}
