// Package journal is the append-only, serial-ordered change log: every
// mutation is recorded with enough prior state to undo it, grouped into
// checkpoints that undo one at a time.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/qualia-db/qualia/internal/qerrors"
	"github.com/qualia-db/qualia/pkg/log"
)

// Action identifies what kind of change a journal row records.
type Action string

const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionSet    Action = "set"
)

// ChangeRecord is one row of the changes table, hydrated.
type ChangeRecord struct {
	Serial       int64
	Timestamp    time.Time
	ObjectKey    string
	Action       Action
	PreviousBlob []byte
	ExtraBlob    []byte
}

// Checkpoint is one row of the checkpoints table.
type Checkpoint struct {
	CheckpointID int64
	Timestamp    time.Time
	Serial       int64
}

// Undoer supplies the action-specific inverse mutations; the journal
// itself only knows about serials and action names, not about what a
// "previous" blob means for a given action. Dispatch happens through
// this small interface, implemented by the caller's domain type, rather
// than a switch inside the journal itself.
type Undoer interface {
	UndoAdd(tx *sqlx.Tx, objectKey string, previous []byte) error
	UndoUpdate(tx *sqlx.Tx, objectKey string, previous []byte) error
	UndoDelete(tx *sqlx.Tx, objectKey string, previous []byte) error
	UndoSet(tx *sqlx.Tx, objectKey string, extra []byte, previous []byte, hadPrevious bool) error
}

// Journal wraps the embedded relational store backing both the change
// log and (via the same *sqlx.DB) the object/property tables, so that
// Append/Undo can participate in one transaction and leave no partial
// changes behind.
type Journal struct {
	DB         *sqlx.DB
	ReadOnly   bool
	hasChanges bool
}

// Open opens (creating if needed) the embedded relational store at path
// and applies pending migrations. readOnly opens with SQLite's mode=ro,
// skips migrations, and refuses Append/Undo.
func Open(path string, readOnly bool) (*Journal, error) {
	registerDriver()

	dsn := path + "?_foreign_keys=on"
	if readOnly {
		dsn = "file:" + path + "?mode=ro&_query_only=true"
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	// SQLite does not benefit from more than one writer connection.
	db.SetMaxOpenConns(1)

	if !readOnly {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, err
		}
		if err := applyMigrations(db.DB); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &Journal{DB: db, ReadOnly: readOnly}, nil
}

func (j *Journal) Close() error {
	return j.DB.Close()
}

// Append inserts one change row and commits the underlying transaction
// immediately, so a crash preserves each change. It does not create a
// checkpoint; Commit does that.
func (j *Journal) Append(objectKey string, action Action, previous, extra []byte, at *time.Time) (int64, error) {
	if j.ReadOnly {
		return 0, &qerrors.DatabaseReadOnlyError{}
	}

	ts := time.Now()
	if at != nil {
		ts = *at
	}

	res, err := j.DB.Exec(
		`INSERT INTO changes(timestamp, object_key, action, previous_blob, extra_blob) VALUES (?, ?, ?, ?, ?)`,
		ts, objectKey, string(action), previous, extra,
	)
	if err != nil {
		return 0, fmt.Errorf("journal: append: %w", err)
	}

	serial, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	j.hasChanges = true
	return serial, nil
}

// Commit creates a new checkpoint covering every change since the last
// one, or returns (0, false) if nothing is pending: a checkpoint is
// never created when no changes are pending.
func (j *Journal) Commit() (checkpointID int64, created bool, err error) {
	if j.ReadOnly {
		return 0, false, &qerrors.DatabaseReadOnlyError{}
	}
	if !j.hasChanges {
		return 0, false, nil
	}

	var maxSerial sql.NullInt64
	if err := j.DB.Get(&maxSerial, `SELECT MAX(serial) FROM changes`); err != nil {
		return 0, false, err
	}
	if !maxSerial.Valid {
		j.hasChanges = false
		return 0, false, nil
	}

	res, err := j.DB.Exec(`INSERT INTO checkpoints(timestamp, serial) VALUES (?, ?)`, time.Now(), maxSerial.Int64)
	if err != nil {
		return 0, false, fmt.Errorf("journal: commit: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, err
	}

	j.hasChanges = false
	log.Checkpoint("commit", id, maxSerial.Int64)
	return id, true, nil
}

// LastCheckpoint returns the most recent checkpoint, or ok=false if none
// exists yet.
func (j *Journal) LastCheckpoint() (Checkpoint, bool, error) {
	var cp Checkpoint
	err := j.DB.Get(&cp, `SELECT checkpoint_id, timestamp, serial FROM checkpoints ORDER BY checkpoint_id DESC LIMIT 1`)
	if err == sql.ErrNoRows {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, err
	}
	return cp, true, nil
}

// Checkpoint looks up one checkpoint by id.
func (j *Journal) Checkpoint(id int64) (Checkpoint, error) {
	var cp Checkpoint
	err := j.DB.Get(&cp, `SELECT checkpoint_id, timestamp, serial FROM checkpoints WHERE checkpoint_id = ?`, id)
	if err == sql.ErrNoRows {
		return Checkpoint{}, &qerrors.CheckpointDoesNotExistError{CheckpointID: id}
	}
	return cp, err
}

// AllCheckpoints lists every checkpoint, most recent first when desc is
// true.
func (j *Journal) AllCheckpoints(desc bool) ([]Checkpoint, error) {
	order := "ASC"
	if desc {
		order = "DESC"
	}
	var cps []Checkpoint
	err := j.DB.Select(&cps, `SELECT checkpoint_id, timestamp, serial FROM checkpoints ORDER BY checkpoint_id `+order)
	return cps, err
}

// previousSerialBefore returns the serial_upper_bound of the checkpoint just
// before id, or 0 if id is the first checkpoint.
func (j *Journal) previousSerialBefore(id int64) (int64, error) {
	var serial sql.NullInt64
	err := j.DB.Get(&serial, `SELECT MAX(serial) FROM checkpoints WHERE checkpoint_id < ?`, id)
	if err != nil {
		return 0, err
	}
	if !serial.Valid {
		return 0, nil
	}
	return serial.Int64, nil
}

// TransactionsOf returns the changes belonging to checkpoint id, in
// ascending serial order.
func (j *Journal) TransactionsOf(checkpointID int64) ([]ChangeRecord, error) {
	cp, err := j.Checkpoint(checkpointID)
	if err != nil {
		return nil, err
	}

	start, err := j.previousSerialBefore(checkpointID)
	if err != nil {
		return nil, err
	}

	rows, err := j.queryRange(start, cp.Serial, false)
	return rows, err
}

func (j *Journal) queryRange(start, end int64, desc bool) ([]ChangeRecord, error) {
	order := "ASC"
	if desc {
		order = "DESC"
	}

	type row struct {
		Serial       int64     `db:"serial"`
		Timestamp    time.Time `db:"timestamp"`
		ObjectKey    string    `db:"object_key"`
		Action       string    `db:"action"`
		PreviousBlob []byte    `db:"previous_blob"`
		ExtraBlob    []byte    `db:"extra_blob"`
	}
	var rows []row
	err := j.DB.Select(&rows, `SELECT serial, timestamp, object_key, action, previous_blob, extra_blob FROM changes WHERE serial > ? AND serial <= ? ORDER BY serial `+order, start, end)
	if err != nil {
		return nil, err
	}

	out := make([]ChangeRecord, len(rows))
	for i, r := range rows {
		out[i] = ChangeRecord{
			Serial:       r.Serial,
			Timestamp:    r.Timestamp,
			ObjectKey:    r.ObjectKey,
			Action:       Action(r.Action),
			PreviousBlob: r.PreviousBlob,
			ExtraBlob:    r.ExtraBlob,
		}
	}
	return out, nil
}

// Undo inverts the changes belonging to checkpoint id (last checkpoint
// if id is nil) in reverse serial order, via undoer, then removes the
// consumed rows. All-or-nothing: any unknown action or failure aborts
// the whole transaction with no partial effect. Undoing when there is no
// checkpoint at all is a no-op.
func (j *Journal) Undo(id *int64, undoer Undoer) error {
	if j.ReadOnly {
		return &qerrors.DatabaseReadOnlyError{}
	}

	var cp Checkpoint
	if id == nil {
		last, ok, err := j.LastCheckpoint()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		cp = last
	} else {
		found, err := j.Checkpoint(*id)
		if err != nil {
			return err
		}
		cp = found
	}

	start, err := j.previousSerialBefore(cp.CheckpointID)
	if err != nil {
		return err
	}

	changes, err := j.queryRange(start, cp.Serial, true)
	if err != nil {
		return err
	}

	tx, err := j.DB.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, c := range changes {
		switch c.Action {
		case ActionAdd:
			if err := undoer.UndoAdd(tx, c.ObjectKey, c.PreviousBlob); err != nil {
				return &qerrors.UndoFailedError{Reason: err.Error()}
			}
		case ActionUpdate:
			if err := undoer.UndoUpdate(tx, c.ObjectKey, c.PreviousBlob); err != nil {
				return &qerrors.UndoFailedError{Reason: err.Error()}
			}
		case ActionDelete:
			if err := undoer.UndoDelete(tx, c.ObjectKey, c.PreviousBlob); err != nil {
				return &qerrors.UndoFailedError{Reason: err.Error()}
			}
		case ActionSet:
			if err := undoer.UndoSet(tx, c.ObjectKey, c.ExtraBlob, c.PreviousBlob, c.PreviousBlob != nil); err != nil {
				return &qerrors.UndoFailedError{Reason: err.Error()}
			}
		default:
			return &qerrors.UndoFailedError{Reason: fmt.Sprintf("unknown action %q", c.Action)}
		}
	}

	if _, err := tx.Exec(`DELETE FROM changes WHERE serial > ? AND serial <= ?`, start, cp.Serial); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM checkpoints WHERE checkpoint_id = ?`, cp.CheckpointID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Checkpoint("undo", cp.CheckpointID, cp.Serial)
	return nil
}
