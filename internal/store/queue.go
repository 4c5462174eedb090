package store

import (
	"database/sql"
	"encoding/json"
	"time"

	apperrors "github.com/linkstash/linkstash/internal/errors"
	"github.com/linkstash/linkstash/internal/models"
)

// Enqueue appends an operation durably and assigns its queue id. The
// returned id is monotonically increasing and defines replay order.
func (s *Store) Enqueue(op *models.Op) (int64, error) {
	payload, err := op.EncodePayload()
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrValidation, "invalid queued operation", err)
	}

	if op.Timestamp == 0 {
		op.Timestamp = time.Now().Unix()
	}

	result, err := s.db.Exec(
		`INSERT INTO op_queue (op_type, payload, created_at) VALUES (?, ?, ?)`,
		op.Type, string(payload), op.Timestamp)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStorage, "failed to enqueue operation", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStorage, "failed to read queue id", err)
	}
	op.QueueID = id
	return id, nil
}

// ListQueue returns all pending operations in ascending queue id order.
func (s *Store) ListQueue() ([]*models.Op, error) {
	rows, err := s.db.Query(
		`SELECT queue_id, op_type, payload, created_at FROM op_queue ORDER BY queue_id ASC`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to list queue", err)
	}
	defer rows.Close()

	var ops []*models.Op
	for rows.Next() {
		var (
			queueID   int64
			typ       models.OpType
			payload   string
			timestamp int64
		)
		if err := rows.Scan(&queueID, &typ, &payload, &timestamp); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to scan queue row", err)
		}
		op, err := models.DecodeOp(queueID, typ, json.RawMessage(payload), timestamp)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to decode queued operation", err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to iterate queue", err)
	}
	return ops, nil
}

// Dequeue removes one operation. Removing a non-existent id is not an
// error: a drain interrupted between remote success and dequeue may retry
// the removal on resume.
func (s *Store) Dequeue(queueID int64) error {
	_, err := s.db.Exec(`DELETE FROM op_queue WHERE queue_id = ?`, queueID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to dequeue operation", err)
	}
	return nil
}

// UpdateQueued rewrites a queued operation's payload in place, keeping its
// queue id and position. Used when an update folds into a pending create
// and when replay rewrites a temp target id to its permanent id.
func (s *Store) UpdateQueued(op *models.Op) error {
	payload, err := op.EncodePayload()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrValidation, "invalid queued operation", err)
	}

	result, err := s.db.Exec(
		`UPDATE op_queue SET payload = ? WHERE queue_id = ?`, string(payload), op.QueueID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to update queued operation", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to check queued update", err)
	}
	if n == 0 {
		return apperrors.Newf(apperrors.ErrNotFound, "queued operation %d not found", op.QueueID)
	}
	return nil
}

// FindQueuedCreate returns the pending create op for a temp id, or nil
// when none is queued.
func (s *Store) FindQueuedCreate(tempID string) (*models.Op, error) {
	rows, err := s.db.Query(
		`SELECT queue_id, payload, created_at FROM op_queue
		 WHERE op_type = ? ORDER BY queue_id ASC`, models.OpCreate)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to scan queued creates", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			queueID   int64
			payload   string
			timestamp int64
		)
		if err := rows.Scan(&queueID, &payload, &timestamp); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to scan queue row", err)
		}
		op, err := models.DecodeOp(queueID, models.OpCreate, json.RawMessage(payload), timestamp)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to decode queued create", err)
		}
		if op.Create.TempID == tempID {
			return op, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to iterate queued creates", err)
	}
	return nil, nil
}

// DropQueuedForTarget removes all pending ops that point at the given id
// (a queued create's temp id, or an update/delete target). Used when a
// temp-only item is deleted before its create ever reached the remote.
func (s *Store) DropQueuedForTarget(id string) error {
	ops, err := s.ListQueue()
	if err != nil {
		return err
	}
	for _, op := range ops {
		match := false
		switch op.Type {
		case models.OpCreate:
			match = op.Create.TempID == id
		case models.OpUpdate, models.OpDelete:
			match = op.TargetID() == id
		}
		if !match {
			continue
		}
		if err := s.Dequeue(op.QueueID); err != nil {
			return err
		}
	}
	return nil
}

// QueueLen returns the number of pending operations.
func (s *Store) QueueLen() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM op_queue`).Scan(&n)
	if err != nil && err != sql.ErrNoRows {
		return 0, apperrors.Wrap(apperrors.ErrStorage, "failed to count queue", err)
	}
	return n, nil
}
