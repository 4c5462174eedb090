// Package store provides the local durable store: item records plus the
// ordered operation queue, both backed by SQLite.
//
// All methods surface persistence failures as STORAGE_ERROR; callers treat
// them as fatal to the operation and do not interpret them further. Item
// absence on Get is a valid outcome, not an error.
package store

import (
	"database/sql"
	"fmt"
	"sync"

	apperrors "github.com/linkstash/linkstash/internal/errors"
	"github.com/linkstash/linkstash/internal/models"
)

// Store provides durable persistence for items and the operation queue.
//
// The underlying connection pool is limited to a single connection (see
// db.Open), so every transaction is atomic with respect to reads issued
// from other tasks in the process: Reconcile and ReplaceAll never expose
// an intermediate state.
type Store struct {
	db *sql.DB

	// Prepared statement cache for frequently used queries.
	// Statements are prepared on first use and cached for reuse.
	stmtCache sync.Map // map[string]*sql.Stmt
}

// New creates a new Store on an open database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// prepareStmt gets or creates a prepared statement from cache.
func (s *Store) prepareStmt(query string) (*sql.Stmt, error) {
	if stmt, ok := s.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	actual, loaded := s.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		// Another task already prepared this, close our duplicate.
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}

	return stmt, nil
}

// Close closes all cached prepared statements.
func (s *Store) Close() error {
	var firstErr error
	s.stmtCache.Range(func(key, value interface{}) bool {
		stmt := value.(*sql.Stmt)
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}

// =====================================================
// Item Operations
// =====================================================

const itemColumns = "id, url, title, notes, category, status, week_of, created_at, updated_at, synced"

func scanItem(row interface{ Scan(...interface{}) error }) (*models.Item, error) {
	var item models.Item
	err := row.Scan(&item.ID, &item.URL, &item.Title, &item.Notes, &item.Category,
		&item.Status, &item.WeekOf, &item.CreatedAt, &item.UpdatedAt, &item.Synced)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Put inserts or overwrites an item by id. No validation beyond id presence.
func (s *Store) Put(item *models.Item) error {
	if item == nil || item.ID == "" {
		return apperrors.New(apperrors.ErrValidation, "item id is required")
	}

	query := `
	INSERT INTO items (` + itemColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		url = excluded.url,
		title = excluded.title,
		notes = excluded.notes,
		category = excluded.category,
		status = excluded.status,
		week_of = excluded.week_of,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at,
		synced = excluded.synced
	`
	_, err := s.db.Exec(query, item.ID, item.URL, item.Title, item.Notes, item.Category,
		item.Status, item.WeekOf, item.CreatedAt, item.UpdatedAt, item.Synced)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to put item", err)
	}
	return nil
}

// Get retrieves an item by id. Absence returns (nil, nil): callers treat
// a missing item as a valid outcome.
func (s *Store) Get(id string) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = ?`
	stmt, err := s.prepareStmt(query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to prepare get", err)
	}

	item, err := scanItem(stmt.QueryRow(id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to get item", err)
	}
	return item, nil
}

// ListByStatus returns all items with the given status, newest first by
// created_at with ties broken by insertion order. A single query gives a
// snapshot: concurrent mutations are never observed mid-scan.
func (s *Store) ListByStatus(status models.Status) ([]*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE status = ?
	          ORDER BY created_at DESC, rowid ASC`
	stmt, err := s.prepareStmt(query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to prepare list", err)
	}

	rows, err := stmt.Query(status)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to list items", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to scan item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to iterate items", err)
	}
	return items, nil
}

// ListByWeek returns items for one week key filtered by status,
// newest first.
func (s *Store) ListByWeek(weekKey string, status models.Status) ([]*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE week_of = ? AND status = ?
	          ORDER BY created_at DESC, rowid ASC`
	rows, err := s.db.Query(query, weekKey, status)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to list week items", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to scan item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to iterate items", err)
	}
	return items, nil
}

// Delete removes an item. Deleting a non-existent id is not an error.
func (s *Store) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to delete item", err)
	}
	return nil
}

// Reconcile atomically replaces the temp-id record with its confirmed
// permanent counterpart, marked synced. There is no window where both or
// neither exist: the delete and insert commit together.
func (s *Store) Reconcile(tempID string, permanent *models.Item) error {
	if permanent == nil || permanent.ID == "" {
		return apperrors.New(apperrors.ErrValidation, "permanent item id is required")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to begin reconcile", err)
	}
	defer tx.Rollback()

	if tempID != permanent.ID {
		if _, err := tx.Exec(`DELETE FROM items WHERE id = ?`, tempID); err != nil {
			return apperrors.Wrap(apperrors.ErrStorage, "failed to remove temp item", err)
		}
	}

	query := `
	INSERT INTO items (` + itemColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
	ON CONFLICT(id) DO UPDATE SET
		url = excluded.url,
		title = excluded.title,
		notes = excluded.notes,
		category = excluded.category,
		status = excluded.status,
		week_of = excluded.week_of,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at,
		synced = 1
	`
	_, err = tx.Exec(query, permanent.ID, permanent.URL, permanent.Title, permanent.Notes,
		permanent.Category, permanent.Status, permanent.WeekOf,
		permanent.CreatedAt, permanent.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to insert permanent item", err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to commit reconcile", err)
	}
	return nil
}

// ReplaceAll atomically clears all items and inserts the given set, all
// marked synced. Used after a full remote refresh. Concurrent readers never
// observe the transiently empty store: the clear and inserts commit as one
// transaction on the single writer connection.
func (s *Store) ReplaceAll(items []*models.Item) error {
	tx, err := s.db.Begin()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to begin replace", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM items`); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to clear items", err)
	}

	insert := `INSERT INTO items (` + itemColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`
	for _, item := range items {
		if item.ID == "" {
			return apperrors.New(apperrors.ErrValidation, "item id is required")
		}
		_, err := tx.Exec(insert, item.ID, item.URL, item.Title, item.Notes, item.Category,
			item.Status, item.WeekOf, item.CreatedAt, item.UpdatedAt)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrStorage, "failed to insert item", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to commit replace", err)
	}
	return nil
}

// MarkWeekArchived transitions all active items of one week to archived,
// unsynced, in a single statement. Returns the number of rows changed.
func (s *Store) MarkWeekArchived(weekKey string, updatedAt int64) (int64, error) {
	result, err := s.db.Exec(
		`UPDATE items SET status = ?, synced = 0, updated_at = ?
		 WHERE status = ? AND week_of = ?`,
		models.StatusArchived, updatedAt, models.StatusActive, weekKey)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStorage, "failed to archive week", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStorage, "failed to count archived rows", err)
	}
	return n, nil
}

// MarkWeekSynced flags the archived items of one week as matching the
// remote store. Called after a bulk status transition is confirmed.
func (s *Store) MarkWeekSynced(weekKey string) error {
	_, err := s.db.Exec(
		`UPDATE items SET synced = 1 WHERE status = ? AND week_of = ?`,
		models.StatusArchived, weekKey)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to mark week synced", err)
	}
	return nil
}
