package syncqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Evermishka/notes-app/internal/client/models"
	"github.com/Evermishka/notes-app/internal/dbx"
)

// Fixed-width fraction so ORDER BY timestamp is chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRepository implements Repository over a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Insert appends a new outbox record and returns its store-assigned id.
func (r *SQLiteRepository) Insert(ctx context.Context, rec *models.SyncQueueRecord) (int64, error) {
	query := ` INSERT INTO sync_queue
			(note_id, action, title, content, created_at, updated_at, timestamp, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, query,
		rec.NoteID, string(rec.Action),
		rec.Payload.Title, rec.Payload.Content,
		formatTime(rec.Payload.CreatedAt), formatTime(rec.Payload.UpdatedAt),
		formatTime(rec.Timestamp), rec.Error)
	if err != nil {
		return 0, fmt.Errorf("failed to insert queue record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id error: %w", err)
	}
	rec.ID = id
	return id, nil
}

// GetByNoteID returns the pending record for a note, or (nil, nil) when the
// note has nothing queued. The collapsing invariant keeps at most one row
// per note, so "first" and "any" coincide.
func (r *SQLiteRepository) GetByNoteID(ctx context.Context, noteID string) (*models.SyncQueueRecord, error) {
	query := selectColumns + ` WHERE note_id = ? ORDER BY id LIMIT 1`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, noteID).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to select queue record: %w", err)
	}
	return rec, nil
}

// GetAll returns every pending record ordered by enqueue timestamp.
func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.SyncQueueRecord, error) {
	query := selectColumns + ` ORDER BY timestamp`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select queue records: %w", err)
	}
	defer rows.Close()

	var result []models.SyncQueueRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update atomically replaces a record's action, payload, timestamp, and
// error by id.
func (r *SQLiteRepository) Update(ctx context.Context, rec *models.SyncQueueRecord) error {
	query := ` UPDATE sync_queue
			SET action = ?, title = ?, content = ?, created_at = ?, updated_at = ?,
				timestamp = ?, error = ?
			WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		string(rec.Action),
		rec.Payload.Title, rec.Payload.Content,
		formatTime(rec.Payload.CreatedAt), formatTime(rec.Payload.UpdatedAt),
		formatTime(rec.Timestamp), rec.Error, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to update queue record: %w", err)
	}
	return nil
}

// SetError stores the last attempt's failure message without touching the
// rest of the record.
func (r *SQLiteRepository) SetError(ctx context.Context, id int64, msg string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sync_queue SET error = ? WHERE id = ?`, msg, id)
	if err != nil {
		return fmt.Errorf("failed to set queue record error: %w", err)
	}
	return nil
}

// DeleteByID removes a record after a confirmed remote replay (or when a
// create is cancelled by a delete).
func (r *SQLiteRepository) DeleteByID(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete queue record: %w", err)
	}
	return nil
}

// Count returns the queue depth.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue records: %w", err)
	}
	return n, nil
}

// Clear removes all records. Used when a different user logs in.
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue`); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, note_id, action, title, content, created_at, updated_at, timestamp, error
	FROM sync_queue`

func scanRecord(scan func(dest ...any) error) (*models.SyncQueueRecord, error) {
	var rec models.SyncQueueRecord
	var action, createdAt, updatedAt, timestamp string
	if err := scan(&rec.ID, &rec.NoteID, &action,
		&rec.Payload.Title, &rec.Payload.Content,
		&createdAt, &updatedAt, &timestamp, &rec.Error); err != nil {
		return nil, err
	}
	rec.Action = models.SyncAction(action)

	var err error
	if rec.Payload.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at %q: %w", createdAt, err)
	}
	if rec.Payload.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("bad updated_at %q: %w", updatedAt, err)
	}
	if rec.Timestamp, err = parseTime(timestamp); err != nil {
		return nil, fmt.Errorf("bad timestamp %q: %w", timestamp, err)
	}
	return &rec, nil
}

// Delete payloads carry zero timestamps; keep them as empty strings in the
// store rather than year-one sentinels.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
