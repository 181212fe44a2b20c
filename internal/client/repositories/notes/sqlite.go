package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Evermishka/notes-app/internal/client/models"
	"github.com/Evermishka/notes-app/internal/common"
	"github.com/Evermishka/notes-app/internal/dbx"
)

// Timestamps are stored as RFC 3339 text so they survive the round trip
// through SQLite without driver-specific time handling. The fractional part
// is fixed-width so lexicographic ORDER BY matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRepository implements Repository over a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Upsert inserts a note or, on id conflict, updates its mutable columns.
func (r *SQLiteRepository) Upsert(ctx context.Context, n *models.Note) error {
	query := ` INSERT INTO notes (id, title, content, created_at, updated_at, synced)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET title = excluded.title,
				content = excluded.content,
				updated_at = excluded.updated_at,
				synced = excluded.synced
	`
	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.Title, n.Content,
		n.CreatedAt.UTC().Format(timeLayout), n.UpdatedAt.UTC().Format(timeLayout),
		n.Synced)
	if err != nil {
		return fmt.Errorf("failed to upsert note: %w", err)
	}
	return nil
}

// GetAll lists all notes, most recently updated first.
func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Note, error) {
	query := `SELECT id, title, content, created_at, updated_at, synced
		FROM notes ORDER BY updated_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select notes: %w", err)
	}
	defer rows.Close()

	return scanNotes(rows)
}

// GetByID returns a single note or common.ErrorNotFound.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Note, error) {
	query := `SELECT id, title, content, created_at, updated_at, synced
		FROM notes WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	n, err := scanNote(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select note: %w", err)
	}
	return n, nil
}

// SetSynced flips the synced flag without touching note content.
func (r *SQLiteRepository) SetSynced(ctx context.Context, id string, synced bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notes SET synced = ? WHERE id = ?`, synced, id)
	if err != nil {
		return fmt.Errorf("failed to mark note synced=%v: %w", synced, err)
	}
	return nil
}

// Delete removes a note and reports whether a row existed.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete note: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n > 0, nil
}

// ListUnsynced returns notes whose local synced flag is off. Used by the
// startup recovery pass.
func (r *SQLiteRepository) ListUnsynced(ctx context.Context) ([]models.Note, error) {
	query := `SELECT id, title, content, created_at, updated_at, synced
		FROM notes WHERE synced = 0`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select unsynced notes: %w", err)
	}
	defer rows.Close()

	return scanNotes(rows)
}

// Clear removes all notes. Used when a different user logs in.
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM notes`); err != nil {
		return fmt.Errorf("failed to clear notes: %w", err)
	}
	return nil
}

func scanNotes(rows *sql.Rows) ([]models.Note, error) {
	var result []models.Note
	for rows.Next() {
		n, err := scanNote(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanNote(scan func(dest ...any) error) (*models.Note, error) {
	var n models.Note
	var createdAt, updatedAt string
	if err := scan(&n.ID, &n.Title, &n.Content, &createdAt, &updatedAt, &n.Synced); err != nil {
		return nil, err
	}
	var err error
	if n.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at %q: %w", createdAt, err)
	}
	if n.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("bad updated_at %q: %w", updatedAt, err)
	}
	return &n, nil
}
