// Package notes provides the PostgreSQL-backed repository for server-side
// notes. Note ids are client-assigned, so writes are upserts keyed by id.
package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Evermishka/notes-app/internal/common"
	"github.com/Evermishka/notes-app/internal/dbx"
	"github.com/Evermishka/notes-app/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert inserts the note or, when the id already exists for the same user,
// replaces its content fields. If the id exists under a different user the
// statement matches no row and common.ErrOwnershipConflict is returned.
func (r *PostgresRepository) Upsert(ctx context.Context, n *models.Note) (*models.Note, error) {
	query := `
		INSERT INTO notes (id, user_id, title, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title, content = EXCLUDED.content, updated_at = EXCLUDED.updated_at
		WHERE notes.user_id = EXCLUDED.user_id
		RETURNING id, user_id, title, content, created_at, updated_at
	`

	stored := &models.Note{}
	err := r.db.QueryRowContext(ctx, query,
		n.ID, n.UserID, n.Title, n.Content, n.CreatedAt, n.UpdatedAt).
		Scan(&stored.ID, &stored.UserID, &stored.Title, &stored.Content, &stored.CreatedAt, &stored.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrOwnershipConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return stored, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, userID, id string) (*models.Note, error) {
	query := `
		SELECT id, user_id, title, content, created_at, updated_at FROM notes
		WHERE id = $1 AND user_id = $2
	`

	n := &models.Note{}
	err := r.db.QueryRowContext(ctx, query, id, userID).
		Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return n, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]models.Note, error) {
	query := `
		SELECT id, user_id, title, content, created_at, updated_at FROM notes
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Note
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// Delete removes the user's note, returning common.ErrorNotFound when no
// row matched.
func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) error {
	query := `
		DELETE FROM notes
		WHERE id = $1 AND user_id = $2
	`

	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}

	return nil
}
