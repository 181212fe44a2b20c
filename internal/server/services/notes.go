package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/Evermishka/notes-app/internal/server/models"
	"github.com/Evermishka/notes-app/internal/server/repositories/repomanager"
)

// NoteService stores notes per user. Ids are client-assigned, so both the
// create and update replays of an offline client land here as upserts;
// repeating one after a crash is harmless.
type NoteService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewNoteService(db *sql.DB, m repomanager.RepositoryManager) *NoteService {
	return &NoteService{db: db, repomanager: m}
}

// Upsert writes the note for the user. Timestamps are normalized to UTC;
// a zero UpdatedAt is stamped server-side so the row always carries a
// usable last-write time.
func (s *NoteService) Upsert(ctx context.Context, userID string, n *models.Note) (*models.Note, error) {
	n.UserID = userID
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = time.Now().UTC()
	}
	n.CreatedAt = n.CreatedAt.UTC()
	n.UpdatedAt = n.UpdatedAt.UTC()

	return s.repomanager.Notes(s.db).Upsert(ctx, n)
}

func (s *NoteService) Get(ctx context.Context, userID, id string) (*models.Note, error) {
	return s.repomanager.Notes(s.db).GetByID(ctx, userID, id)
}

func (s *NoteService) List(ctx context.Context, userID string) ([]models.Note, error) {
	return s.repomanager.Notes(s.db).ListByUser(ctx, userID)
}

// Delete removes the user's note; common.ErrorNotFound when it is absent.
func (s *NoteService) Delete(ctx context.Context, userID, id string) error {
	return s.repomanager.Notes(s.db).Delete(ctx, userID, id)
}
