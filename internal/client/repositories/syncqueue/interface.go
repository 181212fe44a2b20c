// Package syncqueue provides the durable outbox: an ordered log of pending
// remote mutations, one record per note at most, surviving restarts. Every
// operation commits on its own; there is no explicit flush step.
package syncqueue

import (
	"context"

	"github.com/Evermishka/notes-app/internal/client/models"
)

// Repository is the outbox contract. GetByNoteID returns (nil, nil) when no
// record exists for the note.
type Repository interface {
	Insert(ctx context.Context, rec *models.SyncQueueRecord) (int64, error)
	GetByNoteID(ctx context.Context, noteID string) (*models.SyncQueueRecord, error)
	GetAll(ctx context.Context) ([]models.SyncQueueRecord, error)
	Update(ctx context.Context, rec *models.SyncQueueRecord) error
	SetError(ctx context.Context, id int64, msg string) error
	DeleteByID(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}
