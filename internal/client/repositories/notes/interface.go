// Package notes provides the SQLite-backed repository for locally stored
// notes.
package notes

import (
	"context"

	"github.com/Evermishka/notes-app/internal/client/models"
)

// Repository is the local note storage contract. GetByID returns
// common.ErrorNotFound when the note does not exist; Delete reports whether
// a row was removed.
type Repository interface {
	Upsert(ctx context.Context, n *models.Note) error
	GetAll(ctx context.Context) ([]models.Note, error)
	GetByID(ctx context.Context, id string) (*models.Note, error)
	SetSynced(ctx context.Context, id string, synced bool) error
	Delete(ctx context.Context, id string) (bool, error)
	ListUnsynced(ctx context.Context) ([]models.Note, error)
	Clear(ctx context.Context) error
}
