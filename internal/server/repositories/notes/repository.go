package notes

import (
	"context"

	"github.com/Evermishka/notes-app/internal/server/models"
)

type Repository interface {
	Upsert(ctx context.Context, n *models.Note) (*models.Note, error)
	GetByID(ctx context.Context, userID, id string) (*models.Note, error)
	ListByUser(ctx context.Context, userID string) ([]models.Note, error)
	Delete(ctx context.Context, userID, id string) error
}
