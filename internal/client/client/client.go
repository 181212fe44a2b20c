package client

import (
	"context"

	"github.com/Evermishka/notes-app/internal/client/models"
)

// TokenPair is the access/refresh pair issued by the note service.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Session identifies an authenticated user together with its tokens.
type Session struct {
	UserID string
	Tokens TokenPair
}

// Client is the remote adapter consumed by the sync engine and the auth
// service. Create/update replays are upserts keyed by the client-assigned
// note id, so a replay after a crash is always safe.
type Client interface {
	Close() error
	Register(ctx context.Context, email, password string) error
	Login(ctx context.Context, email, password string) (*Session, error)
	Ping(ctx context.Context) error

	CreateNote(ctx context.Context, n *models.RemoteNote) (*models.RemoteNote, error)
	UpdateNote(ctx context.Context, n *models.RemoteNote) (*models.RemoteNote, error)
	DeleteNote(ctx context.Context, id string) error
	ListNotes(ctx context.Context) ([]models.RemoteNote, error)

	// SyncRecord dispatches a queued mutation based on its action. A remote
	// "not found" during a queued delete is treated as success: the desired
	// end state already holds.
	SyncRecord(ctx context.Context, rec *models.SyncQueueRecord) error

	// Session state, restored from local metadata across restarts.
	SetSession(s *Session)
	SessionState() *Session
	ClearSession()
}
