package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/Evermishka/notes-app/internal/client/models"
	"github.com/Evermishka/notes-app/internal/common"
)

// Reconcile downloads the account's notes and merges them into local
// storage with last-write-wins semantics: unknown notes are inserted as
// synced, a strictly newer remote copy overwrites the local one, and any
// note with a pending queue record is left alone so local edits survive
// until they are replayed. Remote notes absent locally are never deleted
// remotely by this pass.
func (e *Engine) Reconcile(ctx context.Context) error {
	remoteNotes, err := e.remote.ListNotes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list remote notes: %w", err)
	}

	for _, rn := range remoteNotes {
		if err := e.mergeRemote(ctx, rn); err != nil {
			return err
		}
	}

	e.subs.notifyDownload()
	return nil
}

func (e *Engine) mergeRemote(ctx context.Context, rn models.RemoteNote) error {
	pending, err := e.queue.GetByNoteID(ctx, rn.ID)
	if err != nil {
		return fmt.Errorf("failed to read sync queue: %w", err)
	}
	if pending != nil {
		// a local mutation is waiting to be replayed; it wins for now
		return nil
	}

	local, err := e.notes.GetByID(ctx, rn.ID)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		n := &models.Note{
			ID:        rn.ID,
			Title:     rn.Title,
			Content:   rn.Content,
			CreatedAt: rn.CreatedAt,
			UpdatedAt: rn.UpdatedAt,
			Synced:    true,
		}
		if err := e.notes.Upsert(ctx, n); err != nil {
			return fmt.Errorf("failed to store remote note: %w", err)
		}
		e.subs.notifyNote(rn.ID)
	case err != nil:
		return fmt.Errorf("failed to read local note: %w", err)
	case rn.UpdatedAt.After(local.UpdatedAt):
		local.Title = rn.Title
		local.Content = rn.Content
		local.UpdatedAt = rn.UpdatedAt
		local.Synced = true
		if err := e.notes.Upsert(ctx, local); err != nil {
			return fmt.Errorf("failed to store remote note: %w", err)
		}
		e.subs.notifyNote(rn.ID)
	}
	return nil
}
