package services

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/Evermishka/notes-app/internal/client/models"
	"github.com/Evermishka/notes-app/internal/client/repositories/notes"
	"github.com/Evermishka/notes-app/internal/client/repositories/syncqueue"
	"github.com/Evermishka/notes-app/internal/client/sync"
	"github.com/Evermishka/notes-app/internal/common"
	"github.com/Evermishka/notes-app/internal/logging"
)

// NoteService is the local-first note API used by the CLI. Every mutation
// lands in local storage immediately and is queued for replay; reads join
// notes with their live queue state so the caller always sees the current
// sync status.
type NoteService interface {
	Create(ctx context.Context, title, content string) (*models.NoteView, error)
	GetAll(ctx context.Context) ([]models.NoteView, error)
	GetByID(ctx context.Context, id string) (*models.NoteView, error)

	// Update applies the non-nil fields. It returns (nil, nil) when the
	// note does not exist.
	Update(ctx context.Context, id string, title, content *string) (*models.NoteView, error)

	// Delete reports whether a note was removed.
	Delete(ctx context.Context, id string) (bool, error)

	// RecoverUnsynced re-queues notes that were saved locally but whose
	// enqueue was lost, e.g. to a crash between the two writes. It runs at
	// most once per process.
	RecoverUnsynced(ctx context.Context) error
}

type noteService struct {
	notes  notes.Repository
	queue  syncqueue.Repository
	engine *sync.Engine
	logger logging.Logger

	recoverOnce gosync.Once
}

func NewNoteService(noteRepo notes.Repository, queueRepo syncqueue.Repository, engine *sync.Engine, logger logging.Logger) NoteService {
	return &noteService{notes: noteRepo, queue: queueRepo, engine: engine, logger: logger}
}

func (s *noteService) Create(ctx context.Context, title, content string) (*models.NoteView, error) {
	now := time.Now().UTC()
	n := &models.Note{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.notes.Upsert(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to save note: %w", err)
	}
	if err := s.engine.Enqueue(ctx, models.ActionCreate, n.ID, models.PayloadOf(n)); err != nil {
		return nil, err
	}
	return s.view(ctx, n.ID)
}

func (s *noteService) GetAll(ctx context.Context) ([]models.NoteView, error) {
	rows, err := s.notes.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	records, err := s.queue.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read sync queue: %w", err)
	}

	byNote := make(map[string]*models.SyncQueueRecord, len(records))
	for i := range records {
		byNote[records[i].NoteID] = &records[i]
	}

	views := make([]models.NoteView, 0, len(rows))
	for i := range rows {
		views = append(views, *models.ViewOf(&rows[i], byNote[rows[i].ID]))
	}
	return views, nil
}

func (s *noteService) GetByID(ctx context.Context, id string) (*models.NoteView, error) {
	return s.view(ctx, id)
}

func (s *noteService) Update(ctx context.Context, id string, title, content *string) (*models.NoteView, error) {
	n, err := s.notes.GetByID(ctx, id)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load note: %w", err)
	}

	if title != nil {
		n.Title = *title
	}
	if content != nil {
		n.Content = *content
	}
	n.UpdatedAt = time.Now().UTC()
	n.Synced = false

	if err := s.notes.Upsert(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to save note: %w", err)
	}
	if err := s.engine.Enqueue(ctx, models.ActionUpdate, n.ID, models.PayloadOf(n)); err != nil {
		return nil, err
	}
	return s.view(ctx, n.ID)
}

func (s *noteService) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := s.notes.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete note: %w", err)
	}
	if !removed {
		return false, nil
	}
	if err := s.engine.Enqueue(ctx, models.ActionDelete, id, models.NotePayload{}); err != nil {
		return true, err
	}
	return true, nil
}

func (s *noteService) RecoverUnsynced(ctx context.Context) error {
	var err error
	s.recoverOnce.Do(func() { err = s.recoverUnsynced(ctx) })
	return err
}

func (s *noteService) recoverUnsynced(ctx context.Context) error {
	rows, err := s.notes.ListUnsynced(ctx)
	if err != nil {
		return fmt.Errorf("failed to list unsynced notes: %w", err)
	}

	for i := range rows {
		n := &rows[i]
		rec, err := s.queue.GetByNoteID(ctx, n.ID)
		if err != nil {
			s.logger.Error(ctx, "failed to check sync queue during recovery", "note_id", n.ID, "error", err)
			continue
		}
		if rec != nil {
			continue
		}
		// the server upserts by note id, so an update replay is safe even
		// when the note never made it there
		if err := s.engine.Enqueue(ctx, models.ActionUpdate, n.ID, models.PayloadOf(n)); err != nil {
			s.logger.Error(ctx, "failed to re-queue unsynced note", "note_id", n.ID, "error", err)
		}
	}
	return nil
}

func (s *noteService) view(ctx context.Context, id string) (*models.NoteView, error) {
	n, err := s.notes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to load note: %w", err)
	}
	rec, err := s.queue.GetByNoteID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read sync queue: %w", err)
	}
	return models.ViewOf(n, rec), nil
}
