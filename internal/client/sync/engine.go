// Package sync keeps local notes and the remote account in agreement.
// Offline mutations accumulate in a durable queue with at most one record
// per note; draining replays them against the server in priority order.
package sync

import (
	"context"
	"fmt"
	"sort"
	gosync "sync"
	"time"

	"github.com/Evermishka/notes-app/internal/client/client"
	"github.com/Evermishka/notes-app/internal/client/models"
	"github.com/Evermishka/notes-app/internal/client/repositories/notes"
	"github.com/Evermishka/notes-app/internal/client/repositories/syncqueue"
	"github.com/Evermishka/notes-app/internal/logging"
)

// batchSize is the number of queue records dispatched concurrently per
// drain iteration.
const batchSize = 5

// Engine owns the sync queue. All note mutations funnel through Enqueue,
// which collapses them into a single pending record per note; Drain replays
// pending records while the client is online and authenticated.
type Engine struct {
	queue  syncqueue.Repository
	notes  notes.Repository
	remote client.Client
	logger logging.Logger

	subs *subscribers

	mu          gosync.Mutex
	online      bool
	loggedIn    bool
	reconciled  bool
	draining    bool
	processing  bool
	queueLength int
	lastError   string
}

func NewEngine(queue syncqueue.Repository, noteRepo notes.Repository, remote client.Client, logger logging.Logger) *Engine {
	return &Engine{
		queue:  queue,
		notes:  noteRepo,
		remote: remote,
		logger: logger,
		subs:   newSubscribers(),
	}
}

// Status returns a snapshot of the current sync state.
func (e *Engine) Status() models.SyncState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return models.SyncState{
		Online:      e.online,
		QueueLength: e.queueLength,
		Processing:  e.processing,
		LastError:   e.lastError,
	}
}

// Online reports whether the server is currently reachable.
func (e *Engine) Online() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.online
}

// Subscribe registers a status listener and immediately hands it the
// current state. The returned function removes the listener.
func (e *Engine) Subscribe(fn func(models.SyncState)) func() {
	unsubscribe := e.subs.addStatus(fn)
	fn(e.Status())
	return unsubscribe
}

// SubscribeNoteChange registers a listener invoked with the id of every
// note whose content or sync status changes.
func (e *Engine) SubscribeNoteChange(fn func(noteID string)) func() {
	return e.subs.addNote(fn)
}

// SubscribeDownloadComplete registers a listener invoked after a
// reconciliation pass finishes merging remote notes.
func (e *Engine) SubscribeDownloadComplete(fn func()) func() {
	return e.subs.addDownload(fn)
}

// SetOnline records a connectivity change. Regaining connectivity
// triggers a drain attempt.
func (e *Engine) SetOnline(ctx context.Context, online bool) {
	e.mu.Lock()
	changed := e.online != online
	e.online = online
	e.mu.Unlock()
	if !changed {
		return
	}
	e.subs.notifyStatus(e.Status())
	if online {
		e.Drain(ctx)
	}
}

// OnLogin enables draining and runs the reconciliation download. The
// download happens at most once per login session; a failed attempt is
// retried on the next auth event.
func (e *Engine) OnLogin(ctx context.Context) error {
	e.mu.Lock()
	e.loggedIn = true
	needDownload := !e.reconciled
	e.mu.Unlock()

	var err error
	if needDownload && e.Online() {
		if err = e.Reconcile(ctx); err != nil {
			e.logger.Error(ctx, "reconciliation failed", "error", err)
		} else {
			e.mu.Lock()
			e.reconciled = true
			e.mu.Unlock()
		}
	}

	if lenErr := e.refreshQueueLength(ctx); lenErr != nil {
		e.logger.Error(ctx, "failed to read sync queue length", "error", lenErr)
	}
	e.Drain(ctx)
	return err
}

// OnLogout stops draining. Local notes and pending queue records are
// kept so the next login of the same account can resume.
func (e *Engine) OnLogout() {
	e.mu.Lock()
	e.loggedIn = false
	e.reconciled = false
	e.mu.Unlock()
	e.subs.notifyStatus(e.Status())
}

// Enqueue records a pending mutation for the note, collapsing it with any
// record already queued for the same id:
//
//   - delete over a pending create cancels both, the server never saw the note
//   - delete over anything else turns the record into a delete
//   - an edit over a pending create stays a create with the latest payload
//   - otherwise the record takes the new action and payload
//
// Any previous dispatch error on the record is cleared, and a drain attempt
// follows.
func (e *Engine) Enqueue(ctx context.Context, action models.SyncAction, noteID string, payload models.NotePayload) error {
	existing, err := e.queue.GetByNoteID(ctx, noteID)
	if err != nil {
		return fmt.Errorf("failed to read sync queue: %w", err)
	}

	now := time.Now().UTC()
	switch {
	case existing == nil:
		rec := &models.SyncQueueRecord{NoteID: noteID, Action: action, Payload: payload, Timestamp: now}
		if action == models.ActionDelete {
			rec.Payload = models.NotePayload{}
		}
		if _, err := e.queue.Insert(ctx, rec); err != nil {
			return fmt.Errorf("failed to insert sync record: %w", err)
		}
	case action == models.ActionDelete && existing.Action == models.ActionCreate:
		if err := e.queue.DeleteByID(ctx, existing.ID); err != nil {
			return fmt.Errorf("failed to cancel sync record: %w", err)
		}
	default:
		if action == models.ActionDelete {
			existing.Action = models.ActionDelete
			existing.Payload = models.NotePayload{}
		} else {
			// a pending create keeps its action so the note is still
			// created remotely, just with the latest fields
			if existing.Action != models.ActionCreate {
				existing.Action = action
			}
			existing.Payload = payload
		}
		existing.Timestamp = now
		existing.Error = ""
		if err := e.queue.Update(ctx, existing); err != nil {
			return fmt.Errorf("failed to update sync record: %w", err)
		}
	}

	e.mu.Lock()
	e.lastError = ""
	e.mu.Unlock()
	if err := e.refreshQueueLength(ctx); err != nil {
		return err
	}
	e.subs.notifyNote(noteID)
	e.Drain(ctx)
	return nil
}

// Drain replays the pending queue against the server in batches. Records
// are ordered deletes first, then updates, then creates, ties broken by
// enqueue time. A batch is dispatched concurrently; any failure in it
// stops the loop after the batch completes. Only one drain runs at a
// time, and each iteration re-checks connectivity, so triggers arriving
// mid-drain coalesce into the running loop.
func (e *Engine) Drain(ctx context.Context) {
	e.mu.Lock()
	if e.draining || !e.online || !e.loggedIn {
		e.mu.Unlock()
		return
	}
	e.draining = true
	e.processing = true
	e.mu.Unlock()
	e.subs.notifyStatus(e.Status())

	defer func() {
		e.mu.Lock()
		e.draining = false
		e.processing = false
		e.mu.Unlock()
		e.subs.notifyStatus(e.Status())
	}()

	for e.Online() {
		batch, err := e.nextBatch(ctx)
		if err != nil {
			e.logger.Error(ctx, "failed to read sync queue", "error", err)
			return
		}
		if len(batch) == 0 {
			return
		}

		failed := e.dispatchBatch(ctx, batch)

		if err := e.refreshQueueLength(ctx); err != nil {
			e.logger.Error(ctx, "failed to read sync queue length", "error", err)
			return
		}
		if failed {
			return
		}
	}
}

func (e *Engine) nextBatch(ctx context.Context) ([]models.SyncQueueRecord, error) {
	records, err := e.queue.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		pi, pj := records[i].Action.Priority(), records[j].Action.Priority()
		if pi != pj {
			return pi < pj
		}
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	if len(records) > batchSize {
		records = records[:batchSize]
	}
	return records, nil
}

func (e *Engine) dispatchBatch(ctx context.Context, batch []models.SyncQueueRecord) bool {
	var wg gosync.WaitGroup
	results := make([]error, len(batch))
	for i := range batch {
		wg.Add(1)
		go func(i int, rec models.SyncQueueRecord) {
			defer wg.Done()
			results[i] = e.syncRecord(ctx, &rec)
		}(i, batch[i])
	}
	wg.Wait()

	for _, err := range results {
		if err != nil {
			return true
		}
	}
	return false
}

// syncRecord replays a single queue record. On success the record is
// removed and, for creates and updates, the local note is marked synced.
// On failure the error text is stored on the record so the next replay
// can surface it.
func (e *Engine) syncRecord(ctx context.Context, rec *models.SyncQueueRecord) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic while syncing note %s: %v", rec.NoteID, p)
			e.recordFailure(ctx, rec, err)
		}
	}()

	if err := e.remote.SyncRecord(ctx, rec); err != nil {
		e.recordFailure(ctx, rec, err)
		return err
	}

	if err := e.queue.DeleteByID(ctx, rec.ID); err != nil {
		return fmt.Errorf("failed to remove sync record: %w", err)
	}
	if rec.Action != models.ActionDelete {
		if err := e.notes.SetSynced(ctx, rec.NoteID, true); err != nil {
			e.logger.Error(ctx, "failed to mark note synced", "note_id", rec.NoteID, "error", err)
		}
	}
	e.subs.notifyNote(rec.NoteID)
	return nil
}

func (e *Engine) recordFailure(ctx context.Context, rec *models.SyncQueueRecord, cause error) {
	e.logger.Error(ctx, "failed to sync note", "note_id", rec.NoteID, "action", string(rec.Action), "error", cause)
	if err := e.queue.SetError(ctx, rec.ID, cause.Error()); err != nil {
		e.logger.Error(ctx, "failed to store sync error", "note_id", rec.NoteID, "error", err)
	}
	e.mu.Lock()
	e.lastError = cause.Error()
	e.mu.Unlock()
	e.subs.notifyNote(rec.NoteID)
	e.subs.notifyStatus(e.Status())
}

func (e *Engine) refreshQueueLength(ctx context.Context) error {
	n, err := e.queue.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count sync queue: %w", err)
	}
	e.mu.Lock()
	e.queueLength = n
	e.mu.Unlock()
	e.subs.notifyStatus(e.Status())
	return nil
}
