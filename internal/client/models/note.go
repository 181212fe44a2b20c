// Package models defines the client-side data model: locally stored notes,
// sync queue records, and the derived per-note sync status.
package models

import "time"

// Note is the canonical local entity. Synced is true only when the local
// copy is confirmed identical to the remote copy; a note with a pending
// queue record is never effectively synced regardless of this flag.
type Note struct {
	ID        string
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
	Synced    bool
}

// NotePayload carries the note fields needed to replay a queued operation
// against the server. It is empty for deletes.
type NotePayload struct {
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PayloadOf snapshots the replayable fields of a note.
func PayloadOf(n *Note) NotePayload {
	return NotePayload{
		Title:     n.Title,
		Content:   n.Content,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

// SyncIndicator is the per-note status shown to the user.
type SyncIndicator string

const (
	StatusSynced  SyncIndicator = "synced"
	StatusPending SyncIndicator = "pending"
	StatusError   SyncIndicator = "error"
)

// NoteView is the merged read model returned to callers: local note fields
// joined with the live queue state for that note.
type NoteView struct {
	Note
	Status    SyncIndicator
	SyncError string
}

// ViewOf derives the user-visible status from the local synced flag and the
// queue record for the note, if any. A queue record with a recorded error
// always wins over the local flag.
func ViewOf(n *Note, rec *SyncQueueRecord) *NoteView {
	v := &NoteView{Note: *n, Status: StatusSynced}
	switch {
	case rec != nil && rec.Error != "":
		v.Status = StatusError
		v.SyncError = rec.Error
	case rec != nil || !n.Synced:
		v.Status = StatusPending
	}
	v.Synced = n.Synced && rec == nil
	return v
}
