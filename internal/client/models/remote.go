package models

import "time"

// RemoteNote is a note as returned by the note service. Timestamps are
// authoritative for last-write-wins reconciliation.
type RemoteNote struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SyncState is the global status signal pushed to subscribers on every
// state change: connectivity flips, enqueues, drain start/stop, and
// per-record outcomes.
type SyncState struct {
	Online      bool
	QueueLength int
	Processing  bool
	LastError   string
}
