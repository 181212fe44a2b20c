package models

import "time"

// SyncAction is the kind of mutation a queue record replays.
type SyncAction string

const (
	ActionCreate SyncAction = "create"
	ActionUpdate SyncAction = "update"
	ActionDelete SyncAction = "delete"
)

// Priority orders actions for draining: deletes first, so that creates and
// updates are never wasted on entities about to disappear remotely.
func (a SyncAction) Priority() int {
	switch a {
	case ActionDelete:
		return 0
	case ActionUpdate:
		return 1
	default:
		return 2
	}
}

// SyncQueueRecord is a durable outbox entry: one pending remote mutation.
// The store-assigned ID defines arrival order; Timestamp (set at enqueue
// time) breaks ties within a priority class. At most one record exists per
// NoteID at any time — enqueuing collapses into the existing record.
type SyncQueueRecord struct {
	ID        int64
	NoteID    string
	Action    SyncAction
	Payload   NotePayload
	Timestamp time.Time // set at enqueue time
	Error     string    // last attempt's failure, empty when none
}
