package models

import "time"

// Note is a server-side note row. The id is client-assigned, so create and
// update replays from the sync queue both land as upserts keyed by (id).
// Ownership is enforced on every access: a note id never crosses users.
type Note struct {
	ID        string
	UserID    string
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
