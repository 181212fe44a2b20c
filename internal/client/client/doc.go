// Package client contains client-side building blocks for the notes app.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface) to talk
//     to the note service: Register/Login/RefreshToken, Ping, note CRUD,
//     ListNotes, and SyncRecord for replaying queued mutations.
//  2. A concrete HTTP/JSON implementation (see HTTPClient) that injects the
//     access token on every request, transparently refreshes an expired
//     token pair, and maps HTTP status codes to sentinel errors.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Common conditions are exposed as sentinel errors that callers can match
// with errors.Is: ErrUnavailable, ErrUnauthorized, ErrNotFound.
//
// Concurrency & Contexts
//
// Implementations should be safe for concurrent use unless stated otherwise.
// All operations accept context.Context and must honor cancellation/timeouts.
package client
