// Package cli provides the interactive notes command-line client.
//
// It wires configuration, local storage, the sync engine, and an interactive
// REPL that works the same online and offline. Typical flow: restore the
// previous session, re-queue any notes left unsynced by a crash, start a
// background connectivity watcher, and execute user commands.
//
// Key features:
//   - Register / Login / Logout
//   - Add, edit, delete notes (saved locally first, synced in background)
//   - List / Show notes with their per-note sync status
//   - Manual sync trigger and a status summary
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
