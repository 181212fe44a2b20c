package cli

import (
	"context"
	"fmt"
)

// Sync probes the server and triggers a queue drain.
func (a *App) Sync(ctx context.Context) error {
	a.probeOnline(ctx)
	if !a.engine.Online() {
		printlnFn("Server unreachable, changes stay queued.")
		return nil
	}

	a.engine.Drain(ctx)
	return a.Status(ctx)
}

// Status prints the current sync state.
func (a *App) Status(ctx context.Context) error {
	st := a.engine.Status()

	mode := "offline"
	if st.Online {
		mode = "online"
	}
	printlnFn(fmt.Sprintf("Server: %s", mode))
	printlnFn(fmt.Sprintf("Pending changes: %d", st.QueueLength))
	if st.Processing {
		printlnFn("Sync in progress...")
	}
	if st.LastError != "" {
		printlnFn("Last sync error:", st.LastError)
	}
	return nil
}
