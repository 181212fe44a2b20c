package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Evermishka/notes-app/internal/client/client"
	"github.com/Evermishka/notes-app/internal/client/config"
	"github.com/Evermishka/notes-app/internal/client/services"
	"github.com/Evermishka/notes-app/internal/client/sync"
	"github.com/Evermishka/notes-app/internal/logging"

	_ "modernc.org/sqlite"
)

// App wires the local database, the sync engine, and the services behind
// the interactive REPL.
type App struct {
	config      *config.Config
	db          *client.Database
	engine      *sync.Engine
	authService services.AuthService
	noteService services.NoteService
	logger      logging.Logger

	loggedIn bool
	reader   *bufio.Reader
}

func NewApp(c *config.Config, logger logging.Logger) (*App, error) {
	ctx := context.Background()

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	apiClient := client.NewNotesClient(c.ServerEndpointURL)
	engine := sync.NewEngine(db.Queue, db.Notes, apiClient, logger)

	return &App{
		config:      c,
		db:          db,
		engine:      engine,
		authService: services.NewAuthService(apiClient, db.DB, engine, logger),
		noteService: services.NewNoteService(db.Notes, db.Queue, engine, logger),
		logger:      logger,
		reader:      bufio.NewReader(os.Stdin),
	}, nil
}

// Run restores the previous session, re-queues notes left unsynced by a
// crash, starts the connectivity watcher, and enters the REPL. It blocks
// until the user exits.
func (a *App) Run(ctx context.Context) {
	defer func() {
		if err := a.authService.Close(ctx); err != nil {
			a.logger.Error(ctx, "failed to close client", "error", err)
		}
		if err := a.db.Close(); err != nil {
			a.logger.Error(ctx, "failed to close database", "error", err)
		}
	}()

	a.probeOnline(ctx)

	restored, err := a.authService.RestoreSession(ctx)
	if err != nil {
		a.logger.Error(ctx, "failed to restore session", "error", err)
	}
	a.loggedIn = restored

	if err := a.noteService.RecoverUnsynced(ctx); err != nil {
		a.logger.Error(ctx, "failed to recover unsynced notes", "error", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartOnlineStatusWatcher(watchCtx, a.config.OnlineCheckInterval)

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}

func (a *App) isLoggedIn() bool {
	return a.loggedIn
}

// getStatus renders the prompt suffix, e.g. "(online, 2 pending)".
func (a *App) getStatus() string {
	st := a.engine.Status()
	mode := "offline"
	if st.Online {
		mode = "online"
	}
	if st.QueueLength > 0 {
		return fmt.Sprintf("(%s, %d pending)", mode, st.QueueLength)
	}
	return fmt.Sprintf("(%s)", mode)
}

func (a *App) probeOnline(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	a.engine.SetOnline(ctx, a.authService.Ping(pingCtx) == nil)
}

// StartOnlineStatusWatcher periodically probes the server and feeds the
// result into the sync engine, which drains the queue when connectivity
// comes back.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.probeOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}
