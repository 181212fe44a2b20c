// Package server wires the note service together: database connection with
// startup retries, schema migrations, application services, and the HTTP
// API with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sethvargo/go-retry"

	"github.com/Evermishka/notes-app/internal/logging"
	"github.com/Evermishka/notes-app/internal/server/config"
	"github.com/Evermishka/notes-app/internal/server/httpapi"
	"github.com/Evermishka/notes-app/internal/server/repositories/repomanager"
	"github.com/Evermishka/notes-app/internal/server/services"
)

const tokenPurgeInterval = 1 * time.Hour

type App struct {
	config *config.Config
	logger logging.Logger
}

func NewApp(c *config.Config) (*App, error) {
	slog := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slog)

	return &App{config: c, logger: logger}, nil
}

// connectDB opens the PostgreSQL pool and waits for it to become reachable.
// The database container often starts alongside the server, so the first
// pings are retried with a backoff instead of failing outright.
func (app *App) connectDB(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("pgx", app.config.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	backoff := retry.WithMaxRetries(5, retry.NewFibonacci(1*time.Second))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			app.logger.Warn(ctx, "database not reachable yet, retrying", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	return db, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// purgeExpiredTokens periodically drops refresh tokens past their expiry so
// abandoned sessions do not accumulate forever.
func (app *App) purgeExpiredTokens(ctx context.Context, us *services.UserService) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := us.PurgeExpiredTokens(ctx); err != nil {
				app.logger.Warn(ctx, "expired token purge failed", "error", err)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	db, err := app.connectDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	us := services.NewUserService(db, m, app.config)
	ns := services.NewNoteService(db, m)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.purgeExpiredTokens(ctx, us)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		srv := httpapi.NewServer(app.config, app.logger, us, ns)
		if err := srv.Run(ctx); err != nil {
			app.logger.Error(ctx, "http server error", "error", err)
			cancelFunc()
		}
	}()

	wg.Wait()
	return nil
}
