package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Evermishka/notes-app/internal/client/migrations"
	"github.com/Evermishka/notes-app/internal/client/repositories/metadata"
	"github.com/Evermishka/notes-app/internal/client/repositories/notes"
	"github.com/Evermishka/notes-app/internal/client/repositories/syncqueue"
	"github.com/pressly/goose/v3"
)

// Database bundles the opened SQLite handle with the repositories built on
// top of it. The handle is kept so services can run multi-repository
// transactions via dbx.WithTx.
type Database struct {
	DB       *sql.DB
	Notes    notes.Repository
	Queue    syncqueue.Repository
	Metadata metadata.Repository
}

func (d *Database) Close() error {
	return d.DB.Close()
}

// RunMigrations applies the embedded goose migrations. Safe to run on every
// start; goose tracks the applied version in the database itself.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (creating if needed) the local SQLite database at dsn,
// applies migrations, and wires the repositories.
func InitDatabase(ctx context.Context, dsn string) (*Database, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer; one pooled connection avoids lock
	// contention and keeps in-memory databases on one handle
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return &Database{
		DB:       db,
		Notes:    notes.NewSQLiteRepository(db),
		Queue:    syncqueue.NewSQLiteRepository(db),
		Metadata: metadata.NewSQLiteRepository(db),
	}, nil
}
