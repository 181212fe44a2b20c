// Package services contains the application services behind the CLI: the
// note service (local-first CRUD with queued replay) and the auth service
// (account lifecycle, session persistence across restarts).
package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Evermishka/notes-app/internal/client/client"
	"github.com/Evermishka/notes-app/internal/client/repositories/metadata"
	"github.com/Evermishka/notes-app/internal/client/repositories/notes"
	"github.com/Evermishka/notes-app/internal/client/repositories/syncqueue"
	"github.com/Evermishka/notes-app/internal/client/sync"
	"github.com/Evermishka/notes-app/internal/dbx"
	"github.com/Evermishka/notes-app/internal/logging"
)

// AuthService manages the account session.
//
// Contract:
//   - Login: authenticate, persist the session locally, and start syncing.
//     Logging into a different account than the one whose data is cached
//     wipes the local notes, queue, and metadata first.
//   - Logout: stop syncing and drop the tokens. Local notes and pending
//     queue records are kept so the same account can resume offline work.
//   - RestoreSession: re-attach a session persisted by a previous run.
//   - Close: persist the latest (possibly rotated) tokens and release the
//     underlying client.
type AuthService interface {
	Register(ctx context.Context, email, password string) error
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
	RestoreSession(ctx context.Context) (bool, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
	engine *sync.Engine
	logger logging.Logger
}

func NewAuthService(client client.Client, db *sql.DB, engine *sync.Engine, logger logging.Logger) AuthService {
	return &authService{client: client, db: db, engine: engine, logger: logger}
}

func (a *authService) Register(ctx context.Context, email, password string) error {
	return a.client.Register(ctx, email, password)
}

func (a *authService) Login(ctx context.Context, email, password string) error {
	sess, err := a.client.Login(ctx, email, password)
	if err != nil {
		return err
	}

	meta := metadata.NewSQLiteRepository(a.db)
	stored, err := meta.Get(ctx, metadata.KeyUserID)
	if err != nil {
		return err
	}
	if len(stored) > 0 && string(stored) != sess.UserID {
		// another account's data is cached here; it must not leak into
		// this session or get replayed against this account
		if err := a.wipeLocalData(ctx); err != nil {
			return fmt.Errorf("failed to wipe previous account data: %w", err)
		}
	}

	a.client.SetSession(sess)
	if err := a.saveSession(ctx, sess); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return a.engine.OnLogin(ctx)
}

func (a *authService) Logout(ctx context.Context) error {
	a.engine.OnLogout()
	a.client.ClearSession()

	meta := metadata.NewSQLiteRepository(a.db)
	if err := meta.Delete(ctx, metadata.KeyAccessToken); err != nil {
		return err
	}
	return meta.Delete(ctx, metadata.KeyRefreshToken)
}

// RestoreSession re-attaches the session saved by a previous run, if any,
// and reports whether one was found.
func (a *authService) RestoreSession(ctx context.Context) (bool, error) {
	meta := metadata.NewSQLiteRepository(a.db)

	userID, err := meta.Get(ctx, metadata.KeyUserID)
	if err != nil {
		return false, err
	}
	access, err := meta.Get(ctx, metadata.KeyAccessToken)
	if err != nil {
		return false, err
	}
	refresh, err := meta.Get(ctx, metadata.KeyRefreshToken)
	if err != nil {
		return false, err
	}
	if len(userID) == 0 || len(refresh) == 0 {
		return false, nil
	}

	a.client.SetSession(&client.Session{
		UserID: string(userID),
		Tokens: client.TokenPair{AccessToken: string(access), RefreshToken: string(refresh)},
	})
	return true, a.engine.OnLogin(ctx)
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) Close(ctx context.Context) error {
	if sess := a.client.SessionState(); sess != nil {
		if err := a.saveSession(ctx, sess); err != nil {
			a.logger.Error(ctx, "failed to persist session on close", "error", err)
		}
	}
	return a.client.Close()
}

func (a *authService) saveSession(ctx context.Context, sess *client.Session) error {
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		meta := metadata.NewSQLiteRepository(tx)
		if err := meta.Set(ctx, metadata.KeyUserID, []byte(sess.UserID)); err != nil {
			return err
		}
		if err := meta.Set(ctx, metadata.KeyAccessToken, []byte(sess.Tokens.AccessToken)); err != nil {
			return err
		}
		return meta.Set(ctx, metadata.KeyRefreshToken, []byte(sess.Tokens.RefreshToken))
	})
}

func (a *authService) wipeLocalData(ctx context.Context) error {
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := notes.NewSQLiteRepository(tx).Clear(ctx); err != nil {
			return err
		}
		if err := syncqueue.NewSQLiteRepository(tx).Clear(ctx); err != nil {
			return err
		}
		return metadata.NewSQLiteRepository(tx).Clear(ctx)
	})
}
