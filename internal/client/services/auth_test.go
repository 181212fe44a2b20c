package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Evermishka/notes-app/internal/client/repositories/metadata"
)

func TestAuthService_LoginPersistsSession(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	require.NoError(t, env.auth.Login(ctx, "user@example.com", "secret"))

	require.NotNil(t, env.remote.session)
	assert.Equal(t, "u1", env.remote.session.UserID)

	uid, err := env.db.Metadata.Get(ctx, metadata.KeyUserID)
	require.NoError(t, err)
	assert.Equal(t, "u1", string(uid))

	refresh, err := env.db.Metadata.Get(ctx, metadata.KeyRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "r", string(refresh))
}

func TestAuthService_LogoutKeepsLocalData(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	require.NoError(t, env.auth.Login(ctx, "user@example.com", "secret"))
	created, err := env.notes.Create(ctx, "offline draft", "x")
	require.NoError(t, err)

	require.NoError(t, env.auth.Logout(ctx))

	assert.Nil(t, env.remote.session)

	// notes and pending work survive a logout of the same account
	view, err := env.notes.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "offline draft", view.Title)

	n, err := env.db.Queue.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	access, err := env.db.Metadata.Get(ctx, metadata.KeyAccessToken)
	require.NoError(t, err)
	assert.Empty(t, access)

	uid, err := env.db.Metadata.Get(ctx, metadata.KeyUserID)
	require.NoError(t, err)
	assert.Equal(t, "u1", string(uid))
}

func TestAuthService_LoginAsDifferentUserWipesLocalData(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	require.NoError(t, env.auth.Login(ctx, "first@example.com", "secret"))
	_, err := env.notes.Create(ctx, "belongs to u1", "x")
	require.NoError(t, err)
	require.NoError(t, env.auth.Logout(ctx))

	env.remote.userID = "u2"
	require.NoError(t, env.auth.Login(ctx, "second@example.com", "secret"))

	views, err := env.notes.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, views)

	n, err := env.db.Queue.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	uid, err := env.db.Metadata.Get(ctx, metadata.KeyUserID)
	require.NoError(t, err)
	assert.Equal(t, "u2", string(uid))
}

func TestAuthService_RestoreSession(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	found, err := env.auth.RestoreSession(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, env.auth.Login(ctx, "user@example.com", "secret"))
	env.remote.session = nil

	found, err = env.auth.RestoreSession(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	require.NotNil(t, env.remote.session)
	assert.Equal(t, "u1", env.remote.session.UserID)
	assert.Equal(t, "r", env.remote.session.Tokens.RefreshToken)
}

func TestAuthService_LoginDrainsPendingQueue(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	created, err := env.notes.Create(ctx, "written before login", "x")
	require.NoError(t, err)

	env.engine.SetOnline(ctx, true)
	require.NoError(t, env.auth.Login(ctx, "user@example.com", "secret"))

	n, err := env.db.Queue.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	view, err := env.notes.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, view.Synced)
}
