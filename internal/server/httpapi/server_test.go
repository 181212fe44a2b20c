package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Evermishka/notes-app/internal/common"
	"github.com/Evermishka/notes-app/internal/dbx"
	"github.com/Evermishka/notes-app/internal/logging"
	"github.com/Evermishka/notes-app/internal/server/auth"
	"github.com/Evermishka/notes-app/internal/server/config"
	"github.com/Evermishka/notes-app/internal/server/models"
	notesrepo "github.com/Evermishka/notes-app/internal/server/repositories/notes"
	refreshtokensrepo "github.com/Evermishka/notes-app/internal/server/repositories/refreshtokens"
	usersrepo "github.com/Evermishka/notes-app/internal/server/repositories/users"
	"github.com/Evermishka/notes-app/internal/server/services"
)

// ---- in-memory repositories ----

type memUsersRepo struct {
	byEmail map[string]*models.User
	nextID  int
}

func (r *memUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if _, ok := r.byEmail[u.Email]; ok {
		return nil, common.ErrorAlreadyExists
	}
	r.nextID++
	u.ID = fmt.Sprintf("u-%d", r.nextID)
	r.byEmail[u.Email] = u
	return u, nil
}

func (r *memUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

type memRefreshRepo struct {
	byToken map[string]*models.RefreshToken
}

func (r *memRefreshRepo) Create(ctx context.Context, userID, token string, validity time.Duration) error {
	r.byToken[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (r *memRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	t, ok := r.byToken[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return t, nil
}

func (r *memRefreshRepo) Delete(ctx context.Context, token string) error {
	delete(r.byToken, token)
	return nil
}

func (r *memRefreshRepo) DeleteExpired(ctx context.Context) error { return nil }

type memNotesRepo struct {
	byID map[string]*models.Note
}

func (r *memNotesRepo) Upsert(ctx context.Context, n *models.Note) (*models.Note, error) {
	if existing, ok := r.byID[n.ID]; ok && existing.UserID != n.UserID {
		return nil, common.ErrOwnershipConflict
	}
	stored := *n
	r.byID[n.ID] = &stored
	return &stored, nil
}

func (r *memNotesRepo) GetByID(ctx context.Context, userID, id string) (*models.Note, error) {
	n, ok := r.byID[id]
	if !ok || n.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return n, nil
}

func (r *memNotesRepo) ListByUser(ctx context.Context, userID string) ([]models.Note, error) {
	var out []models.Note
	for _, n := range r.byID {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (r *memNotesRepo) Delete(ctx context.Context, userID, id string) error {
	n, ok := r.byID[id]
	if !ok || n.UserID != userID {
		return common.ErrorNotFound
	}
	delete(r.byID, id)
	return nil
}

type memManager struct {
	users   *memUsersRepo
	refresh *memRefreshRepo
	notes   *memNotesRepo
}

func (m *memManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *memManager) Users(dbx.DBTX) usersrepo.Repository          { return m.users }
func (m *memManager) RefreshTokens(dbx.DBTX) refreshtokensrepo.Repository {
	return m.refresh
}
func (m *memManager) Notes(dbx.DBTX) notesrepo.Repository { return m.notes }

// ---- test server ----

type testEnv struct {
	router *gin.Engine
	mock   sqlmock.Sqlmock
	cfg    *config.Config
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m := &memManager{
		users:   &memUsersRepo{byEmail: map[string]*models.User{}},
		refresh: &memRefreshRepo{byToken: map[string]*models.RefreshToken{}},
		notes:   &memNotesRepo{byID: map[string]*models.Note{}},
	}

	cfg := &config.Config{
		EndpointAddr:                 ":0",
		SecretKey:                    "test-secret",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	us := services.NewUserService(db, m, cfg)
	ns := services.NewNoteService(db, m)
	srv := NewServer(cfg, logger, us, ns)

	return &testEnv{router: srv.router(), mock: mock, cfg: cfg}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) registerAndLogin(t *testing.T, email string) loginResponse {
	t.Helper()
	creds := map[string]string{"email": email, "password": "pa55word"}
	w := e.do(t, http.MethodPost, "/api/register", "", creds)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodPost, "/api/login", "", creds)
	require.Equal(t, http.StatusOK, w.Code)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

// ---- tests ----

func TestPing(t *testing.T) {
	env := newTestServer(t)
	w := env.do(t, http.MethodGet, "/api/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	env := newTestServer(t)
	creds := map[string]string{"email": "alice@example.com", "password": "x"}

	w := env.do(t, http.MethodPost, "/api/register", "", creds)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/register", "", creds)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, common.ErrorAlreadyExists.Error(), errorBody(t, w))
}

func TestLogin_ReturnsSession(t *testing.T) {
	env := newTestServer(t)
	resp := env.registerAndLogin(t, "alice@example.com")

	assert.NotEmpty(t, resp.UserID)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestServer(t)
	env.registerAndLogin(t, "alice@example.com")

	w := env.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": "alice@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNotes_RequireAuth(t *testing.T) {
	env := newTestServer(t)

	w := env.do(t, http.MethodGet, "/api/notes", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/notes", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, common.ErrInvalidToken.Error(), errorBody(t, w))
}

func TestNotes_ExpiredTokenReportsExpiry(t *testing.T) {
	env := newTestServer(t)

	expired, err := auth.GenerateToken("u-1", []byte(env.cfg.SecretKey), -time.Minute)
	require.NoError(t, err)

	w := env.do(t, http.MethodGet, "/api/notes", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	// the exact message is the client's cue to refresh instead of re-login
	assert.Equal(t, common.ErrTokenExpired.Error(), errorBody(t, w))
}

func TestNotes_CRUDFlow(t *testing.T) {
	env := newTestServer(t)
	session := env.registerAndLogin(t, "alice@example.com")

	note := noteDTO{ID: "n-1", Title: "first", Content: "hello", UpdatedAt: time.Now().UTC()}
	w := env.do(t, http.MethodPost, "/api/notes", session.AccessToken, note)
	require.Equal(t, http.StatusOK, w.Code)

	note.Title = "renamed"
	w = env.do(t, http.MethodPut, "/api/notes/n-1", session.AccessToken, note)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/notes", session.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []noteDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "renamed", list[0].Title)

	w = env.do(t, http.MethodDelete, "/api/notes/n-1", session.AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodDelete, "/api/notes/n-1", session.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpsert_PathIDWins(t *testing.T) {
	env := newTestServer(t)
	session := env.registerAndLogin(t, "alice@example.com")

	body := noteDTO{ID: "stale-id", Title: "t"}
	w := env.do(t, http.MethodPut, "/api/notes/n-9", session.AccessToken, body)
	require.Equal(t, http.StatusOK, w.Code)

	var saved noteDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
	assert.Equal(t, "n-9", saved.ID)
}

func TestUpsert_ForeignNoteConflicts(t *testing.T) {
	env := newTestServer(t)
	alice := env.registerAndLogin(t, "alice@example.com")
	bob := env.registerAndLogin(t, "bob@example.com")

	note := noteDTO{ID: "shared-id", Title: "mine"}
	w := env.do(t, http.MethodPost, "/api/notes", alice.AccessToken, note)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/notes", bob.AccessToken, note)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, common.ErrOwnershipConflict.Error(), errorBody(t, w))
}

func TestRefresh_RotatesTokens(t *testing.T) {
	env := newTestServer(t)
	session := env.registerAndLogin(t, "alice@example.com")

	env.mock.ExpectBegin()
	env.mock.ExpectCommit()

	w := env.do(t, http.MethodPost, "/api/refresh", "", map[string]string{"refresh_token": session.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)

	var pair tokenPairResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEqual(t, session.RefreshToken, pair.RefreshToken)

	// the old token was revoked during rotation
	w = env.do(t, http.MethodPost, "/api/refresh", "", map[string]string{"refresh_token": session.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefresh_UnknownToken(t *testing.T) {
	env := newTestServer(t)

	w := env.do(t, http.MethodPost, "/api/refresh", "", map[string]string{"refresh_token": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, common.ErrInvalidToken.Error(), errorBody(t, w))
}
