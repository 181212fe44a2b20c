package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"

	"github.com/Evermishka/notes-app/internal/common"
	"github.com/Evermishka/notes-app/internal/dbx"
	"github.com/Evermishka/notes-app/internal/server/config"
	"github.com/Evermishka/notes-app/internal/server/models"
	notesrepo "github.com/Evermishka/notes-app/internal/server/repositories/notes"
	refreshtokensrepo "github.com/Evermishka/notes-app/internal/server/repositories/refreshtokens"
	usersrepo "github.com/Evermishka/notes-app/internal/server/repositories/users"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

type fakeUsersRepo struct {
	created   *models.User
	createErr error

	getOut *models.User
	getErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	u.ID = "u-1"
	f.created = u
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

type fakeRefreshRepo struct {
	findOut *models.RefreshToken
	findErr error

	created   []string
	createErr error

	deleted []string
	delErr  error

	purged int
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, token)
	return nil
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, token)
	return nil
}

func (f *fakeRefreshRepo) DeleteExpired(ctx context.Context) error {
	f.purged++
	return nil
}

// fakeManager vends the same fakes regardless of the DBTX handed in, which
// lets transactional code paths run against sqlmock.
type fakeManager struct {
	users   *fakeUsersRepo
	refresh *fakeRefreshRepo
	notes   *fakeNotesRepo
}

func (m *fakeManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeManager) Users(dbx.DBTX) usersrepo.Repository          { return m.users }
func (m *fakeManager) RefreshTokens(dbx.DBTX) refreshtokensrepo.Repository {
	return m.refresh
}
func (m *fakeManager) Notes(dbx.DBTX) notesrepo.Repository { return m.notes }

func newUserService(t *testing.T, db *sql.DB, m *fakeManager) *UserService {
	t.Helper()
	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
	return NewUserService(db, m, cfg)
}

func TestRegister_HashesPassword(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	m := &fakeManager{users: &fakeUsersRepo{}, refresh: &fakeRefreshRepo{}}
	s := newUserService(t, db, m)

	user, err := s.Register(context.Background(), "alice@example.com", "pa55word")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if user.ID != "u-1" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if err := bcrypt.CompareHashAndPassword(m.users.created.PasswordHash, []byte("pa55word")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	m := &fakeManager{users: &fakeUsersRepo{createErr: common.ErrorAlreadyExists}, refresh: &fakeRefreshRepo{}}
	s := newUserService(t, db, m)

	_, err := s.Register(context.Background(), "alice@example.com", "x")
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("expected ErrorAlreadyExists, got %v", err)
	}
}

func loginFakes(t *testing.T, password string) *fakeManager {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error: %v", err)
	}
	return &fakeManager{
		users:   &fakeUsersRepo{getOut: &models.User{ID: "u-1", Email: "alice@example.com", PasswordHash: hash}},
		refresh: &fakeRefreshRepo{},
	}
}

func TestLogin_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	m := loginFakes(t, "secret")
	s := newUserService(t, db, m)

	userID, pair, err := s.Login(context.Background(), "alice@example.com", "secret")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if userID != "u-1" {
		t.Fatalf("unexpected user id: %s", userID)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected a full token pair, got %+v", pair)
	}
	if len(m.refresh.created) != 1 || m.refresh.created[0] != pair.RefreshToken {
		t.Fatalf("refresh token not stored: %+v", m.refresh.created)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newUserService(t, db, loginFakes(t, "secret"))

	_, _, err := s.Login(context.Background(), "alice@example.com", "wrong")
	if !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("expected ErrorUnauthorized, got %v", err)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	m := &fakeManager{users: &fakeUsersRepo{getErr: common.ErrorNotFound}, refresh: &fakeRefreshRepo{}}
	s := newUserService(t, db, m)

	_, _, err := s.Login(context.Background(), "ghost@example.com", "x")
	if !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("expected ErrorUnauthorized, got %v", err)
	}
}

func TestRefreshToken_RotatesInTransaction(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	m := &fakeManager{
		users:   &fakeUsersRepo{},
		refresh: &fakeRefreshRepo{findOut: &models.RefreshToken{UserID: "u-1", Expires: time.Now().Add(time.Hour)}},
	}
	s := newUserService(t, db, m)

	pair, err := s.RefreshToken(context.Background(), "old-token")
	if err != nil {
		t.Fatalf("RefreshToken error: %v", err)
	}
	if len(m.refresh.deleted) != 1 || m.refresh.deleted[0] != "old-token" {
		t.Fatalf("old token not revoked: %+v", m.refresh.deleted)
	}
	if len(m.refresh.created) != 1 || m.refresh.created[0] != pair.RefreshToken {
		t.Fatalf("new token not stored: %+v", m.refresh.created)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRefreshToken_Expired(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	m := &fakeManager{
		users:   &fakeUsersRepo{},
		refresh: &fakeRefreshRepo{findOut: &models.RefreshToken{UserID: "u-1", Expires: time.Now().Add(-time.Minute)}},
	}
	s := newUserService(t, db, m)

	_, err := s.RefreshToken(context.Background(), "stale")
	if !errors.Is(err, common.ErrRefreshTokenExpired) {
		t.Fatalf("expected ErrRefreshTokenExpired, got %v", err)
	}
}

func TestRefreshToken_Unknown(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	m := &fakeManager{
		users:   &fakeUsersRepo{},
		refresh: &fakeRefreshRepo{findErr: common.ErrorNotFound},
	}
	s := newUserService(t, db, m)

	_, err := s.RefreshToken(context.Background(), "nope")
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestPurgeExpiredTokens(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	m := &fakeManager{users: &fakeUsersRepo{}, refresh: &fakeRefreshRepo{}}
	s := newUserService(t, db, m)

	if err := s.PurgeExpiredTokens(context.Background()); err != nil {
		t.Fatalf("PurgeExpiredTokens error: %v", err)
	}
	if m.refresh.purged != 1 {
		t.Fatalf("expected one purge call, got %d", m.refresh.purged)
	}
}
