package notes

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Evermishka/notes-app/internal/common"
	"github.com/Evermishka/notes-app/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func noteColumns() []string {
	return []string{"id", "user_id", "title", "content", "created_at", "updated_at"}
}

func TestUpsert_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(noteColumns()).AddRow("n-1", "u-1", "t", "c", now, now)
	mock.ExpectQuery(`INSERT\s+INTO\s+notes`).
		WithArgs("n-1", "u-1", "t", "c", now, now).
		WillReturnRows(rows)

	got, err := repo.Upsert(context.Background(), &models.Note{
		ID: "n-1", UserID: "u-1", Title: "t", Content: "c", CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Upsert error: %v", err)
	}
	if got.ID != "n-1" || got.UserID != "u-1" {
		t.Fatalf("unexpected note: %+v", got)
	}
}

func TestUpsert_OwnershipConflict(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	// the conflicting row belongs to another user, so the conditional
	// update matches nothing and no row comes back
	mock.ExpectQuery(`INSERT\s+INTO\s+notes`).
		WithArgs("n-1", "u-2", "t", "c", now, now).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Upsert(context.Background(), &models.Note{
		ID: "n-1", UserID: "u-2", Title: "t", Content: "c", CreatedAt: now, UpdatedAt: now,
	})
	if !errors.Is(err, common.ErrOwnershipConflict) {
		t.Fatalf("expected ErrOwnershipConflict, got %v", err)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+id,\s*user_id,\s*title,\s*content`).
		WithArgs("missing", "u-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "u-1", "missing")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestListByUser_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(noteColumns()).
		AddRow("n-2", "u-1", "newer", "c2", now, now).
		AddRow("n-1", "u-1", "older", "c1", now.Add(-time.Hour), now.Add(-time.Hour))
	mock.ExpectQuery(`(?s)SELECT\s+id,\s*user_id,\s*title,\s*content,\s*created_at,\s*updated_at\s+FROM\s+notes\s+WHERE\s+user_id\s*=\s*\$1\s+ORDER\s+BY\s+updated_at\s+DESC`).
		WithArgs("u-1").
		WillReturnRows(rows)

	got, err := repo.ListByUser(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("ListByUser error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "n-2" {
		t.Fatalf("unexpected notes: %+v", got)
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+notes`).
		WithArgs("missing", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "u-1", "missing")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestDelete_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+notes`).
		WithArgs("n-1", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "u-1", "n-1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
}

func TestUpsert_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`INSERT\s+INTO\s+notes`).
		WithArgs("n-1", "u-1", "t", "c", now, now).
		WillReturnError(errors.New("db down"))

	_, err := repo.Upsert(context.Background(), &models.Note{
		ID: "n-1", UserID: "u-1", Title: "t", Content: "c", CreatedAt: now, UpdatedAt: now,
	})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
