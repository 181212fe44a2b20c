package repomanager

import (
	"context"
	"database/sql"

	"github.com/Evermishka/notes-app/internal/dbx"
	"github.com/Evermishka/notes-app/internal/server/repositories/notes"
	"github.com/Evermishka/notes-app/internal/server/repositories/refreshtokens"
	"github.com/Evermishka/notes-app/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can use
// the same constructors inside and outside transactions.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Notes(db dbx.DBTX) notes.Repository
}
