package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/echo/internal/dbx"
	"github.com/dmitrijs2005/echo/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/echo/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a connection or transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
