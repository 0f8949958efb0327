// Package repomanager vends repository implementations bound to a database
// handle, so services can run the same repositories against *sql.DB or an
// open transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/mkuznecov/authkeeper/internal/dbx"
	"github.com/mkuznecov/authkeeper/internal/server/repositories/refreshtokens"
	"github.com/mkuznecov/authkeeper/internal/server/repositories/users"
)

// RepositoryManager constructs repositories over the given DBTX and exposes
// a schema migration hook.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
