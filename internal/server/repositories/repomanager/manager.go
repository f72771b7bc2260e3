// Package repomanager vends the ledger and registry repositories for the
// configured SQL backend and runs the embedded goose migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophdocs/internal/dbx"
	"github.com/dmitrijs2005/gophdocs/internal/server/repositories/generations"
	"github.com/dmitrijs2005/gophdocs/internal/server/repositories/sessionkeys"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Generations(db dbx.DBTX) generations.Repository
	SessionKeys(db dbx.DBTX) sessionkeys.Repository
}
