package repomanager

import (
	"context"
	"database/sql"
	"sync"

	"github.com/dmitrijs2005/gophdocs/internal/dbx"
	"github.com/dmitrijs2005/gophdocs/internal/server/repositories/generations"
	"github.com/dmitrijs2005/gophdocs/internal/server/repositories/sessionkeys"
	_ "modernc.org/sqlite"
)

var gooseMu sync.Mutex

// SQLiteRepositoryManager vends SQLite-backed repositories for single-node
// deployments.
type SQLiteRepositoryManager struct{}

func (m *SQLiteRepositoryManager) Generations(db dbx.DBTX) generations.Repository {
	return generations.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) SessionKeys(db dbx.DBTX) sessionkeys.Repository {
	return sessionkeys.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return runMigrations(ctx, db, "sqlite3")
}

func NewSQLiteRepositoryManager() RepositoryManager {
	return &SQLiteRepositoryManager{}
}
