package generations

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophdocs/internal/dbx"
)

// SQLiteRepository is the single-node ledger store. Requires SQLite 3.35+
// for UPSERT ... RETURNING.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, filename string) (int64, error) {
	var gen int64
	err := r.db.QueryRowContext(ctx, `SELECT generation FROM generations WHERE filename = ?`, filename).Scan(&gen)
	if dbx.IsNoRows(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get generation[%s]: %w", filename, err)
	}
	return gen, nil
}

func (r *SQLiteRepository) Increment(ctx context.Context, filename string) (int64, error) {
	var gen int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO generations (filename, generation, updated_at) VALUES (?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(filename) DO UPDATE SET generation = generation + 1, updated_at = CURRENT_TIMESTAMP
		RETURNING generation
	`, filename).Scan(&gen)
	if err != nil {
		return 0, fmt.Errorf("failed to increment generation[%s]: %w", filename, err)
	}
	return gen, nil
}
