package generations

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophdocs/internal/dbx"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, filename string) (int64, error) {
	query := `SELECT generation FROM generations WHERE filename = $1`

	var gen int64
	err := r.db.QueryRowContext(ctx, query, filename).Scan(&gen)
	if err != nil {
		if dbx.IsNoRows(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return gen, nil
}

func (r *PostgresRepository) Increment(ctx context.Context, filename string) (int64, error) {
	query := `
		INSERT INTO generations (filename, generation, updated_at)
		VALUES ($1, 1, now())
		ON CONFLICT (filename)
		DO UPDATE SET generation = generations.generation + 1, updated_at = now()
		RETURNING generation
	`

	var gen int64
	if err := r.db.QueryRowContext(ctx, query, filename).Scan(&gen); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return gen, nil
}
