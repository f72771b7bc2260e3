package sessionkeys

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophdocs/internal/common"
	"github.com/dmitrijs2005/gophdocs/internal/dbx"
	"github.com/dmitrijs2005/gophdocs/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, sk *models.SessionKey) error {
	query := `
		INSERT INTO session_keys (session_key, filename, generation)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_key)
		DO UPDATE SET filename = EXCLUDED.filename, generation = EXCLUDED.generation, purged_at = NULL
	`
	if _, err := r.db.ExecContext(ctx, query, sk.Key, sk.Filename, sk.Generation); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByKey(ctx context.Context, key string) (*models.SessionKey, error) {
	query := `SELECT session_key, filename, generation, created_at FROM session_keys WHERE session_key = $1 AND purged_at IS NULL`

	sk := &models.SessionKey{}
	err := r.db.QueryRowContext(ctx, query, key).Scan(&sk.Key, &sk.Filename, &sk.Generation, &sk.CreatedAt)
	if err != nil {
		if dbx.IsNoRows(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return sk, nil
}

func (r *PostgresRepository) ListKeysByFilename(ctx context.Context, filename string) ([]string, error) {
	query := `SELECT session_key FROM session_keys WHERE filename = $1 AND purged_at IS NULL ORDER BY generation`
	return r.listKeys(ctx, query, filename)
}

func (r *PostgresRepository) ListPurgedKeysByFilename(ctx context.Context, filename string) ([]string, error) {
	query := `SELECT session_key FROM session_keys WHERE filename = $1 AND purged_at IS NOT NULL ORDER BY generation`
	return r.listKeys(ctx, query, filename)
}

func (r *PostgresRepository) listKeys(ctx context.Context, query, filename string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to select session keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *PostgresRepository) PurgeByFilename(ctx context.Context, filename string) (int64, error) {
	query := `UPDATE session_keys SET purged_at = CURRENT_TIMESTAMP WHERE filename = $1 AND purged_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, filename)
	if err != nil {
		return 0, fmt.Errorf("failed to purge session keys: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
