package sessionkeys

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophdocs/internal/common"
	"github.com/dmitrijs2005/gophdocs/internal/dbx"
	"github.com/dmitrijs2005/gophdocs/internal/server/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, sk *models.SessionKey) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_keys (session_key, filename, generation) VALUES (?, ?, ?)
		ON CONFLICT(session_key) DO UPDATE SET filename = excluded.filename, generation = excluded.generation, purged_at = NULL
	`, sk.Key, sk.Filename, sk.Generation)
	if err != nil {
		return fmt.Errorf("failed to upsert session key[%s]: %w", sk.Key, err)
	}
	return nil
}

func (r *SQLiteRepository) GetByKey(ctx context.Context, key string) (*models.SessionKey, error) {
	sk := &models.SessionKey{}
	var created any
	err := r.db.QueryRowContext(ctx,
		`SELECT session_key, filename, generation, created_at FROM session_keys WHERE session_key = ? AND purged_at IS NULL`, key).
		Scan(&sk.Key, &sk.Filename, &sk.Generation, &created)
	if dbx.IsNoRows(err) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session key[%s]: %w", key, err)
	}
	sk.CreatedAt = sqliteTime(created)
	return sk, nil
}

func (r *SQLiteRepository) ListKeysByFilename(ctx context.Context, filename string) ([]string, error) {
	return r.listKeys(ctx,
		`SELECT session_key FROM session_keys WHERE filename = ? AND purged_at IS NULL ORDER BY generation`, filename)
}

func (r *SQLiteRepository) ListPurgedKeysByFilename(ctx context.Context, filename string) ([]string, error) {
	return r.listKeys(ctx,
		`SELECT session_key FROM session_keys WHERE filename = ? AND purged_at IS NOT NULL ORDER BY generation`, filename)
}

func (r *SQLiteRepository) listKeys(ctx context.Context, query, filename string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to list session keys[%s]: %w", filename, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan session key row: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session key rows: %w", err)
	}
	return keys, nil
}

func (r *SQLiteRepository) PurgeByFilename(ctx context.Context, filename string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE session_keys SET purged_at = CURRENT_TIMESTAMP WHERE filename = ? AND purged_at IS NULL`, filename)
	if err != nil {
		return 0, fmt.Errorf("failed to purge session keys[%s]: %w", filename, err)
	}
	return res.RowsAffected()
}

// sqliteTime accepts both representations the driver may hand back for a
// CURRENT_TIMESTAMP column.
func sqliteTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse(time.DateTime, t); err == nil {
			return parsed
		}
	case []byte:
		if parsed, err := time.Parse(time.DateTime, string(t)); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
