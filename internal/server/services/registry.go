package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophdocs/internal/common"
	"github.com/dmitrijs2005/gophdocs/internal/dbx"
	"github.com/dmitrijs2005/gophdocs/internal/server/models"
	"github.com/dmitrijs2005/gophdocs/internal/server/repositories/repomanager"
)

// Registry is the Key Registry: session key -> canonical filename. Every
// mutation is committed before the call returns.
type Registry struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	mu          sync.RWMutex
}

func NewRegistry(db *sql.DB, repomanager repomanager.RepositoryManager) *Registry {
	return &Registry{db: db, repomanager: repomanager}
}

// Register inserts or overwrites the mapping for key.
func (r *Registry) Register(ctx context.Context, key, filename string, generation int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.repomanager.SessionKeys(r.db).Upsert(ctx, &models.SessionKey{
		Key:        key,
		Filename:   filename,
		Generation: generation,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}
	return nil
}

// Resolve returns the entry for key, or common.ErrorNotFound.
func (r *Registry) Resolve(ctx context.Context, key string) (*models.SessionKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sk, err := r.repomanager.SessionKeys(r.db).GetByKey(ctx, key)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}
	return sk, nil
}

// Purge removes every key mapped to filename and returns the removed keys.
// Removed keys stop resolving but are remembered, see Purged.
func (r *Registry) Purge(ctx context.Context, filename string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys, err := dbx.WithTxValue(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) ([]string, error) {
		repo := r.repomanager.SessionKeys(tx)
		keys, err := repo.ListKeysByFilename(ctx, filename)
		if err != nil {
			return nil, err
		}
		if len(keys) == 0 {
			return nil, nil
		}
		if _, err := repo.PurgeByFilename(ctx, filename); err != nil {
			return nil, err
		}
		return keys, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}
	return keys, nil
}

// Purged returns every key ever purged for filename.
func (r *Registry) Purged(ctx context.Context, filename string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys, err := r.repomanager.SessionKeys(r.db).ListPurgedKeysByFilename(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}
	return keys, nil
}
