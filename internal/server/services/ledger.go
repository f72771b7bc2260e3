package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophdocs/internal/common"
	"github.com/dmitrijs2005/gophdocs/internal/lockx"
	"github.com/dmitrijs2005/gophdocs/internal/server/repositories/repomanager"
)

// Ledger is the Version Ledger: a durable generation counter per canonical
// filename. Bumps on one filename are serialized; different filenames
// proceed in parallel.
type Ledger struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	locks       lockx.KeyedMutex
}

func NewLedger(db *sql.DB, repomanager repomanager.RepositoryManager) *Ledger {
	return &Ledger{db: db, repomanager: repomanager}
}

// Generation returns the current generation, 0 when the filename was never
// invalidated.
func (l *Ledger) Generation(ctx context.Context, filename string) (int64, error) {
	gen, err := l.repomanager.Generations(l.db).Get(ctx, filename)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}
	return gen, nil
}

// Bump increments and persists the generation and returns the new value.
func (l *Ledger) Bump(ctx context.Context, filename string) (int64, error) {
	unlock := l.locks.Lock(filename)
	defer unlock()

	gen, err := l.repomanager.Generations(l.db).Increment(ctx, filename)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}
	return gen, nil
}
