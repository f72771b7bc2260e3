package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophdocs/internal/common"
	"github.com/dmitrijs2005/gophdocs/internal/lockx"
	"github.com/dmitrijs2005/gophdocs/internal/logging"
	"github.com/dmitrijs2005/gophdocs/internal/server/storage"
)

// Reconciler is the Lifecycle Reconciler. It invalidates every session
// issued for a filename when the document is deleted or recreated.
type Reconciler struct {
	ledger   *Ledger
	registry *Registry
	storage  storage.Storage
	locks    *lockx.KeyedMutex
	log      logging.Logger
}

func NewReconciler(ledger *Ledger, registry *Registry, st storage.Storage, locks *lockx.KeyedMutex, log logging.Logger) *Reconciler {
	return &Reconciler{
		ledger:   ledger,
		registry: registry,
		storage:  st,
		locks:    locks,
		log:      log.With("module", "reconciler"),
	}
}

// Invalidation reports what a reconcile removed.
type Invalidation struct {
	Keys       []string
	Removed    []string
	Generation int64
}

// OnDelete invalidates filename. remove (if not nil) deletes the document
// itself first, under the same lock; its error aborts the reconcile.
func (r *Reconciler) OnDelete(ctx context.Context, filename string, remove func(ctx context.Context) error) (Invalidation, error) {
	unlock := r.locks.Lock(filename)
	defer unlock()

	if remove != nil {
		if err := remove(ctx); err != nil {
			return Invalidation{}, err
		}
	}
	return r.invalidate(ctx, filename, "delete")
}

// OnRecreate invalidates filename and then, still holding its lock, runs
// materialize (if not nil) to write the new content. A late callback for the
// previous document cannot land between the two.
func (r *Reconciler) OnRecreate(ctx context.Context, filename string, materialize func(ctx context.Context) error) (Invalidation, error) {
	unlock := r.locks.Lock(filename)
	defer unlock()

	inv, err := r.invalidate(ctx, filename, "recreate")
	if err != nil {
		return inv, err
	}
	if materialize != nil {
		if err := materialize(ctx); err != nil {
			return inv, err
		}
	}
	return inv, nil
}

func (r *Reconciler) invalidate(ctx context.Context, filename, reason string) (Invalidation, error) {
	var inv Invalidation

	keys, err := r.registry.Purge(ctx, filename)
	if err != nil {
		return inv, err
	}
	inv.Keys = keys

	// Includes keys purged by earlier reconciles: a late save-back for one of
	// them lands under a key-derived name after its purge.
	stale, err := r.registry.Purged(ctx, filename)
	if err != nil {
		return inv, err
	}

	removed, err := r.removeKeyFiles(ctx, filename, stale)
	inv.Removed = removed
	if err != nil {
		return inv, err
	}

	gen, err := r.ledger.Bump(ctx, filename)
	if err != nil {
		return inv, err
	}
	inv.Generation = gen

	r.log.Info(ctx, "sessions invalidated", "file", filename, "reason", reason,
		"keys", len(keys), "removed", len(removed), "generation", gen)
	return inv, nil
}

// removeKeyFiles deletes documents stored under a purged key, i.e. named
// "<key>" or "<key>.<ext>" by an unresolved save-back.
func (r *Reconciler) removeKeyFiles(ctx context.Context, filename string, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	files, err := r.storage.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %w", common.ErrPersistence, err)
	}

	var removed []string
	for _, f := range files {
		if f.Name == filename || !matchesKey(f.Name, keys) {
			continue
		}
		if err := r.storage.Delete(ctx, f.Name); err != nil && !errors.Is(err, common.ErrorNotFound) {
			return removed, fmt.Errorf("%w: delete %s: %w", common.ErrPersistence, f.Name, err)
		}
		removed = append(removed, f.Name)
	}
	return removed, nil
}

func matchesKey(name string, keys []string) bool {
	for _, k := range keys {
		if name == k || strings.HasPrefix(name, k+".") {
			return true
		}
	}
	return false
}
