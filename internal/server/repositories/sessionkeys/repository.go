// Package sessionkeys persists the Key Registry: session key -> canonical
// filename, written synchronously so late save-back callbacks still resolve.
// Purged keys are kept as tombstones so files later stored under them can be
// traced back to the document they belonged to.
package sessionkeys

import (
	"context"

	"github.com/dmitrijs2005/gophdocs/internal/server/models"
)

type Repository interface {
	// Upsert inserts or overwrites the mapping for sk.Key.
	Upsert(ctx context.Context, sk *models.SessionKey) error
	// Upsert of a purged key makes it live again.
	// GetByKey returns common.ErrorNotFound for unknown and purged keys.
	GetByKey(ctx context.Context, key string) (*models.SessionKey, error)
	// ListKeysByFilename returns every live key mapped to filename.
	ListKeysByFilename(ctx context.Context, filename string) ([]string, error)
	// ListPurgedKeysByFilename returns every purged key once mapped to filename.
	ListPurgedKeysByFilename(ctx context.Context, filename string) ([]string, error)
	// PurgeByFilename tombstones every live mapping for filename.
	PurgeByFilename(ctx context.Context, filename string) (int64, error)
}
