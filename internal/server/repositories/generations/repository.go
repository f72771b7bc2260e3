// Package generations persists the Version Ledger: one monotonically
// increasing generation counter per canonical filename.
package generations

import "context"

type Repository interface {
	// Get returns the stored generation, or 0 when none was recorded.
	Get(ctx context.Context, filename string) (int64, error)
	// Increment adds one to the stored generation (starting from 0) in a
	// single atomic statement and returns the new value.
	Increment(ctx context.Context, filename string) (int64, error)
}
