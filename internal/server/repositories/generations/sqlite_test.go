package generations

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE generations (
  filename   TEXT PRIMARY KEY,
  generation BIGINT NOT NULL DEFAULT 0,
  updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`)
	require.NoError(t, err)
	return db
}

func TestSQLite_GetAbsentIsZero(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	gen, err := r.Get(context.Background(), "missing.docx")
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)
}

func TestSQLite_IncrementIsStrictlyIncreasing(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	var prev int64
	for i := 0; i < 5; i++ {
		gen, err := r.Increment(ctx, "report.docx")
		require.NoError(t, err)
		assert.Greater(t, gen, prev)
		prev = gen
	}

	got, err := r.Get(ctx, "report.docx")
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)

	other, err := r.Get(ctx, "other.xlsx")
	require.NoError(t, err)
	assert.Equal(t, int64(0), other, "counters are per filename")
}

func TestSQLite_ConcurrentIncrementsAreNotLost(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Increment(ctx, "shared.pptx")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := r.Get(ctx, "shared.pptx")
	require.NoError(t, err)
	assert.Equal(t, int64(n), got)
}
