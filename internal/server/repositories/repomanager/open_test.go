package repomanager

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDSN(t *testing.T) {
	tests := []struct {
		name       string
		dsn        string
		wantDriver string
		wantSource string
		wantErr    bool
	}{
		{name: "postgres", dsn: "postgres://u:p@db:5432/docs?sslmode=disable", wantDriver: "pgx", wantSource: "postgres://u:p@db:5432/docs?sslmode=disable"},
		{name: "postgresql", dsn: "postgresql://db/docs", wantDriver: "pgx", wantSource: "postgresql://db/docs"},
		{name: "sqlite scheme", dsn: "sqlite:///var/lib/gophdocs/state.db", wantDriver: "sqlite", wantSource: "/var/lib/gophdocs/state.db"},
		{name: "sqlite file uri", dsn: "file:state.db?_pragma=busy_timeout(5000)", wantDriver: "sqlite", wantSource: "file:state.db?_pragma=busy_timeout(5000)"},
		{name: "memory", dsn: ":memory:", wantDriver: "sqlite", wantSource: ":memory:"},
		{name: "empty", dsn: " ", wantErr: true},
		{name: "mysql", dsn: "mysql://db/docs", wantErr: true},
		{name: "sqlite without path", dsn: "sqlite://", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, source, m, err := resolveDSN(tt.dsn)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDriver, driver)
			assert.Equal(t, tt.wantSource, source)
			assert.NotNil(t, m)
		})
	}
}

func TestOpen_SQLiteRunsMigrations(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	db, m, err := Open(ctx, "sqlite://"+path)
	require.NoError(t, err)
	defer db.Close()

	gen, err := m.Generations(db).Increment(ctx, "report.docx")
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)

	keys, err := m.SessionKeys(db).ListKeysByFilename(ctx, "report.docx")
	require.NoError(t, err)
	assert.Empty(t, keys)

	// tombstone column comes from the second migration
	n, err := m.SessionKeys(db).PurgeByFilename(ctx, "report.docx")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpen_SQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dsn := "sqlite://" + filepath.Join(t.TempDir(), "state.db")

	db, m, err := Open(ctx, dsn)
	require.NoError(t, err)
	_, err = m.Generations(db).Increment(ctx, "report.docx")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db2, m2, err := Open(ctx, dsn)
	require.NoError(t, err)
	defer db2.Close()

	gen, err := m2.Generations(db2).Get(ctx, "report.docx")
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen, "ledger survives a restart")
}
