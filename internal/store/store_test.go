package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialect_Rebind(t *testing.T) {
	q := `SELECT * FROM events WHERE owner_id = ? AND due_at >= ? LIMIT ?`
	assert.Equal(t, q, SQLite.Rebind(q))
	assert.Equal(t,
		`SELECT * FROM events WHERE owner_id = $1 AND due_at >= $2 LIMIT $3`,
		Postgres.Rebind(q))
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("postgres")
	require.NoError(t, err)
	assert.Equal(t, Postgres, d)

	_, err = DialectFor("mysql")
	assert.Error(t, err)
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.db")
	r, err := Open(context.Background(), SQLite.Name, path)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	r, err = Open(context.Background(), SQLite.Name, path)
	require.NoError(t, err)
	require.NoError(t, r.Close())
}

func TestLoadSeed_Default(t *testing.T) {
	s, err := LoadSeed("")
	require.NoError(t, err)
	assert.Equal(t, []string{"Birthdays"}, s.Categories)
}

func TestApplySeed_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  - Holidays\n  - Birthdays\n  - \"\"\n"), 0o600))

	s, err := LoadSeed(path)
	require.NoError(t, err)

	repo := NewMemoryRepo()
	ctx := context.Background()
	require.NoError(t, ApplySeed(ctx, repo, s))
	require.NoError(t, ApplySeed(ctx, repo, s))

	list, err := repo.ListCategories(ctx, 42)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Holidays", list[0].Name)
	assert.True(t, list[0].IsGlobal())
}
