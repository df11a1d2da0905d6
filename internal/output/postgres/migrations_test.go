package postgres

import (
	"io/fs"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	src, err := iofs.New(migrations, "migrations")
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	up, _, err := src.ReadUp(first)
	require.NoError(t, err)
	up.Close()

	down, _, err := src.ReadDown(first)
	require.NoError(t, err)
	down.Close()
}

func TestMigrationsCreateSinkTables(t *testing.T) {
	body, err := fs.ReadFile(migrations, "migrations/000001_init.up.sql")
	require.NoError(t, err)

	for _, table := range []string{"correlation_runs", "findings", "finding_events"} {
		assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS "+table)
	}
}

func TestMetadataOrEmpty(t *testing.T) {
	assert.Equal(t, map[string]any{}, metadataOrEmpty(nil))
	assert.Equal(t, map[string]any{"a": 1}, metadataOrEmpty(map[string]any{"a": 1}))
}
