package database

import (
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_ConnString(t *testing.T) {
	cfg := Config{
		Host:     "db.internal",
		Port:     5433,
		Database: "ms_dte_bridge",
		User:     "bridge",
		Password: "p@ss word/1",
		SSLMode:  "require",
	}

	parsed, err := pgxpool.ParseConfig(cfg.ConnString())
	require.NoError(t, err)

	conn := parsed.ConnConfig
	assert.Equal(t, "db.internal", conn.Host)
	assert.Equal(t, uint16(5433), conn.Port)
	assert.Equal(t, "ms_dte_bridge", conn.Database)
	assert.Equal(t, "bridge", conn.User)
	assert.Equal(t, "p@ss word/1", conn.Password)
}

func TestMigrationFiles_Sorted(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/002_create_dte_emission.sql":          {Data: []byte("SELECT 2")},
		"migrations/001_create_provider_audit_log.sql":    {Data: []byte("SELECT 1")},
		"migrations/README.md":                            {Data: []byte("ignored")},
		"migrations/010_add_dte_emission_order_index.sql": {Data: []byte("SELECT 10")},
	}

	files, err := migrationFiles(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"migrations/001_create_provider_audit_log.sql",
		"migrations/002_create_dte_emission.sql",
		"migrations/010_add_dte_emission_order_index.sql",
	}, files)
}

func TestMigrationFiles_Embedded(t *testing.T) {
	files, err := migrationFiles(migrationsFS)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"migrations/001_create_provider_audit_log.sql",
		"migrations/002_create_dte_emission.sql",
	}, files)
}
