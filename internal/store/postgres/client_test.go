package postgres

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	assert.Equal(t, "postgres://u@h/x", DSN(ClientConfig{DSN: " postgres://u@h/x "}))
	assert.Equal(t, "postgres://explicit", DSN(ClientConfig{DSN: "postgres://explicit", Host: "ignored"}))
	assert.Equal(t, "postgres://u:p@db:5432/obrix?sslmode=disable",
		DSN(ClientConfig{Host: "db", Database: "obrix", User: "u", Password: "p"}))

	got := DSN(ClientConfig{Host: "db", Database: "obrix", User: "obrix", Password: "p@ss/word"})
	assert.Equal(t, "postgres://obrix:p%40ss%2Fword@db:5432/obrix?sslmode=disable", got)

	got = DSN(ClientConfig{Host: "db", Port: 6543, Database: "obrix", User: "ro", SSLMode: "require"})
	assert.Equal(t, "postgres://ro@db:6543/obrix?sslmode=require", got)
}

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/002_b.sql": {Data: []byte("select 2")},
		"m/001_a.sql": {Data: []byte("select 1")},
		"m/003_c.sql": {Data: []byte("select 3")},
		"m/README.md": {Data: []byte("docs")},
		"m/sub/x.sql": {Data: []byte("nested")},
	}

	got, err := pendingMigrations(fsys, "m", map[string]bool{"002_b.sql": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"001_a.sql", "003_c.sql"}, got)
}

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	got, err := pendingMigrations(migrationsFS, "migrations", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_metrics.sql", "002_alert_log.sql"}, got)
}
