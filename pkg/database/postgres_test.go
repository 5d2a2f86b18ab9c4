package database

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-records-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "app", Password: "secret", Name: "records", SSLMode: "require"})
	assert.Equal(t, "host=db port=5433 user=app password=secret dbname=records sslmode=require", dsn)
}

func TestMigrationsAreEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_create_students.up.sql")
	assert.Contains(t, names, "000001_create_students.down.sql")

	up, err := fs.ReadFile(migrationsFS, "migrations/000001_create_students.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "students_name_key_idx")
	assert.Contains(t, string(up), "ON DELETE CASCADE")
}
