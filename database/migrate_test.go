package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUp_RunsEmbeddedMigrations(t *testing.T) {
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	origUp := gooseUp
	t.Cleanup(func() { gooseUp = origUp })

	var gotDB *sql.DB
	var gotDir string
	gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
		gotDB = db
		gotDir = dir
		return nil
	}

	err = Up(context.Background(), mockDB)
	require.NoError(t, err)
	assert.Same(t, mockDB, gotDB)
	assert.Equal(t, "migrations", gotDir)
}

func TestUp_Failure(t *testing.T) {
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	origUp := gooseUp
	t.Cleanup(func() { gooseUp = origUp })

	gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
		return errors.New("boom")
	}

	err = Up(context.Background(), mockDB)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to apply migrations")
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}
