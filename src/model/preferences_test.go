package model

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/tokentracker/src/database"
)

func TestSQLitePreferenceStore_RoundTrip(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLitePreferenceStore(db)
	ctx := context.Background()

	_, found, err := store.Get(ctx, 1, "theme")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, 1, "theme", "dark"))
	require.NoError(t, store.Set(ctx, 1, "theme", "light"))
	require.NoError(t, store.Set(ctx, 2, "theme", "dark"))

	v, found, err := store.Get(ctx, 1, "theme")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "light", v)

	v, _, err = store.Get(ctx, 2, "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", v)
}

func TestSQLitePreferenceStore_PropagatesErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT value FROM preferences").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectExec("INSERT INTO preferences").WillReturnError(errors.New("database is locked"))

	store := NewSQLitePreferenceStore(db)
	_, _, err = store.Get(context.Background(), 1, "favorites")
	assert.ErrorContains(t, err, "disk I/O error")

	err = store.Set(context.Background(), 1, "favorites", "[]")
	assert.ErrorContains(t, err, "database is locked")

	assert.NoError(t, mock.ExpectationsWereMet())
}
