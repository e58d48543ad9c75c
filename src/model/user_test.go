package model

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/tokentracker/src/database"
)

func TestUserAndSessionLifecycle(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	u := &User{Email: "Satoshi@example.com", Password: "hash"}
	require.NoError(t, u.CreateUser(ctx, db))
	assert.NotZero(t, u.ID)
	assert.Equal(t, "local", u.AuthProvider)

	dup := &User{Email: "satoshi@example.com"}
	assert.ErrorIs(t, dup.CreateUser(ctx, db), ErrEmailTaken)

	got, err := GetUserByEmail(ctx, db, "SATOSHI@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = GetUserByID(ctx, db, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)

	s := &Session{UserID: u.ID, Token: "access", RefreshToken: "refresh", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, CreateSession(ctx, db, s))

	found, err := GetSessionByToken(ctx, db, "access")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.UserID)

	found, err = GetSessionByRefreshToken(ctx, db, "refresh")
	require.NoError(t, err)
	assert.Equal(t, s.ID, found.ID)

	require.NoError(t, DeleteSessionByToken(ctx, db, "access"))
	_, err = GetSessionByToken(ctx, db, "access")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestGetSession_Expired(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	u := &User{Email: "a@b.co"}
	require.NoError(t, u.CreateUser(ctx, db))
	require.NoError(t, CreateSession(ctx, db, &Session{UserID: u.ID, Token: "old", RefreshToken: "r", ExpiresAt: time.Now().Add(-time.Minute)}))

	_, err = GetSessionByToken(ctx, db, "old")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
