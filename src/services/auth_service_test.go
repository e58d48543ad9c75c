package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/tokentracker/src/database"
	"github.com/username/tokentracker/src/models"
	"github.com/username/tokentracker/src/security"
	"golang.org/x/oauth2"
)

var testMeta = SessionMeta{UserAgent: "go-test", ClientIP: "127.0.0.1"}

func newTestAuthProvider(t *testing.T, google *oauth2.Config, userInfoURL string) (AuthProvider, *recordingEmail) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	email := &recordingEmail{}
	return NewAuthProvider(AuthProviderConfig{
		DB:                db,
		Tokens:            security.NewAuthService("test-secret", 15*time.Minute, 24*time.Hour),
		Email:             email,
		Google:            google,
		GoogleUserInfoURL: userInfoURL,
	}), email
}

func TestAuthProvider_SignUpAndSignIn(t *testing.T) {
	auth, email := newTestAuthProvider(t, nil, "")
	ctx := context.Background()

	res, err := auth.SignUp(ctx, "satoshi@example.com", "Secret1!", testMeta)
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "satoshi", res.User.DisplayName)
	assert.Equal(t, []string{"satoshi@example.com"}, email.welcomes)

	id, err := auth.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id)

	dup, err := auth.SignUp(ctx, "SATOSHI@example.com", "Secret1!", testMeta)
	require.NoError(t, err)
	assert.False(t, dup.Success)
	assert.Equal(t, MsgEmailInUse, dup.Error)

	in, err := auth.SignIn(ctx, "satoshi@example.com", "Secret1!", testMeta)
	require.NoError(t, err)
	assert.True(t, in.Success)

	wrong, err := auth.SignIn(ctx, "satoshi@example.com", "Secret2!", testMeta)
	require.NoError(t, err)
	assert.Equal(t, models.AuthResult{Success: false, Error: MsgIncorrectPassword}, wrong)

	missing, err := auth.SignIn(ctx, "nobody@example.com", "Secret1!", testMeta)
	require.NoError(t, err)
	assert.Equal(t, MsgNoAccount, missing.Error)
}

func TestAuthProvider_SignUpValidation(t *testing.T) {
	auth, _ := newTestAuthProvider(t, nil, "")
	ctx := context.Background()

	res, err := auth.SignUp(ctx, "not-an-email", "Secret1!", testMeta)
	require.NoError(t, err)
	assert.Equal(t, "Please enter a valid email address", res.Error)

	res, err = auth.SignUp(ctx, "a@b.co", "short", testMeta)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Error, "Password validation failed:"))
	assert.Contains(t, res.Error, "at least one uppercase letter")
	assert.Contains(t, res.Error, "at least one special character")
}

func TestAuthProvider_RefreshAndSignOut(t *testing.T) {
	auth, _ := newTestAuthProvider(t, nil, "")
	ctx := context.Background()

	res, err := auth.SignUp(ctx, "a@b.co", "Secret1!", testMeta)
	require.NoError(t, err)

	refreshed, err := auth.Refresh(ctx, res.RefreshToken, testMeta)
	require.NoError(t, err)
	require.True(t, refreshed.Success)
	assert.NotEqual(t, res.AccessToken, refreshed.AccessToken)

	_, err = auth.Authenticate(ctx, res.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated, "rotated session is gone")

	again, err := auth.Refresh(ctx, res.RefreshToken, testMeta)
	require.NoError(t, err)
	assert.Equal(t, MsgInvalidRefreshToken, again.Error)

	out := auth.SignOut(ctx, refreshed.AccessToken)
	assert.True(t, out.Success)
	_, err = auth.Authenticate(ctx, refreshed.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = auth.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func newGoogleServer(t *testing.T, userJSON string) (*oauth2.Config, string) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"google-access","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer google-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(userJSON))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	cfg := &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
	}
	return cfg, srv.URL + "/userinfo"
}

func TestAuthProvider_SignInWithGoogle(t *testing.T) {
	cfg, infoURL := newGoogleServer(t, `{"id":"1","email":"g@example.com","name":"Gee","verified_email":true}`)
	auth, _ := newTestAuthProvider(t, cfg, infoURL)
	ctx := context.Background()

	res, err := auth.SignInWithGoogle(ctx, "code", testMeta)
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "google", res.User.AuthProvider)
	assert.Equal(t, "Gee", res.User.DisplayName)

	second, err := auth.SignInWithGoogle(ctx, "code", testMeta)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, second.User.ID)

	local, err := auth.SignIn(ctx, "g@example.com", "Secret1!", testMeta)
	require.NoError(t, err)
	assert.Equal(t, MsgDifferentCredential, local.Error)
}

func TestAuthProvider_GoogleRefusesLocalAccount(t *testing.T) {
	cfg, infoURL := newGoogleServer(t, `{"id":"1","email":"a@b.co","name":"A","verified_email":true}`)
	auth, _ := newTestAuthProvider(t, cfg, infoURL)
	ctx := context.Background()

	_, err := auth.SignUp(ctx, "a@b.co", "Secret1!", testMeta)
	require.NoError(t, err)

	res, err := auth.SignInWithGoogle(ctx, "code", testMeta)
	require.NoError(t, err)
	assert.Equal(t, MsgDifferentCredential, res.Error)
}

func TestAuthProvider_GoogleUnverifiedOrDisabled(t *testing.T) {
	cfg, infoURL := newGoogleServer(t, `{"id":"1","email":"u@example.com","verified_email":false}`)
	auth, _ := newTestAuthProvider(t, cfg, infoURL)
	res, err := auth.SignInWithGoogle(context.Background(), "code", testMeta)
	require.NoError(t, err)
	assert.Equal(t, MsgGoogleUnverified, res.Error)

	disabled, _ := newTestAuthProvider(t, nil, "")
	res, err = disabled.SignInWithGoogle(context.Background(), "code", testMeta)
	require.NoError(t, err)
	assert.Equal(t, MsgGoogleUnavailable, res.Error)
}
