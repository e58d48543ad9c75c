package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/username/tokentracker/src/logger"
	"github.com/username/tokentracker/src/model"
	"github.com/username/tokentracker/src/models"
	"github.com/username/tokentracker/src/security"
	"github.com/username/tokentracker/src/security/validation"
	"golang.org/x/oauth2"
)

// Messages shown to the user verbatim.
const (
	MsgNoAccount           = "No account found with this email address"
	MsgIncorrectPassword   = "Incorrect password"
	MsgEmailInUse          = "An account with this email already exists"
	MsgSignOutFailed       = "An error occurred during sign out"
	MsgDifferentCredential = "An account already exists with the same email address but different sign-in credentials"
	MsgGoogleUnavailable   = "Google sign-in is not available"
	MsgGoogleFailed        = "Google sign-in failed. Please try again"
	MsgGoogleUnverified    = "Your Google account email is not verified"
	MsgInvalidRefreshToken = "Invalid or expired refresh token"
	MsgUnexpected          = "An unexpected error occurred. Please try again"
)

const (
	providerLocal  = "local"
	providerGoogle = "google"
)

var ErrUnauthenticated = errors.New("invalid or expired session")

type AuthProviderConfig struct {
	DB     *sql.DB
	Tokens *security.AuthService
	Email  EmailService
	// Google is nil when Google sign-in is disabled.
	Google            *oauth2.Config
	GoogleUserInfoURL string
}

type authProviderImpl struct {
	db          *sql.DB
	tokens      *security.AuthService
	email       EmailService
	google      *oauth2.Config
	userInfoURL string
}

func NewAuthProvider(cfg AuthProviderConfig) AuthProvider {
	userInfoURL := cfg.GoogleUserInfoURL
	if userInfoURL == "" {
		userInfoURL = security.GoogleUserInfoURL
	}
	return &authProviderImpl{
		db:          cfg.DB,
		tokens:      cfg.Tokens,
		email:       cfg.Email,
		google:      cfg.Google,
		userInfoURL: userInfoURL,
	}
}

func failure(msg string) models.AuthResult {
	return models.AuthResult{Success: false, Error: msg}
}

func userInfo(u *model.User) *models.UserInfo {
	return &models.UserInfo{
		ID:           u.ID,
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		AuthProvider: u.AuthProvider,
	}
}

// issueSession creates tokens and the session row backing them.
func (a *authProviderImpl) issueSession(ctx context.Context, u *model.User, meta SessionMeta) (models.AuthResult, error) {
	accessToken, err := a.tokens.GenerateToken(u.ID)
	if err != nil {
		return failure(MsgUnexpected), fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := a.tokens.GenerateRefreshToken()
	if err != nil {
		return failure(MsgUnexpected), fmt.Errorf("failed to generate refresh token: %w", err)
	}
	session := &model.Session{
		UserID:       u.ID,
		Token:        accessToken,
		RefreshToken: refreshToken,
		UserAgent:    meta.UserAgent,
		ClientIP:     meta.ClientIP,
		ExpiresAt:    a.tokens.RefreshExpiresAt(),
	}
	if err := model.CreateSession(ctx, a.db, session); err != nil {
		return failure(MsgUnexpected), fmt.Errorf("failed to create session: %w", err)
	}
	return models.AuthResult{
		Success:      true,
		User:         userInfo(u),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (a *authProviderImpl) SignUp(ctx context.Context, email, password string, meta SessionMeta) (models.AuthResult, error) {
	email = strings.TrimSpace(email)
	if !validation.ValidateEmail(email) {
		return failure(validation.UserMessage(validation.ErrInvalidEmail)), nil
	}
	if err := validation.ValidatePassword(password); err != nil {
		logger.FromContext(ctx).Debug("Sign-up rejected: weak password", "failedRules", len(validation.PasswordErrors(err)))
		return failure(validation.PasswordMessage(err)), nil
	}

	hash, err := a.tokens.HashPassword(password)
	if err != nil {
		return failure(MsgUnexpected), fmt.Errorf("failed to hash password: %w", err)
	}
	user := &model.User{
		Email:        email,
		Password:     hash,
		DisplayName:  strings.SplitN(email, "@", 2)[0],
		AuthProvider: providerLocal,
	}
	if err := user.CreateUser(ctx, a.db); err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			return failure(MsgEmailInUse), nil
		}
		return failure(MsgUnexpected), fmt.Errorf("failed to create user: %w", err)
	}
	logger.FromContext(ctx).Info("User signed up", "userID", user.ID)

	if a.email != nil {
		if err := a.email.SendWelcomeEmail(user.Email, user.DisplayName); err != nil {
			logger.FromContext(ctx).Warn("Failed to send welcome email", "userID", user.ID, "error", err)
		}
	}
	return a.issueSession(ctx, user, meta)
}

func (a *authProviderImpl) SignIn(ctx context.Context, email, password string, meta SessionMeta) (models.AuthResult, error) {
	email = strings.TrimSpace(email)
	if !validation.ValidateEmail(email) {
		return failure(validation.UserMessage(validation.ErrInvalidEmail)), nil
	}
	user, err := model.GetUserByEmail(ctx, a.db, email)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return failure(MsgNoAccount), nil
		}
		return failure(MsgUnexpected), fmt.Errorf("failed to look up user: %w", err)
	}
	if user.AuthProvider != providerLocal || user.Password == "" {
		return failure(MsgDifferentCredential), nil
	}
	if err := a.tokens.CompareHashAndPassword(user.Password, password); err != nil {
		return failure(MsgIncorrectPassword), nil
	}
	return a.issueSession(ctx, user, meta)
}

type googleUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Verified bool   `json:"verified_email"`
}

func (a *authProviderImpl) fetchGoogleUser(ctx context.Context, code string) (*googleUser, error) {
	token, err := a.google.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.google.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info from Google: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google userinfo returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response body: %w", err)
	}
	var gu googleUser
	if err := json.Unmarshal(body, &gu); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Google user info: %w", err)
	}
	return &gu, nil
}

func (a *authProviderImpl) SignInWithGoogle(ctx context.Context, code string, meta SessionMeta) (models.AuthResult, error) {
	if a.google == nil {
		return failure(MsgGoogleUnavailable), nil
	}
	gu, err := a.fetchGoogleUser(ctx, code)
	if err != nil {
		logger.FromContext(ctx).Error("Google sign-in failed", "error", err)
		return failure(MsgGoogleFailed), nil
	}
	if !gu.Verified || gu.Email == "" {
		return failure(MsgGoogleUnverified), nil
	}

	user, err := model.GetUserByEmail(ctx, a.db, gu.Email)
	switch {
	case errors.Is(err, model.ErrUserNotFound):
		user = &model.User{
			Email:        gu.Email,
			DisplayName:  gu.Name,
			AuthProvider: providerGoogle,
		}
		if err := user.CreateUser(ctx, a.db); err != nil {
			return failure(MsgUnexpected), fmt.Errorf("failed to create Google user: %w", err)
		}
		logger.FromContext(ctx).Info("Created user from Google sign-in", "userID", user.ID)
	case err != nil:
		return failure(MsgUnexpected), fmt.Errorf("failed to look up user: %w", err)
	case user.AuthProvider != providerGoogle || user.Password != "":
		logger.FromContext(ctx).Warn("Google login attempt for existing local account", "userID", user.ID)
		return failure(MsgDifferentCredential), nil
	}
	return a.issueSession(ctx, user, meta)
}

// Refresh rotates a session: the old one is removed and a new pair issued.
func (a *authProviderImpl) Refresh(ctx context.Context, refreshToken string, meta SessionMeta) (models.AuthResult, error) {
	if refreshToken == "" {
		return failure(MsgInvalidRefreshToken), nil
	}
	session, err := model.GetSessionByRefreshToken(ctx, a.db, refreshToken)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			return failure(MsgInvalidRefreshToken), nil
		}
		return failure(MsgUnexpected), fmt.Errorf("failed to load session: %w", err)
	}
	user, err := model.GetUserByID(ctx, a.db, session.UserID)
	if err != nil {
		return failure(MsgInvalidRefreshToken), nil
	}
	if err := model.DeleteSessionByID(ctx, a.db, session.ID); err != nil {
		return failure(MsgUnexpected), fmt.Errorf("failed to delete old session: %w", err)
	}
	return a.issueSession(ctx, user, meta)
}

func (a *authProviderImpl) SignOut(ctx context.Context, accessToken string) models.AuthResult {
	if err := model.DeleteSessionByToken(ctx, a.db, accessToken); err != nil {
		logger.FromContext(ctx).Error("Sign out failed", "error", err)
		return failure(MsgSignOutFailed)
	}
	return models.AuthResult{Success: true}
}

// Authenticate resolves an access token to its user. The token must be
// correctly signed and still backed by a live session.
func (a *authProviderImpl) Authenticate(ctx context.Context, accessToken string) (int64, error) {
	userID, err := a.tokens.ValidateToken(accessToken)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	session, err := model.GetSessionByToken(ctx, a.db, accessToken)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if session.UserID != userID {
		return 0, ErrUnauthenticated
	}
	return userID, nil
}

func (a *authProviderImpl) UserEmail(ctx context.Context, userID int64) (string, error) {
	u, err := model.GetUserByID(ctx, a.db, userID)
	if err != nil {
		return "", err
	}
	return u.Email, nil
}
