package model

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrSessionNotFound = errors.New("session not found, expired, or blocked")
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Password     string    `json:"-"` // bcrypt hash, empty for OAuth accounts
	DisplayName  string    `json:"display_name"`
	AuthProvider string    `json:"auth_provider"` // "local" or "google"
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Session struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Token        string    `json:"token"`         // Access Token
	RefreshToken string    `json:"refresh_token"` // Refresh Token
	UserAgent    string    `json:"user_agent"`
	ClientIP     string    `json:"client_ip"`
	IsBlocked    bool      `json:"is_blocked"`
	ExpiresAt    time.Time `json:"expires_at"` // Expiry of the refresh token
	CreatedAt    time.Time `json:"created_at"`
}

// CreateUser inserts a new user into the database.
func (u *User) CreateUser(ctx context.Context, db *sql.DB) error {
	if u.AuthProvider == "" {
		u.AuthProvider = "local"
	}
	now := time.Now()
	res, err := db.ExecContext(ctx, `
	INSERT INTO users (email, password, display_name, auth_provider, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)`,
		u.Email, u.Password, u.DisplayName, u.AuthProvider, now, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrEmailTaken
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

func scanUser(row *sql.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.Password, &user.DisplayName, &user.AuthProvider, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*User, error) {
	row := db.QueryRowContext(ctx, `
	SELECT id, email, password, display_name, auth_provider, created_at, updated_at
	FROM users
	WHERE lower(email) = lower(?)`, email)
	return scanUser(row)
}

func GetUserByID(ctx context.Context, db *sql.DB, id int64) (*User, error) {
	row := db.QueryRowContext(ctx, `
	SELECT id, email, password, display_name, auth_provider, created_at, updated_at
	FROM users
	WHERE id = ?`, id)
	return scanUser(row)
}

// CreateSession inserts a new session into the database.
func CreateSession(ctx context.Context, db *sql.DB, session *Session) error {
	session.CreatedAt = time.Now() // Ensure CreatedAt is set
	res, err := db.ExecContext(ctx, `
	INSERT INTO sessions (user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.UserID,
		session.Token,
		session.RefreshToken,
		session.UserAgent,
		session.ClientIP,
		session.IsBlocked,
		session.ExpiresAt,
		session.CreatedAt,
	)
	if err != nil {
		return err
	}
	session.ID, err = res.LastInsertId()
	return err
}

func getSession(ctx context.Context, db *sql.DB, column, value string) (*Session, error) {
	row := db.QueryRowContext(ctx, `
	SELECT id, user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at
	FROM sessions
	WHERE `+column+` = ? AND is_blocked = FALSE AND expires_at > ?`, value, time.Now())
	var session Session
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.RefreshToken,
		&session.UserAgent,
		&session.ClientIP,
		&session.IsBlocked,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// GetSessionByToken retrieves an active, non-blocked session by its access token.
func GetSessionByToken(ctx context.Context, db *sql.DB, token string) (*Session, error) {
	return getSession(ctx, db, "token", token)
}

func GetSessionByRefreshToken(ctx context.Context, db *sql.DB, refreshToken string) (*Session, error) {
	return getSession(ctx, db, "refresh_token", refreshToken)
}

// DeleteSessionByToken removes a session based on the access token. Deleting
// an already-gone session is not an error.
func DeleteSessionByToken(ctx context.Context, db *sql.DB, token string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

func DeleteSessionByID(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}
