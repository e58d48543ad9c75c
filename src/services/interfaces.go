package services

import (
	"context"
	"time"

	"github.com/username/tokentracker/src/models"
)

// PreferenceStore persists small per-user settings as strings.
type PreferenceStore interface {
	Get(ctx context.Context, userID int64, key string) (value string, found bool, err error)
	Set(ctx context.Context, userID int64, key, value string) error
}

// MarketDataProvider is the read-only view of the public market API.
type MarketDataProvider interface {
	TopCoins(ctx context.Context) ([]models.Coin, error)
	CoinDetail(ctx context.Context, id string) (*models.CoinDetail, error)
	MarketChart(ctx context.Context, id string, days int, currency string) (*models.MarketChart, error)
	GlobalStats(ctx context.Context) (*models.GlobalMarketData, error)
	Search(ctx context.Context, query string) (*models.SearchResult, error)
	SimplePrice(ctx context.Context, ids []string, currency string) (map[string]map[string]float64, error)
	TrendingCoins(ctx context.Context) ([]models.TrendingCoin, error)
	SupportedCurrencies(ctx context.Context) []string
	ExchangeRate(ctx context.Context, from, to string) (float64, error)
}

// AuthProvider signs users in and out. Errors the user should see are carried
// in AuthResult.Error; the returned error is reserved for internal failures.
type AuthProvider interface {
	SignUp(ctx context.Context, email, password string, meta SessionMeta) (models.AuthResult, error)
	SignIn(ctx context.Context, email, password string, meta SessionMeta) (models.AuthResult, error)
	SignInWithGoogle(ctx context.Context, code string, meta SessionMeta) (models.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string, meta SessionMeta) (models.AuthResult, error)
	SignOut(ctx context.Context, accessToken string) models.AuthResult
	Authenticate(ctx context.Context, accessToken string) (int64, error)
	UserEmail(ctx context.Context, userID int64) (string, error)
}

// SessionMeta describes the client a session is issued to.
type SessionMeta struct {
	UserAgent string
	ClientIP  string
}

type EmailService interface {
	SendWelcomeEmail(toEmail, displayName string) error
	SendReceiptEmail(toEmail string, receipt models.TransactionReceipt) error
}

// Clock abstracts waiting so simulated flows can run instantly in tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock is the wall clock.
var RealClock Clock = realClock{}
