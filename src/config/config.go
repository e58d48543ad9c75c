package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "your-very-secure-and-long-jwt-secret-key-for-hs256-minimum-32-bytes"

type AppConfig struct {
	JWTSecret          string
	Port               string
	DatabasePath       string
	LogLevel           string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	AllowedOrigins     []string

	PreferenceBackend  string // "sqlite" or "memory"
	PreferenceCacheTTL time.Duration

	FeeSchedulePath string

	MarketAPIBaseURL     string
	MarketAPIKey         string
	MarketCacheTTL       time.Duration
	MarketRequestsPerMin int
	MarketWarmSchedule   string // cron spec, empty disables warming
	MarketTopCoinsLimit  int

	SimulationBaseDelay time.Duration
	SimulationJitter    time.Duration

	EmailServiceProvider string
	MailgunDomain        string
	MailgunPrivateAPIKey string
	SenderEmail          string
	SenderName           string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	FrontendBaseURL    string
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	jwtSecret := getEnv("JWT_SECRET", defaultJWTSecret)
	if jwtSecret == defaultJWTSecret {
		log.Println("WARNING: Using default insecure JWT_SECRET. Set JWT_SECRET environment variable for production.")
	}

	Cfg = &AppConfig{
		JWTSecret:          jwtSecret,
		Port:               getEnv("PORT", "8080"),
		DatabasePath:       getEnv("DATABASE_PATH", "./tokentracker.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		AccessTokenExpiry:  getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 60*time.Minute),
		RefreshTokenExpiry: getEnvAsDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour),
		AllowedOrigins:     splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:8081,http://localhost:19006")),

		PreferenceBackend:  strings.ToLower(getEnv("PREFERENCE_BACKEND", "sqlite")),
		PreferenceCacheTTL: getEnvAsDuration("PREFERENCE_CACHE_TTL", 10*time.Minute),

		FeeSchedulePath: getEnv("FEE_SCHEDULE_PATH", ""),

		MarketAPIBaseURL:     getEnv("MARKET_API_BASE_URL", "https://api.coingecko.com/api/v3"),
		MarketAPIKey:         getEnv("MARKET_API_KEY", ""),
		MarketCacheTTL:       getEnvAsDuration("MARKET_CACHE_TTL", 60*time.Second),
		MarketRequestsPerMin: getEnvAsInt("MARKET_REQUESTS_PER_MIN", 30),
		MarketWarmSchedule:   getEnv("MARKET_WARM_SCHEDULE", "@every 1m"),
		MarketTopCoinsLimit:  getEnvAsInt("MARKET_TOP_COINS_LIMIT", 50),

		SimulationBaseDelay: getEnvAsDuration("SIMULATION_BASE_DELAY", 600*time.Millisecond),
		SimulationJitter:    getEnvAsDuration("SIMULATION_JITTER", 300*time.Millisecond),

		EmailServiceProvider: strings.ToLower(getEnv("EMAIL_SERVICE_PROVIDER", "mock")),
		MailgunDomain:        getEnv("MAILGUN_DOMAIN", ""),
		MailgunPrivateAPIKey: getEnv("MAILGUN_PRIVATE_API_KEY", ""),
		SenderEmail:          getEnv("SENDER_EMAIL", "noreply@example.com"),
		SenderName:           getEnv("SENDER_NAME", "Token Tracker"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/auth/google/callback"),
		FrontendBaseURL:    getEnv("FRONTEND_BASE_URL", "http://localhost:8081"),
	}

	if Cfg.PreferenceBackend != "sqlite" && Cfg.PreferenceBackend != "memory" {
		log.Printf("WARNING: Unknown PREFERENCE_BACKEND '%s'. Using sqlite.", Cfg.PreferenceBackend)
		Cfg.PreferenceBackend = "sqlite"
	}

	if Cfg.EmailServiceProvider == "mailgun" {
		if Cfg.MailgunDomain == "" || Cfg.MailgunPrivateAPIKey == "" {
			log.Fatalf("FATAL: MAILGUN_DOMAIN and MAILGUN_PRIVATE_API_KEY are required when EMAIL_SERVICE_PROVIDER is 'mailgun'.")
		}
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, Preferences=%s, EmailProvider=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.PreferenceBackend, Cfg.EmailServiceProvider)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
