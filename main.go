package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/username/tokentracker/src/config"
	"github.com/username/tokentracker/src/database"
	"github.com/username/tokentracker/src/handlers"
	"github.com/username/tokentracker/src/logger"
	"github.com/username/tokentracker/src/model"
	"github.com/username/tokentracker/src/security"
	"github.com/username/tokentracker/src/services"
	"golang.org/x/time/rate"
)

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Token Tracker backend server starting...")

	if len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid. Must be at least 32 bytes.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	db := database.InitDB(config.Cfg.DatabasePath)
	defer db.Close()
	logger.L.Info("Database initialized successfully.")

	fees, err := config.LoadFeeSchedule(config.Cfg.FeeSchedulePath)
	if err != nil {
		logger.L.Error("Failed to load fee schedule", "error", err)
		os.Exit(1)
	}
	logger.L.Info("Fee schedule loaded", "rules", len(fees))

	logger.L.Info("Initializing services and handlers...")
	var prefStore services.PreferenceStore
	switch config.Cfg.PreferenceBackend {
	case "memory":
		prefStore = services.NewMemoryPreferenceStore()
	default:
		prefStore = model.NewSQLitePreferenceStore(db)
	}
	prefStore = services.NewCachedPreferenceStore(prefStore, config.Cfg.PreferenceCacheTTL)

	tokens := security.NewAuthService(config.Cfg.JWTSecret, config.Cfg.AccessTokenExpiry, config.Cfg.RefreshTokenExpiry)
	google := security.NewGoogleOAuthConfig(config.Cfg.GoogleClientID, config.Cfg.GoogleClientSecret, config.Cfg.GoogleRedirectURL)
	if google == nil {
		logger.L.Info("Google sign-in disabled: GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET not set")
	}
	emailService := services.NewEmailService()
	auth := services.NewAuthProvider(services.AuthProviderConfig{
		DB:     db,
		Tokens: tokens,
		Email:  emailService,
		Google: google,
	})

	market := services.NewMarketService(services.MarketServiceConfig{
		BaseURL:           config.Cfg.MarketAPIBaseURL,
		APIKey:            config.Cfg.MarketAPIKey,
		CacheTTL:          config.Cfg.MarketCacheTTL,
		RequestsPerMinute: config.Cfg.MarketRequestsPerMin,
		TopCoinsLimit:     config.Cfg.MarketTopCoinsLimit,
	})
	refresher, err := services.NewMarketRefresher(market, config.Cfg.MarketWarmSchedule, 30*time.Second)
	if err != nil {
		logger.L.Error("Invalid MARKET_WARM_SCHEDULE", "schedule", config.Cfg.MarketWarmSchedule, "error", err)
		os.Exit(1)
	}
	refresher.Start()
	defer refresher.Stop()

	wallets := services.NewWalletService()
	transactions := services.NewTransactionService(services.TransactionServiceConfig{
		Fees:      fees,
		Market:    market,
		BaseDelay: config.Cfg.SimulationBaseDelay,
		Jitter:    config.Cfg.SimulationJitter,
	}, wallets, emailService, auth)

	logger.L.Info("Configuring routes...")
	router := handlers.NewRouter(handlers.RouterConfig{
		Auth:           auth,
		Market:         market,
		Transactions:   transactions,
		Wallets:        wallets,
		Favorites:      services.NewFavoritesService(prefStore),
		Themes:         services.NewThemeService(prefStore),
		Google:         google,
		FrontendURL:    config.Cfg.FrontendBaseURL,
		AllowedOrigins: config.Cfg.AllowedOrigins,
		Limiter:        rate.NewLimiter(rate.Every(100*time.Millisecond), 30),
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.L.Info("Server starting", "address", serverAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L.Error("Failed to start server", "error", err)
			stdlog.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.L.Info("Shutdown signal received, draining connections...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L.Error("Graceful shutdown failed", "error", err)
		return
	}
	logger.L.Info("Server stopped gracefully.")
}
