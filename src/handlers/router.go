package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/username/tokentracker/src/metrics"
	"github.com/username/tokentracker/src/services"
	"github.com/username/tokentracker/src/utils"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// RouterConfig carries everything the HTTP surface is built from.
type RouterConfig struct {
	Auth         services.AuthProvider
	Market       services.MarketDataProvider
	Transactions *services.TransactionService
	Wallets      *services.WalletService
	Favorites    *services.FavoritesService
	Themes       *services.ThemeService

	Google         *oauth2.Config
	FrontendURL    string
	AllowedOrigins []string
	// Limiter is optional; nil disables rate limiting.
	Limiter *rate.Limiter
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(CORS(cfg.AllowedOrigins))
	if cfg.Limiter != nil {
		r.Use(RateLimit(cfg.Limiter))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		utils.SendJSON(w, map[string]string{"message": "Token Tracker backend is running"}, http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	requireAuth := AuthMiddleware(cfg.Auth)
	userHandler := NewUserHandler(cfg.Auth)
	oauthHandler := NewOAuthHandler(cfg.Auth, cfg.Google, cfg.FrontendURL)
	marketHandler := NewMarketHandler(cfg.Market)
	quoteHandler := NewQuoteHandler(cfg.Transactions, cfg.Market)
	prefsHandler := NewPreferencesHandler(cfg.Favorites, cfg.Themes)
	walletHandler := NewWalletHandler(cfg.Wallets, cfg.Transactions)
	txHandler := NewTransactionHandler(cfg.Transactions, cfg.AllowedOrigins)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", userHandler.SignUpHandler)
			r.Post("/signin", userHandler.SignInHandler)
			r.Post("/refresh", userHandler.RefreshTokenHandler)
			r.With(requireAuth).Post("/signout", userHandler.SignOutHandler)
			r.Get("/google/login", oauthHandler.HandleGoogleLogin)
			r.Get("/google/callback", oauthHandler.HandleGoogleCallback)
		})

		r.Post("/input/amount", HandleAmountInput)

		r.Route("/market", func(r chi.Router) {
			r.Get("/coins", marketHandler.HandleTopCoins)
			r.Get("/coins/{id}", marketHandler.HandleCoinDetail)
			r.Get("/coins/{id}/chart", marketHandler.HandleMarketChart)
			r.Get("/global", marketHandler.HandleGlobal)
			r.Get("/search", marketHandler.HandleSearch)
			r.Get("/trending", marketHandler.HandleTrending)
			r.Get("/currencies", marketHandler.HandleCurrencies)
			r.Get("/prices", marketHandler.HandlePrices)
			r.Get("/rate", marketHandler.HandleExchangeRate)
		})

		r.Get("/fees", quoteHandler.HandleFees)
		r.Post("/quote", quoteHandler.HandleQuote)
		r.Post("/quote/swap", quoteHandler.HandleSwapQuote)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/favorites", prefsHandler.HandleListFavorites)
			r.Put("/favorites/{coinID}", prefsHandler.HandleAddFavorite)
			r.Delete("/favorites/{coinID}", prefsHandler.HandleRemoveFavorite)
			r.Post("/favorites/{coinID}/toggle", prefsHandler.HandleToggleFavorite)

			r.Get("/theme", prefsHandler.HandleGetTheme)
			r.Put("/theme", prefsHandler.HandleSetTheme)
			r.Post("/theme/toggle", prefsHandler.HandleToggleTheme)

			r.Get("/wallet", walletHandler.HandleGetWallet)
			r.Post("/wallet/connect", walletHandler.HandleConnect)
			r.Post("/wallet/create", walletHandler.HandleCreateAccount)
			r.Post("/wallet/reset", walletHandler.HandleReset)

			r.Post("/transactions/{action}", txHandler.HandleExecute)
			r.Get("/transactions/{action}/stream", txHandler.HandleStream)
		})
	})

	return r
}
