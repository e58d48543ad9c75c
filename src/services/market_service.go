// src/services/market_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/patrickmn/go-cache"
	"github.com/tidwall/gjson"
	"github.com/username/tokentracker/src/logger"
	"github.com/username/tokentracker/src/metrics"
	"github.com/username/tokentracker/src/models"
	"github.com/username/tokentracker/src/processors"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

var (
	ErrMarketUnavailable = errors.New("market data unavailable")
	ErrCoinNotFound      = errors.New("coin not found")
	ErrInvalidPayload    = errors.New("market data payload failed validation")
)

// DefaultCurrencies is served when the supported currency list cannot be fetched.
var DefaultCurrencies = []string{"usd", "eur", "btc", "eth"}

const (
	defaultChartDays = 7
	maxResponseBytes = 8 << 20

	cacheKeyTopCoins = "coins:markets"
	cacheKeyGlobal   = "global"
)

type MarketServiceConfig struct {
	BaseURL           string
	APIKey            string
	CacheTTL          time.Duration
	RequestsPerMinute int
	TopCoinsLimit     int
	Timeout           time.Duration
}

// MarketService reads CoinGecko v3. Responses are cached, outbound calls
// share one rate limiter, and every payload is validated before use.
type MarketService struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	topLimit   int
	cache      *cache.Cache
	limiter    *rate.Limiter
	validate   *validator.Validate
}

func NewMarketService(cfg MarketServiceConfig) *MarketService {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	if cfg.TopCoinsLimit <= 0 {
		cfg.TopCoinsLimit = 50
	}
	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
		burst = max(1, cfg.RequestsPerMinute/6)
	}

	return &MarketService{
		httpClient: &http.Client{Jar: jar, Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		topLimit:   cfg.TopCoinsLimit,
		cache:      cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		limiter:    rate.NewLimiter(limit, burst),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

// fetch performs a throttled GET and returns the raw body.
func (s *MarketService) fetch(ctx context.Context, endpoint, path string, query url.Values) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMarketUnavailable, err)
	}

	reqURL := s.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "TokenTracker/1.0")
	if s.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", s.apiKey)
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		metrics.RecordMarketUpstream(endpoint, time.Since(start), false)
		return nil, fmt.Errorf("%w: request to %s failed: %v", ErrMarketUnavailable, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	metrics.RecordMarketUpstream(endpoint, time.Since(start), err == nil && resp.StatusCode == http.StatusOK)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s response: %v", ErrMarketUnavailable, endpoint, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrCoinNotFound
	case resp.StatusCode != http.StatusOK:
		logger.FromContext(ctx).Warn("Market API returned non-OK status", "endpoint", endpoint, "status", resp.StatusCode, "body", truncate(string(body), 200))
		return nil, fmt.Errorf("%w: %s returned status %d", ErrMarketUnavailable, endpoint, resp.StatusCode)
	}
	return body, nil
}

func (s *MarketService) getJSON(ctx context.Context, endpoint, path string, query url.Values, out interface{}) error {
	body, err := s.fetch(ctx, endpoint, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: failed to decode %s response: %v", ErrInvalidPayload, endpoint, err)
	}
	return nil
}

// cached returns the cached value for key or calls load and caches its result.
func cached[T any](s *MarketService, key, endpoint string, load func() (T, error)) (T, error) {
	if v, ok := s.cache.Get(key); ok {
		metrics.RecordMarketCache(endpoint, true)
		return v.(T), nil
	}
	metrics.RecordMarketCache(endpoint, false)
	v, err := load()
	if err != nil {
		return v, err
	}
	s.cache.SetDefault(key, v)
	return v, nil
}

// validItems drops entries failing validation.
func validItems[T any](ctx context.Context, s *MarketService, endpoint string, items []T) []T {
	out := make([]T, 0, len(items))
	for i := range items {
		if err := s.validate.Struct(items[i]); err != nil {
			logger.FromContext(ctx).Warn("Dropping invalid market item", "endpoint", endpoint, "index", i, "error", err)
			continue
		}
		out = append(out, items[i])
	}
	return out
}

func (s *MarketService) TopCoins(ctx context.Context) ([]models.Coin, error) {
	return cached(s, cacheKeyTopCoins, "coins_markets", func() ([]models.Coin, error) {
		q := url.Values{}
		q.Set("vs_currency", "usd")
		q.Set("order", "market_cap_desc")
		q.Set("per_page", strconv.Itoa(s.topLimit))
		q.Set("page", "1")
		q.Set("sparkline", "false")
		q.Set("locale", "en")
		var coins []models.Coin
		if err := s.getJSON(ctx, "coins_markets", "/coins/markets", q, &coins); err != nil {
			return nil, err
		}
		return validItems(ctx, s, "coins_markets", coins), nil
	})
}

func (s *MarketService) CoinDetail(ctx context.Context, id string) (*models.CoinDetail, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return nil, ErrCoinNotFound
	}
	return cached(s, "coin:"+id, "coin_detail", func() (*models.CoinDetail, error) {
		q := url.Values{}
		q.Set("localization", "false")
		q.Set("tickers", "false")
		q.Set("market_data", "true")
		q.Set("community_data", "false")
		q.Set("developer_data", "false")
		q.Set("sparkline", "false")
		var detail models.CoinDetail
		if err := s.getJSON(ctx, "coin_detail", "/coins/"+url.PathEscape(id), q, &detail); err != nil {
			return nil, err
		}
		if err := s.validate.Struct(detail); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return &detail, nil
	})
}

func (s *MarketService) MarketChart(ctx context.Context, id string, days int, currency string) (*models.MarketChart, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return nil, ErrCoinNotFound
	}
	if days <= 0 {
		days = defaultChartDays
	}
	if currency == "" {
		currency = "usd"
	}
	currency = strings.ToLower(currency)
	key := fmt.Sprintf("chart:%s:%d:%s", id, days, currency)
	return cached(s, key, "market_chart", func() (*models.MarketChart, error) {
		q := url.Values{}
		q.Set("vs_currency", currency)
		q.Set("days", strconv.Itoa(days))
		var chart models.MarketChart
		if err := s.getJSON(ctx, "market_chart", "/coins/"+url.PathEscape(id)+"/market_chart", q, &chart); err != nil {
			return nil, err
		}
		if err := s.validate.Struct(chart); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return &chart, nil
	})
}

func (s *MarketService) GlobalStats(ctx context.Context) (*models.GlobalMarketData, error) {
	return cached(s, cacheKeyGlobal, "global", func() (*models.GlobalMarketData, error) {
		var global models.GlobalMarketData
		if err := s.getJSON(ctx, "global", "/global", nil, &global); err != nil {
			return nil, err
		}
		if err := s.validate.Struct(global); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return &global, nil
	})
}

func (s *MarketService) Search(ctx context.Context, query string) (*models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return &models.SearchResult{
			Coins:      []models.SearchCoin{},
			Exchanges:  []models.SearchExchange{},
			Categories: []models.SearchCategory{},
			NFTs:       []models.SearchNFT{},
		}, nil
	}
	return cached(s, "search:"+strings.ToLower(query), "search", func() (*models.SearchResult, error) {
		var result models.SearchResult
		if err := s.getJSON(ctx, "search", "/search", url.Values{"query": {query}}, &result); err != nil {
			return nil, err
		}
		result.Coins = validItems(ctx, s, "search", result.Coins)
		result.Exchanges = validItems(ctx, s, "search", result.Exchanges)
		result.Categories = validItems(ctx, s, "search", result.Categories)
		result.NFTs = validItems(ctx, s, "search", result.NFTs)
		return &result, nil
	})
}

// SimplePrice returns id -> currency -> price. Prices are never cached longer
// than the configured TTL.
func (s *MarketService) SimplePrice(ctx context.Context, ids []string, currency string) (map[string]map[string]float64, error) {
	clean := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.ToLower(strings.TrimSpace(id)); id != "" {
			clean = append(clean, id)
		}
	}
	if len(clean) == 0 {
		return map[string]map[string]float64{}, nil
	}
	if currency == "" {
		currency = "usd"
	}
	currency = strings.ToLower(currency)
	key := "price:" + strings.Join(clean, ",") + ":" + currency
	return cached(s, key, "simple_price", func() (map[string]map[string]float64, error) {
		q := url.Values{}
		q.Set("ids", strings.Join(clean, ","))
		q.Set("vs_currencies", currency)
		prices := map[string]map[string]float64{}
		if err := s.getJSON(ctx, "simple_price", "/simple/price", q, &prices); err != nil {
			return nil, err
		}
		for id, byCurrency := range prices {
			for cur, p := range byCurrency {
				if p < 0 {
					logger.FromContext(ctx).Warn("Dropping negative price", "id", id, "currency", cur, "price", p)
					delete(byCurrency, cur)
				}
			}
		}
		return prices, nil
	})
}

// TrendingCoins flattens the coins[].item objects of /search/trending.
func (s *MarketService) TrendingCoins(ctx context.Context) ([]models.TrendingCoin, error) {
	return cached(s, "trending", "trending", func() ([]models.TrendingCoin, error) {
		body, err := s.fetch(ctx, "trending", "/search/trending", nil)
		if err != nil {
			return nil, err
		}
		if !gjson.ValidBytes(body) {
			return nil, fmt.Errorf("%w: trending response is not JSON", ErrInvalidPayload)
		}
		coinsResult := gjson.GetBytes(body, "coins")
		if !coinsResult.IsArray() {
			return nil, fmt.Errorf("%w: trending response has no coins array", ErrInvalidPayload)
		}
		var coins []models.TrendingCoin
		coinsResult.ForEach(func(_, entry gjson.Result) bool {
			item := entry.Get("item")
			coins = append(coins, models.TrendingCoin{
				ID:            item.Get("id").String(),
				Symbol:        item.Get("symbol").String(),
				Name:          item.Get("name").String(),
				Thumb:         item.Get("small").String(),
				MarketCapRank: int(item.Get("market_cap_rank").Int()),
				PriceBTC:      item.Get("price_btc").Float(),
				Score:         int(item.Get("score").Int()),
			})
			return true
		})
		return validItems(ctx, s, "trending", coins), nil
	})
}

// SupportedCurrencies never fails; DefaultCurrencies stands in for errors.
func (s *MarketService) SupportedCurrencies(ctx context.Context) []string {
	currencies, err := cached(s, "currencies", "supported_currencies", func() ([]string, error) {
		var list []string
		if err := s.getJSON(ctx, "supported_currencies", "/simple/supported_vs_currencies", nil, &list); err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("%w: empty currency list", ErrInvalidPayload)
		}
		return list, nil
	})
	if err != nil {
		logger.FromContext(ctx).Warn("Falling back to default currencies", "error", err)
		return append([]string(nil), DefaultCurrencies...)
	}
	return currencies
}

// ExchangeRate is the number of `to` coins one `from` coin buys, via USD.
// Unknown coins price at zero, which makes the rate zero.
func (s *MarketService) ExchangeRate(ctx context.Context, from, to string) (float64, error) {
	from, to = strings.ToLower(from), strings.ToLower(to)
	prices, err := s.SimplePrice(ctx, []string{from, to}, "usd")
	if err != nil {
		return 0, err
	}
	return processors.ExchangeRate(prices[from]["usd"], prices[to]["usd"]), nil
}

// Refresh drops and reloads the listings the dashboard opens with.
func (s *MarketService) Refresh(ctx context.Context) error {
	s.cache.Delete(cacheKeyTopCoins)
	s.cache.Delete(cacheKeyGlobal)

	var result *multierror.Error
	if _, err := s.TopCoins(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("top coins: %w", err))
	}
	if _, err := s.GlobalStats(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("global stats: %w", err))
	}
	return result.ErrorOrNil()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
