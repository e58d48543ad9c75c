package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/username/tokentracker/src/logger"
	"github.com/username/tokentracker/src/models"
	"github.com/username/tokentracker/src/services"
	"github.com/username/tokentracker/src/utils"
)

// maxChartDays bounds the history a chart request may ask for.
const maxChartDays = 365

type MarketHandler struct {
	market services.MarketDataProvider
}

func NewMarketHandler(market services.MarketDataProvider) *MarketHandler {
	return &MarketHandler{market: market}
}

func (h *MarketHandler) sendError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrCoinNotFound):
		utils.SendJSONError(w, "Coin not found", http.StatusNotFound)
	case errors.Is(err, services.ErrMarketUnavailable), errors.Is(err, services.ErrInvalidPayload):
		logger.FromContext(r.Context()).Error("Market data request failed", "path", r.URL.Path, "error", err)
		utils.SendJSONError(w, "Market data is temporarily unavailable", http.StatusBadGateway)
	default:
		logger.FromContext(r.Context()).Error("Unexpected market data error", "path", r.URL.Path, "error", err)
		utils.SendJSONError(w, "Failed to load market data", http.StatusInternalServerError)
	}
}

func (h *MarketHandler) HandleTopCoins(w http.ResponseWriter, r *http.Request) {
	coins, err := h.market.TopCoins(r.Context())
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	utils.SendCachedJSON(w, r, coins)
}

func (h *MarketHandler) HandleCoinDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.market.CoinDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	utils.SendCachedJSON(w, r, detail)
}

func (h *MarketHandler) HandleMarketChart(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d <= 0 || d > maxChartDays {
			utils.SendJSONError(w, "days must be between 1 and 365", http.StatusBadRequest)
			return
		}
		days = d
	}
	chart, err := h.market.MarketChart(r.Context(), chi.URLParam(r, "id"), days, r.URL.Query().Get("currency"))
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	utils.SendCachedJSON(w, r, chart)
}

// globalResponse adds the compact figures the dashboard header shows.
type globalResponse struct {
	*models.GlobalMarketData
	Display struct {
		TotalMarketCap string `json:"total_market_cap"`
		TotalVolume    string `json:"total_volume"`
	} `json:"display"`
}

func (h *MarketHandler) HandleGlobal(w http.ResponseWriter, r *http.Request) {
	global, err := h.market.GlobalStats(r.Context())
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	resp := globalResponse{GlobalMarketData: global}
	resp.Display.TotalMarketCap = utils.FormatCompactUSD(global.Data.TotalMarketCap.USD)
	resp.Display.TotalVolume = utils.FormatCompactUSD(global.Data.TotalVolume.USD)
	utils.SendCachedJSON(w, r, resp)
}

func (h *MarketHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	result, err := h.market.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	utils.SendCachedJSON(w, r, result)
}

func (h *MarketHandler) HandleTrending(w http.ResponseWriter, r *http.Request) {
	coins, err := h.market.TrendingCoins(r.Context())
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	utils.SendCachedJSON(w, r, coins)
}

func (h *MarketHandler) HandleCurrencies(w http.ResponseWriter, r *http.Request) {
	utils.SendCachedJSON(w, r, h.market.SupportedCurrencies(r.Context()))
}

// HandlePrices serves /simple/price for a comma separated ids list.
func (h *MarketHandler) HandlePrices(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ids")
	if strings.TrimSpace(raw) == "" {
		utils.SendJSONError(w, "ids is required", http.StatusBadRequest)
		return
	}
	prices, err := h.market.SimplePrice(r.Context(), strings.Split(raw, ","), r.URL.Query().Get("currency"))
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	utils.SendCachedJSON(w, r, prices)
}

func (h *MarketHandler) HandleExchangeRate(w http.ResponseWriter, r *http.Request) {
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))
	if from == "" || to == "" {
		utils.SendJSONError(w, "from and to are required", http.StatusBadRequest)
		return
	}
	rate, err := h.market.ExchangeRate(r.Context(), from, to)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	utils.SendJSON(w, map[string]interface{}{"from": from, "to": to, "rate": utils.RoundFloat(rate, 8)}, http.StatusOK)
}
