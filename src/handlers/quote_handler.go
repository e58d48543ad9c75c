package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/username/tokentracker/src/models"
	"github.com/username/tokentracker/src/processors"
	"github.com/username/tokentracker/src/services"
	"github.com/username/tokentracker/src/utils"
)

// QuoteHandler prices transactions without running them.
type QuoteHandler struct {
	tx     *services.TransactionService
	market services.MarketDataProvider
}

func NewQuoteHandler(tx *services.TransactionService, market services.MarketDataProvider) *QuoteHandler {
	return &QuoteHandler{tx: tx, market: market}
}

func (h *QuoteHandler) HandleFees(w http.ResponseWriter, r *http.Request) {
	utils.SendCachedJSON(w, r, map[string]interface{}{"fees": h.tx.Fees()})
}

type quoteRequest struct {
	Action        models.TransactionAction `json:"action"`
	Amount        string                   `json:"amount"`
	PaymentMethod models.PaymentMethod     `json:"payment_method"`
}

func (h *QuoteHandler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	switch req.Action {
	case models.ActionBuy, models.ActionSwap, models.ActionSend:
	default:
		utils.SendJSONError(w, "action must be one of buy, swap or send", http.StatusBadRequest)
		return
	}
	utils.SendJSON(w, h.tx.Quote(req.Action, req.Amount, req.PaymentMethod), http.StatusOK)
}

// swapQuoteRequest takes either an explicit rate or the coin ids to look it
// up for.
type swapQuoteRequest struct {
	Amount   string           `json:"amount"`
	Rate     *decimal.Decimal `json:"rate,omitempty"`
	From     string           `json:"from,omitempty"`
	To       string           `json:"to,omitempty"`
	Slippage *decimal.Decimal `json:"slippage,omitempty"`
}

func (h *QuoteHandler) HandleSwapQuote(w http.ResponseWriter, r *http.Request) {
	var req swapQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var rate decimal.Decimal
	switch {
	case req.Rate != nil:
		rate = *req.Rate
	case req.From != "" && req.To != "" && h.market != nil:
		f, err := h.market.ExchangeRate(r.Context(), req.From, req.To)
		if err != nil {
			(&MarketHandler{market: h.market}).sendError(w, r, err)
			return
		}
		rate = decimal.NewFromFloat(f)
	default:
		utils.SendJSONError(w, "rate or from/to is required", http.StatusBadRequest)
		return
	}

	slippage := processors.DefaultSlippage
	if req.Slippage != nil {
		if req.Slippage.IsNegative() || req.Slippage.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			utils.SendJSONError(w, "slippage must be in [0, 1)", http.StatusBadRequest)
			return
		}
		slippage = *req.Slippage
	}
	utils.SendJSON(w, processors.QuoteSwap(req.Amount, rate, slippage), http.StatusOK)
}
