// src/services/transaction_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/username/tokentracker/src/logger"
	"github.com/username/tokentracker/src/metrics"
	"github.com/username/tokentracker/src/models"
	"github.com/username/tokentracker/src/processors"
	"github.com/username/tokentracker/src/security/validation"
)

var (
	ErrOperationInProgress = errors.New("another transaction is already in progress")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidRecipient    = errors.New("invalid recipient address")
	ErrMissingCoin         = errors.New("coin is required")
	ErrUnsupportedAction   = errors.New("unsupported transaction action")
	ErrNoRate              = errors.New("no exchange rate for pair")
	ErrQuoteExceeded       = errors.New("requested amount exceeds the current quote")
)

const sendStepDelay = time.Second

// UserDirectory resolves where receipts are mailed.
type UserDirectory interface {
	UserEmail(ctx context.Context, userID int64) (string, error)
}

type TransactionServiceConfig struct {
	Fees      []models.FeeRule
	// Market prices swaps and converts the swap network fee to ETH. Swaps
	// are refused without it.
	Market    MarketDataProvider
	BaseDelay time.Duration
	Jitter    time.Duration
	Clock     Clock
}

type flow struct {
	steps     []string
	simulator *Simulator
}

// TransactionService runs the simulated buy, swap and send flows. A user can
// have at most one flow running at a time.
type TransactionService struct {
	fees    []models.FeeRule
	market  MarketDataProvider
	wallets *WalletService
	email   EmailService
	users   UserDirectory
	clock   Clock
	flows   map[models.TransactionAction]flow

	mu     sync.Mutex
	active map[int64]struct{}
}

func NewTransactionService(cfg TransactionServiceConfig, wallets *WalletService, email EmailService, users UserDirectory) *TransactionService {
	clock := cfg.Clock
	if clock == nil {
		clock = RealClock
	}
	return &TransactionService{
		fees:    cfg.Fees,
		market:  cfg.Market,
		wallets: wallets,
		email:   email,
		users:   users,
		clock:   clock,
		flows: map[models.TransactionAction]flow{
			models.ActionSwap: {steps: SwapSteps, simulator: &Simulator{Clock: clock, BaseDelay: cfg.BaseDelay, MaxJitter: cfg.Jitter}},
			models.ActionBuy:  {steps: BuySteps, simulator: &Simulator{Clock: clock, BaseDelay: cfg.BaseDelay}},
			models.ActionSend: {steps: SendSteps, simulator: &Simulator{Clock: clock, BaseDelay: sendStepDelay}},
		},
		active: make(map[int64]struct{}),
	}
}

// Fees returns the configured fee schedule.
func (s *TransactionService) Fees() []models.FeeRule {
	return append([]models.FeeRule(nil), s.fees...)
}

// Quote prices a transaction without running it.
func (s *TransactionService) Quote(action models.TransactionAction, amount string, method models.PaymentMethod) models.TransactionSummary {
	if action == models.ActionBuy && method == "" {
		method = models.PaymentMethodCard
	}
	return processors.ComputeSummary(validation.NormalizeAmount(amount), s.fees, models.FeeContext{Action: action, PaymentMethod: method})
}

// InProgress reports whether userID has a flow running.
func (s *TransactionService) InProgress(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[userID]
	return ok
}

// Exclusive runs fn while holding userID's transaction slot, so no flow can
// start or be running while fn changes the wallet.
func (s *TransactionService) Exclusive(userID int64, fn func() error) error {
	if !s.acquire(userID) {
		return ErrOperationInProgress
	}
	defer s.release(userID)
	return fn()
}

func (s *TransactionService) acquire(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.active[userID]; busy {
		return false
	}
	s.active[userID] = struct{}{}
	return true
}

func (s *TransactionService) release(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, userID)
}

// positiveAmount sanitizes raw and requires it to be greater than zero.
func positiveAmount(raw string) (string, decimal.Decimal, error) {
	if !validation.IsValidAmountInput(raw) {
		return "", decimal.Zero, ErrInvalidAmount
	}
	text := validation.NormalizeAmount(raw)
	amount := processors.ParseAmount(text)
	if !amount.IsPositive() {
		return "", decimal.Zero, ErrInvalidAmount
	}
	return text, amount, nil
}

// Execute validates req, plays its steps through onStep, applies the result to
// the user's wallet and returns the receipt.
func (s *TransactionService) Execute(ctx context.Context, userID int64, req models.TransactionRequest, onStep func(models.ProgressUpdate)) (models.TransactionReceipt, error) {
	f, ok := s.flows[req.Action]
	if !ok {
		return models.TransactionReceipt{}, fmt.Errorf("%w: %q", ErrUnsupportedAction, req.Action)
	}
	if !s.acquire(userID) {
		metrics.RecordSimulatedTransaction(string(req.Action), "rejected")
		return models.TransactionReceipt{}, ErrOperationInProgress
	}
	defer s.release(userID)

	log := logger.FromContext(ctx).With("userID", userID, "action", req.Action)

	amountText, amount, err := positiveAmount(req.Amount)
	if err != nil {
		metrics.RecordSimulatedTransaction(string(req.Action), "rejected")
		return models.TransactionReceipt{}, err
	}
	req.Amount = amountText
	req.Coin = strings.ToUpper(strings.TrimSpace(req.Coin))
	if req.Coin == "" {
		metrics.RecordSimulatedTransaction(string(req.Action), "rejected")
		return models.TransactionReceipt{}, ErrMissingCoin
	}
	if req.Action == models.ActionBuy && req.PaymentMethod == "" {
		req.PaymentMethod = models.PaymentMethodCard
	}

	summary := processors.ComputeSummary(req.Amount, s.fees, models.FeeContext{Action: req.Action, PaymentMethod: req.PaymentMethod})
	fee := summary.Total.Sub(summary.Amount)

	plan, err := s.precheck(ctx, userID, &req, amount, fee)
	if err != nil {
		metrics.RecordSimulatedTransaction(string(req.Action), "rejected")
		return models.TransactionReceipt{}, err
	}

	receipt := models.TransactionReceipt{
		Action:  req.Action,
		Status:  "completed",
		Summary: summary,
		Steps:   f.steps,
	}
	log.Info("Starting simulated transaction", "amount", req.Amount, "coin", req.Coin)
	if err := f.simulator.Run(ctx, f.steps, onStep); err != nil {
		log.Info("Simulated transaction cancelled", "error", err)
		metrics.RecordSimulatedTransaction(string(req.Action), "cancelled")
		return models.TransactionReceipt{}, err
	}

	now := s.clock.Now()
	switch req.Action {
	case models.ActionBuy:
		receipt.ID = uuid.NewString()
		receipt.Message = fmt.Sprintf("Order placed to buy $%s worth of %s", req.Amount, req.Coin)
	case models.ActionSwap:
		if _, err := s.wallets.Swap(userID, req.Coin, amount, req.ToCoin, plan.toAmount, plan.gas); err != nil {
			metrics.RecordSimulatedTransaction(string(req.Action), "rejected")
			return models.TransactionReceipt{}, err
		}
		receipt.ID = SwapTransactionID(now)
		receipt.Message = fmt.Sprintf("Successfully swapped %s %s for %s %s", req.Amount, req.Coin, req.ToAmount, req.ToCoin)
	case models.ActionSend:
		if _, err := s.wallets.Send(userID, req.Coin, amount, plan.gas); err != nil {
			metrics.RecordSimulatedTransaction(string(req.Action), "rejected")
			return models.TransactionReceipt{}, err
		}
		receipt.ID = uuid.NewString()
		receipt.Message = fmt.Sprintf("Successfully sent %s %s to %s...%s", req.Amount, req.Coin, req.Recipient[:8], req.Recipient[len(req.Recipient)-6:])
	}
	receipt.CompletedAt = now

	metrics.RecordSimulatedTransaction(string(req.Action), "completed")
	if req.Action == models.ActionSend {
		log = log.With("recipient", validation.ChecksumAddress(req.Recipient))
	}
	log.Info("Simulated transaction completed", "id", receipt.ID)
	s.sendReceipt(ctx, userID, receipt)
	return receipt, nil
}

// flowPlan is what a checked request will apply to the wallet.
type flowPlan struct {
	toAmount decimal.Decimal // swap only
	gas      decimal.Decimal // ETH debited on top of the amount
}

// precheck validates the action-specific fields and balances before any time
// is spent simulating, so a flow that starts can always be applied.
func (s *TransactionService) precheck(ctx context.Context, userID int64, req *models.TransactionRequest, amount, fee decimal.Decimal) (flowPlan, error) {
	var p flowPlan
	switch req.Action {
	case models.ActionSwap:
		req.ToCoin = strings.ToUpper(strings.TrimSpace(req.ToCoin))
		if req.ToCoin == "" {
			return p, ErrMissingCoin
		}
		quote, gas, err := s.priceSwap(ctx, req.Coin, req.ToCoin, req.Amount, fee)
		if err != nil {
			return p, err
		}
		p.gas = gas
		p.toAmount = quote.ToAmount.Round(8)
		if strings.TrimSpace(req.ToAmount) != "" {
			text, to, err := positiveAmount(req.ToAmount)
			if err != nil {
				return p, err
			}
			if to.GreaterThan(quote.ToAmount) {
				return p, fmt.Errorf("%w: %s %s quoted", ErrQuoteExceeded, quote.Display.ToAmount, req.ToCoin)
			}
			p.toAmount = to
			req.ToAmount = text
		} else {
			req.ToAmount = p.toAmount.String()
		}
		if err := s.wallets.CheckFunds(userID, req.Coin, amount, p.gas); err != nil {
			return p, err
		}
	case models.ActionSend:
		req.Recipient = strings.TrimSpace(req.Recipient)
		if !validation.ValidateAddress(req.Recipient) {
			return p, ErrInvalidRecipient
		}
		held, err := s.wallets.Holds(userID, req.Coin)
		if err != nil {
			return p, err
		}
		if !held {
			return p, fmt.Errorf("%w: %s", ErrUnknownToken, req.Coin)
		}
		p.gas = fee
		if err := s.wallets.CheckFunds(userID, req.Coin, amount, p.gas); err != nil {
			return p, err
		}
	}
	return p, nil
}

// priceSwap quotes amountText of from in to at the live rate and converts
// the USD network fee into ETH.
func (s *TransactionService) priceSwap(ctx context.Context, from, to, amountText string, feeUSD decimal.Decimal) (models.SwapQuote, decimal.Decimal, error) {
	if s.market == nil {
		return models.SwapQuote{}, decimal.Zero, fmt.Errorf("%w: no market data configured", ErrNoRate)
	}
	fromID, toID := CoinGeckoID(from), CoinGeckoID(to)
	prices, err := s.market.SimplePrice(ctx, []string{fromID, toID, CoinGeckoID(NativeSymbol)}, "usd")
	if err != nil {
		return models.SwapQuote{}, decimal.Zero, err
	}
	rate := processors.ExchangeRate(prices[fromID]["usd"], prices[toID]["usd"])
	ethUSD := prices[CoinGeckoID(NativeSymbol)]["usd"]
	if rate <= 0 || ethUSD <= 0 {
		return models.SwapQuote{}, decimal.Zero, fmt.Errorf("%w: %s/%s", ErrNoRate, from, to)
	}
	quote := processors.QuoteSwap(amountText, decimal.NewFromFloat(rate), processors.DefaultSlippage)
	gas := feeUSD.Div(decimal.NewFromFloat(ethUSD)).Round(8)
	return quote, gas, nil
}

func (s *TransactionService) sendReceipt(ctx context.Context, userID int64, receipt models.TransactionReceipt) {
	if s.email == nil || s.users == nil {
		return
	}
	to, err := s.users.UserEmail(ctx, userID)
	if err != nil {
		logger.FromContext(ctx).Warn("Could not resolve receipt recipient", "userID", userID, "error", err)
		return
	}
	if err := s.email.SendReceiptEmail(to, receipt); err != nil {
		logger.FromContext(ctx).Warn("Failed to send receipt email", "userID", userID, "error", err)
	}
}
