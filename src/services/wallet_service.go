package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/username/tokentracker/src/models"
	"github.com/username/tokentracker/src/security/validation"
)

var (
	ErrNoWallet            = errors.New("no wallet connected")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnknownToken        = errors.New("token not held in wallet")
)

// NativeSymbol is the coin held in WalletData.Balance rather than Tokens.
const NativeSymbol = "ETH"

var coinGeckoIDs = map[string]string{
	"ETH":  "ethereum",
	"BTC":  "bitcoin",
	"USDC": "usd-coin",
	"USDT": "tether",
	"LINK": "chainlink",
	"UNI":  "uniswap",
	"DAI":  "dai",
}

// CoinGeckoID maps a wallet symbol to the market API coin id. Unknown
// symbols are looked up by their lower-cased symbol.
func CoinGeckoID(symbol string) string {
	if id, ok := coinGeckoIDs[strings.ToUpper(symbol)]; ok {
		return id
	}
	return strings.ToLower(symbol)
}

// DemoWallet is what Connect loads: a funded wallet with a few ERC-20 tokens.
func DemoWallet() models.WalletData {
	return models.WalletData{
		Address: "0x742d35Cc6634C0532925a3b8D4C9db96C4b4d8b6",
		Balance: "2.5",
		Tokens: []models.WalletToken{
			{Name: "USD Coin", Symbol: "USDC", Balance: "1000.00", ContractAddress: "0xA0b86a33E6441b8C4C8C8C8C8C8C8C8C8C8C8C8C", Price: 1.00},
			{Name: "Tether", Symbol: "USDT", Balance: "500.00", ContractAddress: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Price: 1.00},
			{Name: "Chainlink", Symbol: "LINK", Balance: "25.50", ContractAddress: "0x514910771AF9Ca656af840dff83E8264EcF986CA", Price: 15.23},
		},
	}
}

// WalletService holds one simulated wallet per user. Nothing touches a chain;
// transactions only move in-memory balances.
type WalletService struct {
	mu      sync.Mutex
	wallets map[int64]*models.WalletData
	now     func() time.Time
}

func NewWalletService() *WalletService {
	return &WalletService{
		wallets: make(map[int64]*models.WalletData),
		now:     time.Now,
	}
}

func cloneWallet(w *models.WalletData) models.WalletData {
	c := *w
	c.Tokens = append([]models.WalletToken{}, w.Tokens...)
	return c
}

// Connect replaces the user's wallet with the demo wallet.
func (s *WalletService) Connect(userID int64) models.WalletData {
	w := DemoWallet()
	w.CreatedAt = s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[userID] = &w
	return cloneWallet(&w)
}

// CreateAccount starts an empty wallet at a fresh random address.
func (s *WalletService) CreateAccount(userID int64, name string) (models.WalletData, error) {
	if err := validation.ValidateAccountName(name); err != nil {
		return models.WalletData{}, err
	}
	addr, err := randomAddress()
	if err != nil {
		return models.WalletData{}, fmt.Errorf("failed to generate address: %w", err)
	}
	w := models.WalletData{
		Name:      strings.TrimSpace(name),
		Address:   addr,
		Balance:   "0.0",
		Tokens:    []models.WalletToken{},
		CreatedAt: s.now(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[userID] = &w
	return cloneWallet(&w), nil
}

func (s *WalletService) Get(userID int64) (models.WalletData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[userID]
	if !ok {
		return models.WalletData{}, ErrNoWallet
	}
	return cloneWallet(w), nil
}

// Reset disconnects the user's wallet.
func (s *WalletService) Reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.wallets, userID)
}

// Balance returns the holding of symbol, zero when the token is not held.
func (s *WalletService) Balance(userID int64, symbol string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[userID]
	if !ok {
		return decimal.Zero, ErrNoWallet
	}
	return balanceOf(w, symbol), nil
}

// Holds reports whether the wallet carries symbol. ETH is always held.
func (s *WalletService) Holds(userID int64, symbol string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[userID]
	if !ok {
		return false, ErrNoWallet
	}
	return strings.EqualFold(symbol, NativeSymbol) || tokenIndex(w, symbol) >= 0, nil
}

// CheckFunds reports ErrInsufficientBalance unless the wallet covers amount
// of symbol plus gas in ETH.
func (s *WalletService) CheckFunds(userID int64, symbol string, amount, gas decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[userID]
	if !ok {
		return ErrNoWallet
	}
	return checkFunds(w, symbol, amount, gas)
}

// Swap moves fromAmount of one holding into toAmount of another and debits
// gas in ETH. The target token is added to the wallet when not yet held.
func (s *WalletService) Swap(userID int64, fromSymbol string, fromAmount decimal.Decimal, toSymbol string, toAmount, gas decimal.Decimal) (models.WalletData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[userID]
	if !ok {
		return models.WalletData{}, ErrNoWallet
	}
	if err := checkFunds(w, fromSymbol, fromAmount, gas); err != nil {
		return models.WalletData{}, err
	}
	setBalance(w, fromSymbol, balanceOf(w, fromSymbol).Sub(fromAmount))
	setBalance(w, NativeSymbol, balanceOf(w, NativeSymbol).Sub(gas))
	setBalance(w, toSymbol, balanceOf(w, toSymbol).Add(toAmount))
	return cloneWallet(w), nil
}

// Send debits amount of symbol plus gas, which is always paid in ETH.
func (s *WalletService) Send(userID int64, symbol string, amount, gas decimal.Decimal) (models.WalletData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[userID]
	if !ok {
		return models.WalletData{}, ErrNoWallet
	}
	if !strings.EqualFold(symbol, NativeSymbol) && tokenIndex(w, symbol) < 0 {
		return models.WalletData{}, fmt.Errorf("%w: %s", ErrUnknownToken, strings.ToUpper(symbol))
	}
	if err := checkFunds(w, symbol, amount, gas); err != nil {
		return models.WalletData{}, err
	}

	setBalance(w, symbol, balanceOf(w, symbol).Sub(amount))
	setBalance(w, NativeSymbol, balanceOf(w, NativeSymbol).Sub(gas))
	return cloneWallet(w), nil
}

// checkFunds requires amount of symbol plus gas, which is always paid in ETH.
func checkFunds(w *models.WalletData, symbol string, amount, gas decimal.Decimal) error {
	if strings.EqualFold(symbol, NativeSymbol) {
		if balanceOf(w, NativeSymbol).LessThan(amount.Add(gas)) {
			return fmt.Errorf("%w: %s", ErrInsufficientBalance, NativeSymbol)
		}
		return nil
	}
	if balanceOf(w, symbol).LessThan(amount) {
		return fmt.Errorf("%w: %s", ErrInsufficientBalance, strings.ToUpper(symbol))
	}
	if balanceOf(w, NativeSymbol).LessThan(gas) {
		return fmt.Errorf("%w: %s for gas", ErrInsufficientBalance, NativeSymbol)
	}
	return nil
}

func tokenIndex(w *models.WalletData, symbol string) int {
	for i, t := range w.Tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			return i
		}
	}
	return -1
}

func balanceOf(w *models.WalletData, symbol string) decimal.Decimal {
	raw := w.Balance
	if !strings.EqualFold(symbol, NativeSymbol) {
		i := tokenIndex(w, symbol)
		if i < 0 {
			return decimal.Zero
		}
		raw = w.Tokens[i].Balance
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func setBalance(w *models.WalletData, symbol string, d decimal.Decimal) {
	if strings.EqualFold(symbol, NativeSymbol) {
		w.Balance = d.String()
		return
	}
	i := tokenIndex(w, symbol)
	if i < 0 {
		w.Tokens = append(w.Tokens, models.WalletToken{Name: strings.ToUpper(symbol), Symbol: strings.ToUpper(symbol)})
		i = len(w.Tokens) - 1
	}
	w.Tokens[i].Balance = formatTokenBalance(d)
}

// formatTokenBalance keeps at least two decimals, like the demo balances.
func formatTokenBalance(d decimal.Decimal) string {
	if d.Exponent() >= -2 || d.Equal(d.Round(2)) {
		return d.StringFixed(2)
	}
	return d.String()
}

func randomAddress() (string, error) {
	b := make([]byte, common.AddressLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return common.BytesToAddress(b).Hex(), nil
}
