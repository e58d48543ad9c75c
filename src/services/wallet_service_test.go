package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/tokentracker/src/security/validation"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestWalletService_Lifecycle(t *testing.T) {
	svc := NewWalletService()

	_, err := svc.Get(1)
	assert.ErrorIs(t, err, ErrNoWallet)

	w := svc.Connect(1)
	assert.Equal(t, "0x742d35Cc6634C0532925a3b8D4C9db96C4b4d8b6", w.Address)
	assert.Equal(t, "2.5", w.Balance)
	require.Len(t, w.Tokens, 3)
	assert.Equal(t, "USDC", w.Tokens[0].Symbol)
	assert.Equal(t, 15.23, w.Tokens[2].Price)

	// returned copies do not alias internal state
	w.Tokens[0].Balance = "0"
	got, err := svc.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", got.Tokens[0].Balance)

	_, err = svc.Get(2)
	assert.ErrorIs(t, err, ErrNoWallet, "wallets are per user")

	svc.Reset(1)
	_, err = svc.Get(1)
	assert.ErrorIs(t, err, ErrNoWallet)
}

func TestWalletService_CreateAccount(t *testing.T) {
	svc := NewWalletService()

	_, err := svc.CreateAccount(1, "ab")
	assert.ErrorIs(t, err, validation.ErrInvalidAccountName)

	w, err := svc.CreateAccount(1, "  Savings  ")
	require.NoError(t, err)
	assert.Equal(t, "Savings", w.Name)
	assert.Equal(t, "0.0", w.Balance)
	assert.Empty(t, w.Tokens)
	assert.True(t, validation.ValidateAddress(w.Address))
	assert.Equal(t, validation.ChecksumAddress(w.Address), w.Address)

	other, err := svc.CreateAccount(2, "Trading")
	require.NoError(t, err)
	assert.NotEqual(t, w.Address, other.Address)
}

func TestWalletService_Swap(t *testing.T) {
	svc := NewWalletService()
	_, err := svc.Swap(1, "ETH", d("1"), "USDC", d("3000"), decimal.Zero)
	assert.ErrorIs(t, err, ErrNoWallet)

	svc.Connect(1)
	w, err := svc.Swap(1, "eth", d("1"), "USDC", d("3000"), decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "1.5", w.Balance)
	assert.Equal(t, "4000.00", w.Tokens[0].Balance)

	w, err = svc.Swap(1, "USDT", d("100"), "UNI", d("12.345"), decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "400.00", w.Tokens[1].Balance)
	require.Len(t, w.Tokens, 4)
	assert.Equal(t, "UNI", w.Tokens[3].Symbol)
	assert.Equal(t, "12.345", w.Tokens[3].Balance)

	_, err = svc.Swap(1, "LINK", d("26"), "ETH", d("0.1"), decimal.Zero)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestWalletService_SwapPaysGasInETH(t *testing.T) {
	svc := NewWalletService()
	svc.Connect(1)

	w, err := svc.Swap(1, "LINK", d("10"), "USDC", d("150"), d("0.0002"))
	require.NoError(t, err)
	assert.Equal(t, "2.4998", w.Balance)
	assert.Equal(t, "15.50", w.Tokens[2].Balance)

	assert.NoError(t, svc.CheckFunds(1, "ETH", d("2.4"), d("0.0998")))
	assert.ErrorIs(t, svc.CheckFunds(1, "ETH", d("2.4"), d("0.1")), ErrInsufficientBalance)
	assert.ErrorIs(t, svc.CheckFunds(2, "ETH", d("1"), decimal.Zero), ErrNoWallet)

	_, err = svc.Swap(1, "USDC", d("1"), "USDT", d("1"), d("3"))
	assert.ErrorContains(t, err, "ETH for gas")

	held, err := svc.Holds(1, "usdc")
	require.NoError(t, err)
	assert.True(t, held)
	held, _ = svc.Holds(1, "DOGE")
	assert.False(t, held)
}

func TestCoinGeckoID(t *testing.T) {
	assert.Equal(t, "ethereum", CoinGeckoID("eth"))
	assert.Equal(t, "usd-coin", CoinGeckoID("USDC"))
	assert.Equal(t, "pepe", CoinGeckoID("PEPE"))
}

func TestWalletService_Send(t *testing.T) {
	svc := NewWalletService()
	svc.Connect(1)
	gas := d("0.005")

	w, err := svc.Send(1, "ETH", d("1"), gas)
	require.NoError(t, err)
	assert.Equal(t, "1.495", w.Balance)

	w, err = svc.Send(1, "USDC", d("250"), gas)
	require.NoError(t, err)
	assert.Equal(t, "750.00", w.Tokens[0].Balance)
	assert.Equal(t, "1.49", w.Balance)

	_, err = svc.Send(1, "ETH", d("1.49"), gas)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = svc.Send(1, "DOGE", d("1"), gas)
	assert.ErrorIs(t, err, ErrUnknownToken)

	bal, err := svc.Balance(1, "usdc")
	require.NoError(t, err)
	assert.True(t, bal.Equal(d("750")))
}

func TestFormatTokenBalance(t *testing.T) {
	assert.Equal(t, "900.00", formatTokenBalance(d("1000.00").Sub(d("100"))))
	assert.Equal(t, "0.12345", formatTokenBalance(d("0.12345")))
	assert.Equal(t, "5.50", formatTokenBalance(d("5.5")))
}
