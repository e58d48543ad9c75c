package services

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/tokentracker/src/config"
	"github.com/username/tokentracker/src/models"
)

// fakeClock never sleeps; it records every requested wait.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
	// gate, when set, is received from before each wait completes.
	gate chan struct{}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.waits = append(c.waits, d)
	c.now = c.now.Add(d)
	now, gate := c.now, c.gate
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	if gate == nil {
		ch <- now
		return ch
	}
	go func() {
		<-gate
		ch <- now
	}()
	return ch
}

func (c *fakeClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}

type recordingEmail struct {
	mu       sync.Mutex
	receipts []models.TransactionReceipt
	welcomes []string
}

func (r *recordingEmail) SendWelcomeEmail(toEmail, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.welcomes = append(r.welcomes, toEmail)
	return nil
}

func (r *recordingEmail) SendReceiptEmail(_ string, receipt models.TransactionReceipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receipts = append(r.receipts, receipt)
	return nil
}

type staticDirectory map[int64]string

func (d staticDirectory) UserEmail(_ context.Context, id int64) (string, error) {
	if e, ok := d[id]; ok {
		return e, nil
	}
	return "", errors.New("unknown user")
}

// priceTable answers SimplePrice from fixed USD prices. Unlisted ids price at zero.
type priceTable struct {
	MarketDataProvider
	usd map[string]float64
	err error
}

func (p priceTable) SimplePrice(_ context.Context, ids []string, currency string) (map[string]map[string]float64, error) {
	if p.err != nil {
		return nil, p.err
	}
	out := map[string]map[string]float64{}
	for _, id := range ids {
		if price, ok := p.usd[id]; ok {
			out[id] = map[string]float64{currency: price}
		}
	}
	return out, nil
}

var testPrices = priceTable{usd: map[string]float64{
	"ethereum":  2500,
	"usd-coin":  1,
	"tether":    1,
	"chainlink": 12.5,
}}

func newTestTransactionService(t *testing.T, clock *fakeClock) (*TransactionService, *WalletService, *recordingEmail) {
	t.Helper()
	fees, err := config.LoadFeeSchedule("")
	require.NoError(t, err)
	wallets := NewWalletService()
	email := &recordingEmail{}
	svc := NewTransactionService(TransactionServiceConfig{
		Fees:      fees,
		Market:    testPrices,
		BaseDelay: 600 * time.Millisecond,
		Jitter:    300 * time.Millisecond,
		Clock:     clock,
	}, wallets, email, staticDirectory{1: "user@example.com"})
	return svc, wallets, email
}

func TestSimulator_RunsStepsInOrder(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	sim := &Simulator{
		Clock:     clock,
		BaseDelay: 600 * time.Millisecond,
		MaxJitter: 300 * time.Millisecond,
		Jitter:    func(max time.Duration) time.Duration { return max / 3 },
	}
	var seen []models.ProgressUpdate
	require.NoError(t, sim.Run(context.Background(), SwapSteps, func(p models.ProgressUpdate) { seen = append(seen, p) }))

	require.Len(t, seen, 6)
	assert.Equal(t, models.ProgressUpdate{Step: 1, Total: 6, Message: "Validating swap parameters..."}, seen[0])
	assert.Equal(t, "Updating balances...", seen[5].Message)
	for _, w := range clock.Waits() {
		assert.Equal(t, 700*time.Millisecond, w)
	}
}

func TestSimulator_DefaultJitterStaysInRange(t *testing.T) {
	clock := &fakeClock{}
	sim := &Simulator{Clock: clock, BaseDelay: 600 * time.Millisecond, MaxJitter: 300 * time.Millisecond}
	require.NoError(t, sim.Run(context.Background(), SwapSteps, nil))
	for _, w := range clock.Waits() {
		assert.GreaterOrEqual(t, w, 600*time.Millisecond)
		assert.Less(t, w, 900*time.Millisecond)
	}
}

func TestSimulator_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	clock := &fakeClock{gate: make(chan struct{})}
	defer close(clock.gate)
	sim := &Simulator{Clock: clock, BaseDelay: time.Second}

	steps := 0
	err := sim.Run(ctx, BuySteps, func(models.ProgressUpdate) {
		steps++
		cancel()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, steps)
}

func TestSwapTransactionID(t *testing.T) {
	id := SwapTransactionID(time.UnixMilli(1_712_345_678_901))
	assert.Regexp(t, regexp.MustCompile(`^SW45678901[0-9A-Z]{4}$`), id)
}

func TestTransactionService_Swap(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	svc, wallets, email := newTestTransactionService(t, clock)
	wallets.Connect(1)

	var progress []string
	receipt, err := svc.Execute(context.Background(), 1, models.TransactionRequest{
		Action: models.ActionSwap, Amount: "1", Coin: "eth", ToCoin: "usdc", ToAmount: "2490.5",
	}, func(p models.ProgressUpdate) { progress = append(progress, p.Message) })
	require.NoError(t, err)

	assert.Equal(t, SwapSteps, progress)
	assert.Regexp(t, `^SW\d{8}[0-9A-Z]{4}$`, receipt.ID)
	assert.Equal(t, "completed", receipt.Status)
	assert.Equal(t, "Successfully swapped 1 ETH for 2490.5 USDC", receipt.Message)
	require.Len(t, receipt.Summary.Fees, 1)
	assert.Equal(t, "0.50", receipt.Summary.Fees[0].Display)
	assert.Len(t, clock.Waits(), 6)

	// the $0.50 network fee is paid in ETH at $2500
	w, err := wallets.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "1.4998", w.Balance)
	assert.Equal(t, "3490.50", w.Tokens[0].Balance)

	require.Len(t, email.receipts, 1)
	assert.Equal(t, receipt.ID, email.receipts[0].ID)
}

func TestTransactionService_BuyDefaultsToCard(t *testing.T) {
	svc, _, _ := newTestTransactionService(t, &fakeClock{})

	receipt, err := svc.Execute(context.Background(), 2, models.TransactionRequest{
		Action: models.ActionBuy, Amount: "100", Coin: "BTC",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Order placed to buy $100 worth of BTC", receipt.Message)
	assert.Equal(t, "104.49", receipt.Summary.Display.Total)
	assert.Len(t, receipt.ID, 36)

	wallet, err := svc.Execute(context.Background(), 2, models.TransactionRequest{
		Action: models.ActionBuy, Amount: "100", Coin: "BTC", PaymentMethod: models.PaymentMethodWallet,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "102.99", wallet.Summary.Display.Total)
}

func TestTransactionService_Send(t *testing.T) {
	clock := &fakeClock{}
	svc, wallets, _ := newTestTransactionService(t, clock)
	wallets.Connect(1)

	_, err := svc.Execute(context.Background(), 1, models.TransactionRequest{
		Action: models.ActionSend, Amount: "1", Coin: "ETH", Recipient: "0x123",
	}, nil)
	assert.ErrorIs(t, err, ErrInvalidRecipient)

	receipt, err := svc.Execute(context.Background(), 1, models.TransactionRequest{
		Action: models.ActionSend, Amount: "1", Coin: "ETH", Recipient: "0xdAC17F958D2ee523a2206206994597C13D831ec7",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Successfully sent 1 ETH to 0xdAC17F...831ec7", receipt.Message)
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, clock.Waits())

	w, _ := wallets.Get(1)
	assert.Equal(t, "1.495", w.Balance)
}

func TestTransactionService_Rejections(t *testing.T) {
	svc, wallets, _ := newTestTransactionService(t, &fakeClock{})
	ctx := context.Background()

	for _, amount := range []string{"", "0", "abc", "."} {
		_, err := svc.Execute(ctx, 1, models.TransactionRequest{Action: models.ActionBuy, Amount: amount, Coin: "BTC"}, nil)
		assert.ErrorIs(t, err, ErrInvalidAmount, "amount %q", amount)
	}

	_, err := svc.Execute(ctx, 1, models.TransactionRequest{Action: "stake", Amount: "1", Coin: "ETH"}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedAction)

	_, err = svc.Execute(ctx, 1, models.TransactionRequest{Action: models.ActionSwap, Amount: "1", Coin: "ETH", ToCoin: "USDC", ToAmount: "3000"}, nil)
	assert.ErrorIs(t, err, ErrNoWallet)

	wallets.Connect(1)
	_, err = svc.Execute(ctx, 1, models.TransactionRequest{Action: models.ActionSwap, Amount: "10", Coin: "ETH", ToCoin: "USDC", ToAmount: "20000"}, nil)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = svc.Execute(ctx, 1, models.TransactionRequest{Action: models.ActionSwap, Amount: "1", Coin: "ETH", ToCoin: "USDC", ToAmount: "0"}, nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Execute(ctx, 1, models.TransactionRequest{Action: models.ActionBuy, Amount: "1"}, nil)
	assert.ErrorIs(t, err, ErrMissingCoin)
}

func TestTransactionService_OneOperationPerUser(t *testing.T) {
	clock := &fakeClock{gate: make(chan struct{})}
	svc, _, _ := newTestTransactionService(t, clock)

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := svc.Execute(context.Background(), 1, models.TransactionRequest{Action: models.ActionBuy, Amount: "5", Coin: "ETH"},
			func(p models.ProgressUpdate) {
				if p.Step == 1 {
					close(started)
				}
			})
		done <- err
	}()

	<-started
	assert.True(t, svc.InProgress(1))
	_, err := svc.Execute(context.Background(), 1, models.TransactionRequest{Action: models.ActionBuy, Amount: "5", Coin: "ETH"}, nil)
	assert.ErrorIs(t, err, ErrOperationInProgress)

	// other users are not blocked
	assert.False(t, svc.InProgress(2))

	close(clock.gate)
	require.NoError(t, <-done)
	assert.False(t, svc.InProgress(1))
}

func TestTransactionService_CancelledFlowLeavesWalletUntouched(t *testing.T) {
	clock := &fakeClock{gate: make(chan struct{})}
	svc, wallets, email := newTestTransactionService(t, clock)
	wallets.Connect(1)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := svc.Execute(ctx, 1, models.TransactionRequest{
		Action: models.ActionSwap, Amount: "1", Coin: "ETH", ToCoin: "USDC", ToAmount: "2400",
	}, func(p models.ProgressUpdate) {
		if p.Step == 1 {
			cancel()
		}
	})
	close(clock.gate)

	assert.ErrorIs(t, err, context.Canceled)
	w, _ := wallets.Get(1)
	assert.Equal(t, "2.5", w.Balance)
	assert.Empty(t, email.receipts)
	assert.False(t, svc.InProgress(1))
}

func TestTransactionService_Quote(t *testing.T) {
	svc, _, _ := newTestTransactionService(t, &fakeClock{})
	q := svc.Quote(models.ActionBuy, "", "")
	assert.Equal(t, "4.49", q.Display.Total)
	assert.Len(t, svc.Fees(), 4)
}

func TestTransactionService_SendTokenWithoutGasFailsBeforeSteps(t *testing.T) {
	clock := &fakeClock{}
	svc, wallets, email := newTestTransactionService(t, clock)
	wallets.Connect(1)
	ctx := context.Background()

	// leaves exactly zero ETH: 2.4998 swapped plus 0.0002 network fee
	_, err := svc.Execute(ctx, 1, models.TransactionRequest{Action: models.ActionSwap, Amount: "2.4998", Coin: "ETH", ToCoin: "USDC"}, nil)
	require.NoError(t, err)
	bal, err := wallets.Balance(1, NativeSymbol)
	require.NoError(t, err)
	require.True(t, bal.IsZero(), "ETH left: %s", bal)
	waitsBefore := len(clock.Waits())

	steps := 0
	_, err = svc.Execute(ctx, 1, models.TransactionRequest{
		Action: models.ActionSend, Amount: "10", Coin: "USDC", Recipient: "0xdAC17F958D2ee523a2206206994597C13D831ec7",
	}, func(models.ProgressUpdate) { steps++ })
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Contains(t, err.Error(), "ETH for gas")
	assert.Zero(t, steps)
	assert.Len(t, clock.Waits(), waitsBefore)
	assert.Len(t, email.receipts, 1, "only the swap completed")

	_, err = svc.Execute(ctx, 1, models.TransactionRequest{
		Action: models.ActionSend, Amount: "1", Coin: "DOGE", Recipient: "0xdAC17F958D2ee523a2206206994597C13D831ec7",
	}, func(models.ProgressUpdate) { steps++ })
	assert.ErrorIs(t, err, ErrUnknownToken)
	assert.Zero(t, steps)
}

func TestTransactionService_SwapIsPricedServerSide(t *testing.T) {
	clock := &fakeClock{}
	svc, wallets, _ := newTestTransactionService(t, clock)
	wallets.Connect(1)
	ctx := context.Background()

	steps := 0
	_, err := svc.Execute(ctx, 1, models.TransactionRequest{
		Action: models.ActionSwap, Amount: "0.0001", Coin: "ETH", ToCoin: "USDC", ToAmount: "1000000",
	}, func(models.ProgressUpdate) { steps++ })
	assert.ErrorIs(t, err, ErrQuoteExceeded)
	assert.Zero(t, steps)
	w, _ := wallets.Get(1)
	assert.Equal(t, "2.5", w.Balance)
	assert.Equal(t, "1000.00", w.Tokens[0].Balance)

	// without a requested amount the quoted figure is credited
	receipt, err := svc.Execute(ctx, 1, models.TransactionRequest{Action: models.ActionSwap, Amount: "10", Coin: "LINK", ToCoin: "USDT"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Successfully swapped 10 LINK for 125 USDT", receipt.Message)
	w, _ = wallets.Get(1)
	assert.Equal(t, "625.00", w.Tokens[1].Balance)
	assert.Equal(t, "15.50", w.Tokens[2].Balance)
	assert.Equal(t, "2.4998", w.Balance)

	_, err = svc.Execute(ctx, 1, models.TransactionRequest{Action: models.ActionSwap, Amount: "1", Coin: "ETH", ToCoin: "FOO"}, nil)
	assert.ErrorIs(t, err, ErrNoRate)
}

func TestTransactionService_SwapNeedsMarketData(t *testing.T) {
	fees, err := config.LoadFeeSchedule("")
	require.NoError(t, err)
	wallets := NewWalletService()
	wallets.Connect(1)
	ctx := context.Background()
	req := models.TransactionRequest{Action: models.ActionSwap, Amount: "1", Coin: "ETH", ToCoin: "USDC"}

	unpriced := NewTransactionService(TransactionServiceConfig{Fees: fees, Clock: &fakeClock{}}, wallets, nil, nil)
	_, err = unpriced.Execute(ctx, 1, req, nil)
	assert.ErrorIs(t, err, ErrNoRate)

	down := NewTransactionService(TransactionServiceConfig{
		Fees: fees, Clock: &fakeClock{}, Market: priceTable{err: ErrMarketUnavailable},
	}, wallets, nil, nil)
	_, err = down.Execute(ctx, 1, req, nil)
	assert.ErrorIs(t, err, ErrMarketUnavailable)

	w, _ := wallets.Get(1)
	assert.Equal(t, "2.5", w.Balance)
}

func TestTransactionService_ExclusiveBlocksFlows(t *testing.T) {
	clock := &fakeClock{gate: make(chan struct{})}
	svc, wallets, _ := newTestTransactionService(t, clock)
	wallets.Connect(1)

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := svc.Execute(context.Background(), 1, models.TransactionRequest{Action: models.ActionBuy, Amount: "5", Coin: "ETH"},
			func(p models.ProgressUpdate) {
				if p.Step == 1 {
					close(started)
				}
			})
		done <- err
	}()
	<-started

	called := false
	err := svc.Exclusive(1, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrOperationInProgress)
	assert.False(t, called)

	close(clock.gate)
	require.NoError(t, <-done)

	err = svc.Exclusive(1, func() error {
		_, err := svc.Execute(context.Background(), 1, models.TransactionRequest{Action: models.ActionBuy, Amount: "5", Coin: "ETH"}, nil)
		return err
	})
	assert.ErrorIs(t, err, ErrOperationInProgress)
	assert.False(t, svc.InProgress(1))
}
