package services

import (
	"context"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/username/tokentracker/src/models"
)

var (
	SwapSteps = []string{
		"Validating swap parameters...",
		"Checking liquidity...",
		"Calculating exchange rate...",
		"Executing swap...",
		"Confirming transaction...",
		"Updating balances...",
	}
	BuySteps = []string{
		"Validating payment details...",
		"Processing payment...",
		"Placing order...",
	}
	SendSteps = []string{
		"Validating recipient address...",
		"Broadcasting transaction...",
		"Waiting for confirmation...",
	}
)

// Simulator plays an ordered list of status messages, pausing BaseDelay plus
// a random share of MaxJitter after each one.
type Simulator struct {
	Clock     Clock
	BaseDelay time.Duration
	MaxJitter time.Duration
	// Jitter returns a duration in [0, max). Nil means uniform random.
	Jitter func(max time.Duration) time.Duration
}

func (s *Simulator) jitter() time.Duration {
	if s.MaxJitter <= 0 {
		return 0
	}
	if s.Jitter != nil {
		return s.Jitter(s.MaxJitter)
	}
	return rand.N(s.MaxJitter)
}

// Run reports each step through onStep before waiting on it. It stops early
// with ctx.Err() when ctx is done.
func (s *Simulator) Run(ctx context.Context, steps []string, onStep func(models.ProgressUpdate)) error {
	clock := s.Clock
	if clock == nil {
		clock = RealClock
	}
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if onStep != nil {
			onStep(models.ProgressUpdate{Step: i + 1, Total: len(steps), Message: step})
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.After(s.BaseDelay + s.jitter()):
		}
	}
	return nil
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// SwapTransactionID builds ids like SW12345678K3ZQ: the last eight digits of
// the unix millisecond clock followed by four random base36 characters.
func SwapTransactionID(now time.Time) string {
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	if len(ms) > 8 {
		ms = ms[len(ms)-8:]
	}
	var suffix strings.Builder
	for range 4 {
		suffix.WriteByte(base36[rand.IntN(len(base36))])
	}
	return "SW" + ms + strings.ToUpper(suffix.String())
}
