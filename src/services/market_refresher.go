package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/username/tokentracker/src/logger"
)

// Refresher is anything that can reload its cached market data.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// MarketRefresher warms the market caches on a cron schedule so the first
// dashboard load after expiry does not wait on the upstream API.
type MarketRefresher struct {
	cron    *cron.Cron
	target  Refresher
	timeout time.Duration
}

// NewMarketRefresher accepts standard cron specs and descriptors such as
// "@every 1m". An empty schedule disables refreshing.
func NewMarketRefresher(target Refresher, schedule string, timeout time.Duration) (*MarketRefresher, error) {
	r := &MarketRefresher{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		target:  target,
		timeout: timeout,
	}
	if schedule == "" {
		return r, nil
	}
	if _, err := r.cron.AddFunc(schedule, r.run); err != nil {
		return nil, fmt.Errorf("invalid market warm schedule '%s': %w", schedule, err)
	}
	return r, nil
}

func (r *MarketRefresher) run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	start := time.Now()
	if err := r.target.Refresh(ctx); err != nil {
		logger.L.Warn("Market cache warm-up failed", "error", err, "duration", time.Since(start))
		return
	}
	logger.L.Debug("Market cache warmed", "duration", time.Since(start))
}

// Start runs one refresh immediately, then follows the schedule.
func (r *MarketRefresher) Start() {
	go r.run()
	r.cron.Start()
}

// Stop waits for a running refresh to finish.
func (r *MarketRefresher) Stop() {
	<-r.cron.Stop().Done()
}
