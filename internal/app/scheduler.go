package app

import (
	"context"
	"time"

	"github.com/bobmcallan/coinfolio/internal/common"
)

// refresher is the part of the portfolio service the scheduler drives.
type refresher interface {
	RefreshAll(ctx context.Context) bool
	LastError() string
}

// RunScheduler refreshes prices once immediately and then on every tick of
// interval until ctx is cancelled.
func RunScheduler(ctx context.Context, svc refresher, interval time.Duration, logger *common.Logger) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info().Dur("interval", interval).Msg("Price scheduler: started")
	refreshPrices(ctx, svc, logger)

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Price scheduler: stopped")
			return
		case <-ticker.C:
			refreshPrices(ctx, svc, logger)
		}
	}
}

func refreshPrices(ctx context.Context, svc refresher, logger *common.Logger) {
	start := time.Now()

	if !svc.RefreshAll(ctx) {
		if ctx.Err() != nil {
			return
		}
		logger.Warn().Str("error", svc.LastError()).Msg("Price refresh: not applied")
		return
	}

	logger.Info().Dur("elapsed", time.Since(start)).Msg("Price refresh: complete")
}
