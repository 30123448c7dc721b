// SPDX-License-Identifier: MIT

package robot

import (
	"context"
	"time"

	"github.com/teletable/backend/internal/log"
	"github.com/teletable/backend/internal/metrics"
)

// RunSweeper periodically clears expired manual locks and, whenever a
// clear happened, gives the dispatcher a chance to run. It returns when
// ctx is cancelled.
func (c *Controller) RunSweeper(ctx context.Context, interval time.Duration) {
	logger := log.WithComponent("sweeper")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info().Dur("interval", interval).Msg("lock expiry sweeper started")
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("lock expiry sweeper stopped")
			return
		case <-ticker.C:
			if c.store.ClearExpiredLock() {
				metrics.LockExpiries.Inc()
				logger.Info().
					Str(log.FieldEvent, "lock.expired").
					Msg("cleared expired manual lock")
				c.Dispatch()
			}
		}
	}
}
