package db

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SessionSweeper removes expired login sessions.
type SessionSweeper interface {
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// StartSessionCleaner deletes expired sessions every interval until ctx is done.
// A non-positive interval disables the cleaner. Expiry is still enforced when a
// token is resolved, so the cleaner only keeps the logins table small.
func StartSessionCleaner(
	ctx context.Context,
	sweeper SessionSweeper,
	interval time.Duration,
	log *zap.Logger,
) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := sweeper.DeleteExpiredSessions(ctx)
				if err != nil {
					log.Error("failed to clean expired sessions", zap.Error(err))
					continue
				}
				if removed > 0 {
					log.Info("cleaned expired sessions", zap.Int64("removed", removed))
				}
			}
		}
	}()
}
