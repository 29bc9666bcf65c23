package core

// sweeper.go evicts idle sessions in the background.
//
// The sweeper runs once on start, then every interval, and stops when its
// context is cancelled. Sessions whose last activity is older than the
// service idle TTL are dropped.

import (
	"context"
	"time"
)

// DefaultSweepInterval is how often idle sessions are checked.
const DefaultSweepInterval = 5 * time.Minute

// StartSweeper blocks, evicting idle sessions every interval until ctx is
// done. Run it in its own goroutine.
func (s *Service) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	s.logger.Info("session sweeper started",
		"interval", interval.String(),
		"idle_ttl", s.cfg.IdleTTL.String(),
	)

	s.sweep(time.Now())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session sweeper stopped")
			return
		case now := <-ticker.C:
			s.sweep(now)
		}
	}
}

func (s *Service) sweep(now time.Time) {
	start := time.Now()
	evicted := s.EvictIdle(now)
	if evicted == 0 {
		return
	}
	s.logger.Info("idle sessions evicted",
		"evicted", evicted,
		"remaining", s.SessionCount(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
