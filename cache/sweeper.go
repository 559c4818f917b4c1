package cache

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/semihalev/zlog/v2"
)

// Sweeper periodically evicts expired entries from a QueryCache. Freshness
// does not depend on it, Get already refuses expired entries.
type Sweeper struct {
	cache    *QueryCache
	interval time.Duration
	clock    clockwork.Clock
}

// NewSweeper returns a sweeper running every interval.
func NewSweeper(c *QueryCache, interval time.Duration, clock clockwork.Clock) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Sweeper{cache: c, interval: interval, clock: clock}
}

// Run sweeps on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	zlog.Debug("Cache sweeper started", "interval", s.interval.String())

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.Chan():
			if n := s.cache.Sweep(now); n > 0 {
				zlog.Debug("Cache sweep", "removed", n, "remaining", s.cache.Len())
			}
		}
	}
}

// DefaultSweepInterval is used when no interval is configured.
const DefaultSweepInterval = 60 * time.Second
