package cache

import (
	"context"
	"sync"
	"time"

	"github.com/quest4deals/quest4deals/pkg/logger"
)

// Janitor sweeps expired cache entries on an interval. It ties the cache's
// lifecycle to application start/stop.
type Janitor struct {
	cache    *Cache
	log      *logger.Logger
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewJanitor creates a lifecycle-managed sweeper for the cache.
func NewJanitor(c *Cache, interval time.Duration, log *logger.Logger) *Janitor {
	if log == nil {
		log = logger.NewDefault("cache-janitor")
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{cache: c, log: log, interval: interval}
}

func (j *Janitor) Name() string { return "cache-janitor" }

func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.running = true
	j.mu.Unlock()

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if removed := j.cache.Sweep(); removed > 0 {
					j.log.WithField("removed", removed).Debug("cache sweep")
				}
			}
		}
	}()
	return nil
}

func (j *Janitor) Stop(ctx context.Context) error {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return nil
	}
	cancel := j.cancel
	j.running = false
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		j.wg.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
