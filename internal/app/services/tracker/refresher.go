package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/quest4deals/quest4deals/internal/app/system"
	"github.com/quest4deals/quest4deals/pkg/logger"
)

var _ system.Service = (*Refresher)(nil)

// Refresher periodically re-observes every tracked external product so
// prices stay current without inbound traffic.
type Refresher struct {
	tracker  *Service
	log      *logger.Logger
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewRefresher creates a lifecycle-managed price refresher.
func NewRefresher(tracker *Service, interval time.Duration, log *logger.Logger) *Refresher {
	if log == nil {
		log = logger.NewDefault("tracker-refresher")
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Refresher{
		tracker:  tracker,
		log:      log,
		interval: interval,
	}
}

func (r *Refresher) Name() string { return "tracker-refresher" }

func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				r.tick(runCtx)
			}
		}
	}()

	r.log.WithField("interval", r.interval.String()).Info("price refresher started")
	return nil
}

func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.log.Info("price refresher stopped")
	return nil
}

func (r *Refresher) tick(ctx context.Context) {
	if r.tracker == nil || r.tracker.source == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	catalog, err := r.tracker.games.List(ctx)
	if err != nil {
		r.log.WithError(err).Warn("refresher tick failed")
		return
	}

	seen := make(map[string]bool, len(catalog))
	for _, g := range catalog {
		if g.ExternalID == "" || seen[g.ExternalID] {
			continue
		}
		seen[g.ExternalID] = true

		if _, err := r.tracker.Observe(ctx, g.ExternalID); err != nil {
			r.log.WithError(err).
				WithField("external_id", g.ExternalID).
				Warn("refresh observation failed")
		}
		if ctx.Err() != nil {
			return
		}
	}
}
