// Package tracker ties the aggregator, catalog, price history and
// notifications together: every observation flows through one pipeline.
package tracker

import (
	"context"
	"fmt"

	"github.com/quest4deals/quest4deals/internal/app/domain/game"
	"github.com/quest4deals/quest4deals/internal/app/metrics"
	"github.com/quest4deals/quest4deals/internal/app/services/games"
	"github.com/quest4deals/quest4deals/internal/app/services/notify"
	"github.com/quest4deals/quest4deals/internal/app/services/pricing"
	"github.com/quest4deals/quest4deals/internal/nexarda"
	"github.com/quest4deals/quest4deals/pkg/logger"
)

// Source yields per-platform price observations for an external product.
type Source interface {
	Observe(ctx context.Context, externalID string) ([]nexarda.Observation, error)
}

// Result reports what one observation did.
type Result struct {
	Game    game.Game `json:"game"`
	Changed bool      `json:"changed"`
	Alerts  int       `json:"alerts"`
}

// Service runs observations through the tracking pipeline.
type Service struct {
	games   *games.Service
	pricing *pricing.Service
	notify  *notify.Service
	source  Source
	log     *logger.Logger
}

// New constructs a tracker. The source may be nil when only Apply is used.
func New(gamesSvc *games.Service, pricingSvc *pricing.Service, notifySvc *notify.Service, source Source, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("tracker")
	}
	return &Service{
		games:   gamesSvc,
		pricing: pricingSvc,
		notify:  notifySvc,
		source:  source,
		log:     log,
	}
}

// Observe fetches current offers for an external product and applies each
// per-platform observation.
func (s *Service) Observe(ctx context.Context, externalID string) ([]Result, error) {
	if s.source == nil {
		return nil, fmt.Errorf("no price source configured")
	}
	observations, err := s.source.Observe(ctx, externalID)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(observations))
	for _, obs := range observations {
		res, err := s.Apply(ctx, obs)
		if err != nil {
			s.log.WithField("external_id", obs.ExternalID).
				WithField("platform", obs.Platform).
				WithError(err).
				Warn("observation failed")
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

// Record pushes a manually observed price for a known catalog game through
// the pipeline.
func (s *Service) Record(ctx context.Context, gameID string, price float64) (Result, error) {
	g, err := s.games.Get(ctx, gameID)
	if err != nil {
		return Result{}, err
	}
	return s.run(ctx, g, price)
}

// Apply runs one observation through the pipeline: ensure the game is
// tracked, record the price when it changed, and evaluate watchlists.
func (s *Service) Apply(ctx context.Context, obs nexarda.Observation) (Result, error) {
	g, err := s.games.EnsureTracked(ctx, obs.ExternalID, obs.Title, obs.Genre, obs.Platform)
	if err != nil {
		return Result{}, err
	}
	return s.run(ctx, g, obs.Price)
}

func (s *Service) run(ctx context.Context, g game.Game, price float64) (Result, error) {
	changed, err := s.pricing.RecordIfChanged(ctx, g.ID, price)
	if err != nil {
		return Result{}, err
	}

	res := Result{Game: g, Changed: changed}
	if !changed {
		return res, nil
	}

	metrics.RecordPriceChange(g.Platform)
	if g, err = s.games.SetCurrentPrice(ctx, g.ID, price); err != nil {
		return res, err
	}
	res.Game = g

	if s.notify != nil {
		sent, err := s.notify.Evaluate(ctx, g.ID, g.Title, price, g.Platform)
		if err != nil {
			return res, err
		}
		res.Alerts = sent
		metrics.RecordNotifications(g.Platform, sent)
	}
	return res, nil
}
