// Package pricing records price history and answers history queries. A new
// record is written only when the observed price differs from the latest
// recorded one.
package pricing

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/quest4deals/quest4deals/internal/app/domain/pricing"
	"github.com/quest4deals/quest4deals/internal/app/storage"
	"github.com/quest4deals/quest4deals/pkg/logger"
)

// Service is the price history recorder.
type Service struct {
	store storage.PriceHistoryStore
	log   *logger.Logger
}

// New constructs a pricing service.
func New(store storage.PriceHistoryStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("pricing")
	}
	return &Service{store: store, log: log}
}

// PriceEquals compares prices at cent precision.
func PriceEquals(a, b float64) bool {
	return math.Round(a*100) == math.Round(b*100)
}

// RecordIfChanged appends a history record when the observed price differs
// from the most recent record for the game. It reports whether a record
// was written.
func (s *Service) RecordIfChanged(ctx context.Context, gameID string, observedPrice float64) (bool, error) {
	if gameID == "" {
		return false, fmt.Errorf("game id is required")
	}
	if observedPrice < 0 || math.IsNaN(observedPrice) || math.IsInf(observedPrice, 0) {
		return false, fmt.Errorf("price must be a non-negative number")
	}

	latest, err := s.store.LatestPriceRecord(ctx, gameID)
	if err == nil && PriceEquals(latest.Price, observedPrice) {
		return false, nil
	}
	if err != nil && !storage.IsNotFound(err) {
		return false, err
	}

	rec, err := s.store.AppendPriceRecord(ctx, pricing.Record{
		GameID:     gameID,
		Price:      observedPrice,
		RecordedAt: time.Now().UTC(),
	})
	if err != nil {
		return false, err
	}

	s.log.WithField("game_id", gameID).
		WithField("price", fmt.Sprintf("%.2f", rec.Price)).
		Info("price change recorded")
	return true, nil
}

// History returns the recorded prices for a game, newest first.
func (s *Service) History(ctx context.Context, gameID string) ([]pricing.Record, error) {
	return s.store.ListPriceRecords(ctx, gameID)
}

// Latest returns the most recent record for a game.
func (s *Service) Latest(ctx context.Context, gameID string) (pricing.Record, error) {
	return s.store.LatestPriceRecord(ctx, gameID)
}

// Stats summarises the history of a game. A game with no records yields
// ErrNotFound.
func (s *Service) Stats(ctx context.Context, gameID string) (pricing.Stats, error) {
	records, err := s.store.ListPriceRecords(ctx, gameID)
	if err != nil {
		return pricing.Stats{}, err
	}
	if len(records) == 0 {
		return pricing.Stats{}, fmt.Errorf("price history for game %s: %w", gameID, storage.ErrNotFound)
	}

	stats := pricing.Stats{
		GameID:  gameID,
		Current: records[0].Price,
		Lowest:  records[0].Price,
		Highest: records[0].Price,
		Count:   len(records),
	}
	for _, rec := range records[1:] {
		if rec.Price < stats.Lowest {
			stats.Lowest = rec.Price
		}
		if rec.Price > stats.Highest {
			stats.Highest = rec.Price
		}
	}
	return stats, nil
}
