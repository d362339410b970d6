// Package games manages the tracked game catalog.
package games

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/quest4deals/quest4deals/internal/app/domain/game"
	"github.com/quest4deals/quest4deals/internal/app/storage"
	"github.com/quest4deals/quest4deals/pkg/logger"
)

// Service manages catalog entries.
type Service struct {
	store storage.GameStore
	log   *logger.Logger
}

// New constructs a games service.
func New(store storage.GameStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("games")
	}
	return &Service{store: store, log: log}
}

// ValidPrice reports whether a price can enter the system.
func ValidPrice(price float64) bool {
	return price >= 0 && !math.IsNaN(price) && !math.IsInf(price, 0)
}

// Create registers a new game.
func (s *Service) Create(ctx context.Context, g game.Game) (game.Game, error) {
	g.ExternalID = strings.TrimSpace(g.ExternalID)
	g.Title = strings.TrimSpace(g.Title)
	g.Platform = strings.TrimSpace(g.Platform)

	if g.Title == "" {
		return game.Game{}, fmt.Errorf("title is required")
	}
	if g.Platform == "" {
		return game.Game{}, fmt.Errorf("platform is required")
	}
	if !ValidPrice(g.CurrentPrice) {
		return game.Game{}, fmt.Errorf("price must be a non-negative number")
	}

	created, err := s.store.CreateGame(ctx, g)
	if err != nil {
		return game.Game{}, err
	}
	s.log.WithField("game_id", created.ID).
		WithField("title", created.Title).
		WithField("platform", created.Platform).
		Info("game created")
	return created, nil
}

// Update replaces mutable fields on a game.
func (s *Service) Update(ctx context.Context, id string, title, genre, platform *string, price *float64) (game.Game, error) {
	g, err := s.store.GetGame(ctx, id)
	if err != nil {
		return game.Game{}, err
	}

	if title != nil {
		if trimmed := strings.TrimSpace(*title); trimmed != "" {
			g.Title = trimmed
		} else {
			return game.Game{}, fmt.Errorf("title cannot be empty")
		}
	}
	if genre != nil {
		g.Genre = strings.TrimSpace(*genre)
	}
	if platform != nil {
		if trimmed := strings.TrimSpace(*platform); trimmed != "" {
			g.Platform = trimmed
		} else {
			return game.Game{}, fmt.Errorf("platform cannot be empty")
		}
	}
	if price != nil {
		if !ValidPrice(*price) {
			return game.Game{}, fmt.Errorf("price must be a non-negative number")
		}
		g.CurrentPrice = *price
	}

	return s.store.UpdateGame(ctx, g)
}

// SetCurrentPrice stores the latest observed price on the catalog entry.
func (s *Service) SetCurrentPrice(ctx context.Context, id string, price float64) (game.Game, error) {
	if !ValidPrice(price) {
		return game.Game{}, fmt.Errorf("price must be a non-negative number")
	}
	g, err := s.store.GetGame(ctx, id)
	if err != nil {
		return game.Game{}, err
	}
	g.CurrentPrice = price
	return s.store.UpdateGame(ctx, g)
}

// EnsureTracked returns the catalog entry for an external product on a
// platform, creating one when it is first observed.
func (s *Service) EnsureTracked(ctx context.Context, externalID, title, genre, platform string) (game.Game, error) {
	externalID = strings.TrimSpace(externalID)
	platform = strings.TrimSpace(platform)
	if externalID == "" || platform == "" {
		return game.Game{}, fmt.Errorf("external id and platform are required")
	}

	g, err := s.store.GetGameByExternal(ctx, externalID, platform)
	if err == nil {
		return g, nil
	}
	if !storage.IsNotFound(err) {
		return game.Game{}, err
	}

	created, err := s.store.CreateGame(ctx, game.Game{
		ExternalID: externalID,
		Title:      strings.TrimSpace(title),
		Genre:      strings.TrimSpace(genre),
		Platform:   platform,
	})
	if err != nil {
		return game.Game{}, err
	}
	s.log.WithField("game_id", created.ID).
		WithField("external_id", externalID).
		WithField("platform", platform).
		Info("game tracked")
	return created, nil
}

// Get retrieves one game.
func (s *Service) Get(ctx context.Context, id string) (game.Game, error) {
	return s.store.GetGame(ctx, id)
}

// List returns the whole catalog.
func (s *Service) List(ctx context.Context) ([]game.Game, error) {
	return s.store.ListGames(ctx)
}

// Delete removes a game and, by cascade, its history and watchlist entries.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteGame(ctx, id); err != nil {
		return err
	}
	s.log.WithField("game_id", id).Info("game deleted")
	return nil
}
