// Package watchlist manages per-user tracking entries.
package watchlist

import (
	"context"
	"fmt"

	"github.com/quest4deals/quest4deals/internal/app/domain/watchlist"
	"github.com/quest4deals/quest4deals/internal/app/storage"
	"github.com/quest4deals/quest4deals/pkg/logger"
)

// Service manages watchlist entries.
type Service struct {
	entries storage.WatchlistStore
	games   storage.GameStore
	log     *logger.Logger
}

// New constructs a watchlist service.
func New(entries storage.WatchlistStore, games storage.GameStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("watchlist")
	}
	return &Service{entries: entries, games: games, log: log}
}

// Add puts a catalog game on a user's watchlist. New entries default to
// enabled with any-change notifications. Adding the same game twice for one
// user yields ErrDuplicate.
func (s *Service) Add(ctx context.Context, userID, gameID string, notify *watchlist.Notification) (watchlist.Entry, error) {
	if userID == "" {
		return watchlist.Entry{}, fmt.Errorf("user id is required")
	}

	g, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return watchlist.Entry{}, err
	}

	entry := watchlist.Entry{
		UserID:         userID,
		GameID:         g.ID,
		ExternalGameID: g.ExternalID,
		Platform:       g.Platform,
		Title:          g.Title,
		Genre:          g.Genre,
		Price:          g.CurrentPrice,
		Notify:         watchlist.OnAnyChange(),
		Enabled:        true,
	}
	if notify != nil {
		entry.Notify = *notify
	}

	created, err := s.entries.CreateEntry(ctx, entry)
	if err != nil {
		return watchlist.Entry{}, err
	}
	s.log.WithField("entry_id", created.ID).
		WithField("user_id", userID).
		WithField("game_id", g.ID).
		Info("watchlist entry added")
	return created, nil
}

// UpdateSettings changes the enabled flag and/or notification setting of an
// entry owned by the user.
func (s *Service) UpdateSettings(ctx context.Context, userID, entryID string, enabled *bool, notify *watchlist.Notification) (watchlist.Entry, error) {
	entry, err := s.ownedEntry(ctx, userID, entryID)
	if err != nil {
		return watchlist.Entry{}, err
	}

	if enabled != nil {
		entry.Enabled = *enabled
	}
	if notify != nil {
		entry.Notify = *notify
	}

	return s.entries.UpdateEntry(ctx, entry)
}

// Get returns one entry owned by the user.
func (s *Service) Get(ctx context.Context, userID, entryID string) (watchlist.Entry, error) {
	return s.ownedEntry(ctx, userID, entryID)
}

// ListByUser returns all entries for a user.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]watchlist.Entry, error) {
	return s.entries.ListEntriesByUser(ctx, userID)
}

// Remove deletes an entry owned by the user.
func (s *Service) Remove(ctx context.Context, userID, entryID string) error {
	entry, err := s.ownedEntry(ctx, userID, entryID)
	if err != nil {
		return err
	}
	if err := s.entries.DeleteEntry(ctx, entry.ID); err != nil {
		return err
	}
	s.log.WithField("entry_id", entry.ID).
		WithField("user_id", userID).
		Info("watchlist entry removed")
	return nil
}

// ownedEntry fetches an entry and hides it behind ErrNotFound when it
// belongs to another user.
func (s *Service) ownedEntry(ctx context.Context, userID, entryID string) (watchlist.Entry, error) {
	entry, err := s.entries.GetEntry(ctx, entryID)
	if err != nil {
		return watchlist.Entry{}, err
	}
	if entry.UserID != userID {
		return watchlist.Entry{}, fmt.Errorf("entry %s: %w", entryID, storage.ErrNotFound)
	}
	return entry, nil
}
