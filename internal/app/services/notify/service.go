// Package notify evaluates watchlist entries against observed prices and
// dispatches email alerts.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/quest4deals/quest4deals/internal/app/domain/watchlist"
	"github.com/quest4deals/quest4deals/internal/app/storage"
	"github.com/quest4deals/quest4deals/internal/email"
	"github.com/quest4deals/quest4deals/pkg/logger"
)

// Service decides and sends price alerts.
type Service struct {
	entries storage.WatchlistStore
	users   storage.UserStore
	sender  email.Sender
	log     *logger.Logger
	now     func() time.Time
}

// New constructs a notification service. A nil sender disables dispatch.
func New(entries storage.WatchlistStore, users storage.UserStore, sender email.Sender, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("notify")
	}
	return &Service{
		entries: entries,
		users:   users,
		sender:  sender,
		log:     log,
		now:     time.Now,
	}
}

// Evaluate runs every watchlist entry for a game and platform against the
// new price. Entries that fire get an email; their stored price and
// notification timestamp are updated in one batch. A failed send for one
// entry does not stop the others. It returns the number of alerts sent.
func (s *Service) Evaluate(ctx context.Context, gameID, title string, newPrice float64, platform string) (int, error) {
	entries, err := s.entries.ListEntriesForGame(ctx, gameID, platform)
	if err != nil {
		return 0, err
	}

	now := s.now().UTC()
	sent := 0
	var changed []watchlist.Entry

	for _, entry := range entries {
		if !entry.Enabled {
			continue
		}
		if !Decide(entry.Notify, entry.Price, newPrice, entry.LastNotifiedAt, now) {
			continue
		}

		u, err := s.users.GetUser(ctx, entry.UserID)
		if err != nil {
			s.log.WithField("entry_id", entry.ID).
				WithField("user_id", entry.UserID).
				WithError(err).
				Warn("skipping alert for unknown user")
			continue
		}

		if s.sender != nil {
			subject, body := composeAlert(entry, title, newPrice)
			if err := s.sender.Send(u.Email, subject, body); err != nil {
				s.log.WithField("entry_id", entry.ID).
					WithError(err).
					Error("failed to send price alert")
				continue
			}
		}

		entry.Price = newPrice
		entry.LastNotifiedAt = now
		changed = append(changed, entry)
		sent++
	}

	if len(changed) > 0 {
		if err := s.entries.UpdateEntries(ctx, changed); err != nil {
			return sent, fmt.Errorf("persist notified entries: %w", err)
		}
	}

	s.log.WithField("game_id", gameID).
		WithField("platform", platform).
		WithField("evaluated", len(entries)).
		WithField("sent", sent).
		Debug("watchlist evaluated")
	return sent, nil
}

func composeAlert(entry watchlist.Entry, title string, newPrice float64) (string, string) {
	if title == "" {
		title = entry.Title
	}
	subject := fmt.Sprintf("Price alert: %s is now $%.2f", title, newPrice)
	body := fmt.Sprintf(
		"<p>The price of <strong>%s</strong> (%s) changed from $%.2f to <strong>$%.2f</strong>.</p>",
		title, entry.Platform, entry.Price, newPrice,
	)
	if threshold, ok := entry.Notify.Threshold(); ok {
		body += fmt.Sprintf("<p>This is at or below your target of $%.2f.</p>", threshold)
	}
	return subject, body
}
