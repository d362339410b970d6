// Package memory provides a thread-safe in-memory implementation of the
// storage interfaces, intended for tests and prototyping.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/quest4deals/quest4deals/internal/app/domain/game"
	"github.com/quest4deals/quest4deals/internal/app/domain/pricing"
	"github.com/quest4deals/quest4deals/internal/app/domain/user"
	"github.com/quest4deals/quest4deals/internal/app/domain/watchlist"
	"github.com/quest4deals/quest4deals/internal/app/storage"
)

// Store keeps everything in maps guarded by one RWMutex.
type Store struct {
	mu          sync.RWMutex
	nextID      int64
	games       map[string]game.Game
	records     map[string][]pricing.Record // gameID -> records in insertion order
	entries     map[string]watchlist.Entry
	users       map[string]user.User
	resetTokens map[string]user.ResetToken
}

var _ storage.GameStore = (*Store)(nil)
var _ storage.PriceHistoryStore = (*Store)(nil)
var _ storage.WatchlistStore = (*Store)(nil)
var _ storage.UserStore = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		nextID:      1,
		games:       make(map[string]game.Game),
		records:     make(map[string][]pricing.Record),
		entries:     make(map[string]watchlist.Entry),
		users:       make(map[string]user.User),
		resetTokens: make(map[string]user.ResetToken),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// GameStore implementation --------------------------------------------------

func (s *Store) CreateGame(_ context.Context, g game.Game) (game.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.games {
		if existing.ExternalID == g.ExternalID && strings.EqualFold(existing.Platform, g.Platform) {
			return game.Game{}, fmt.Errorf("game %s/%s: %w", g.ExternalID, g.Platform, storage.ErrDuplicate)
		}
	}

	if g.ID == "" {
		g.ID = s.nextIDLocked()
	} else if _, exists := s.games[g.ID]; exists {
		return game.Game{}, fmt.Errorf("game %s: %w", g.ID, storage.ErrDuplicate)
	}

	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now
	s.games[g.ID] = g
	return g, nil
}

func (s *Store) UpdateGame(_ context.Context, g game.Game) (game.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.games[g.ID]
	if !ok {
		return game.Game{}, fmt.Errorf("game %s: %w", g.ID, storage.ErrNotFound)
	}

	g.CreatedAt = original.CreatedAt
	g.UpdatedAt = time.Now().UTC()
	s.games[g.ID] = g
	return g, nil
}

func (s *Store) GetGame(_ context.Context, id string) (game.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[id]
	if !ok {
		return game.Game{}, fmt.Errorf("game %s: %w", id, storage.ErrNotFound)
	}
	return g, nil
}

func (s *Store) GetGameByExternal(_ context.Context, externalID, platform string) (game.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.games {
		if g.ExternalID == externalID && strings.EqualFold(g.Platform, platform) {
			return g, nil
		}
	}
	return game.Game{}, fmt.Errorf("game %s/%s: %w", externalID, platform, storage.ErrNotFound)
}

func (s *Store) ListGames(_ context.Context) ([]game.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]game.Game, 0, len(s.games))
	for _, g := range s.games {
		result = append(result, g)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteGame(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[id]; !ok {
		return fmt.Errorf("game %s: %w", id, storage.ErrNotFound)
	}
	delete(s.games, id)
	delete(s.records, id)
	for entryID, e := range s.entries {
		if e.GameID == id {
			delete(s.entries, entryID)
		}
	}
	return nil
}

// PriceHistoryStore implementation ------------------------------------------

func (s *Store) AppendPriceRecord(_ context.Context, rec pricing.Record) (pricing.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = s.nextIDLocked()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	s.records[rec.GameID] = append(s.records[rec.GameID], rec)
	return rec, nil
}

func (s *Store) LatestPriceRecord(_ context.Context, gameID string) (pricing.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.records[gameID]
	if len(recs) == 0 {
		return pricing.Record{}, fmt.Errorf("price history for game %s: %w", gameID, storage.ErrNotFound)
	}
	latest := recs[0]
	for _, r := range recs[1:] {
		if !r.RecordedAt.Before(latest.RecordedAt) {
			latest = r
		}
	}
	return latest, nil
}

func (s *Store) ListPriceRecords(_ context.Context, gameID string) ([]pricing.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := append([]pricing.Record(nil), s.records[gameID]...)
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].RecordedAt.After(recs[j].RecordedAt) })
	return recs, nil
}

// WatchlistStore implementation ---------------------------------------------

func (s *Store) CreateEntry(_ context.Context, e watchlist.Entry) (watchlist.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.entries {
		if existing.UserID == e.UserID &&
			existing.ExternalGameID == e.ExternalGameID &&
			strings.EqualFold(existing.Platform, e.Platform) {
			return watchlist.Entry{}, fmt.Errorf("watchlist entry for game %s/%s: %w",
				e.ExternalGameID, e.Platform, storage.ErrDuplicate)
		}
	}

	if e.ID == "" {
		e.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	s.entries[e.ID] = e
	return e, nil
}

func (s *Store) UpdateEntry(_ context.Context, e watchlist.Entry) (watchlist.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateEntryLocked(e)
}

func (s *Store) updateEntryLocked(e watchlist.Entry) (watchlist.Entry, error) {
	original, ok := s.entries[e.ID]
	if !ok {
		return watchlist.Entry{}, fmt.Errorf("watchlist entry %s: %w", e.ID, storage.ErrNotFound)
	}
	e.UserID = original.UserID
	e.CreatedAt = original.CreatedAt
	e.UpdatedAt = time.Now().UTC()
	s.entries[e.ID] = e
	return e, nil
}

func (s *Store) UpdateEntries(_ context.Context, entries []watchlist.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if _, err := s.updateEntryLocked(e); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetEntry(_ context.Context, id string) (watchlist.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return watchlist.Entry{}, fmt.Errorf("watchlist entry %s: %w", id, storage.ErrNotFound)
	}
	return e, nil
}

func (s *Store) FindEntry(_ context.Context, userID, externalGameID, platform string) (watchlist.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.UserID == userID && e.ExternalGameID == externalGameID && strings.EqualFold(e.Platform, platform) {
			return e, nil
		}
	}
	return watchlist.Entry{}, fmt.Errorf("watchlist entry for game %s/%s: %w", externalGameID, platform, storage.ErrNotFound)
}

func (s *Store) ListEntriesByUser(_ context.Context, userID string) ([]watchlist.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]watchlist.Entry, 0)
	for _, e := range s.entries {
		if e.UserID == userID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) ListEntriesForGame(_ context.Context, gameID, platform string) ([]watchlist.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]watchlist.Entry, 0)
	for _, e := range s.entries {
		if e.GameID == gameID && strings.EqualFold(e.Platform, platform) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("watchlist entry %s: %w", id, storage.ErrNotFound)
	}
	delete(s.entries, id)
	return nil
}

// UserStore implementation ---------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return user.User{}, fmt.Errorf("user %s: %w", u.Email, storage.ErrDuplicate)
		}
	}

	if u.ID == "" {
		u.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users[u.ID]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", u.ID, storage.ErrNotFound)
	}
	for id, existing := range s.users {
		if id != u.ID && strings.EqualFold(existing.Email, u.Email) {
			return user.User{}, fmt.Errorf("user %s: %w", u.Email, storage.ErrDuplicate)
		}
	}

	u.CreatedAt = original.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return user.User{}, fmt.Errorf("user %s: %w", email, storage.ErrNotFound)
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	delete(s.users, id)
	for entryID, e := range s.entries {
		if e.UserID == id {
			delete(s.entries, entryID)
		}
	}
	for token, t := range s.resetTokens {
		if t.UserID == id {
			delete(s.resetTokens, token)
		}
	}
	return nil
}

func (s *Store) CreateResetToken(_ context.Context, t user.ResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.resetTokens[t.Token]; exists {
		return fmt.Errorf("reset token: %w", storage.ErrDuplicate)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	s.resetTokens[t.Token] = t
	return nil
}

func (s *Store) GetResetToken(_ context.Context, token string) (user.ResetToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.resetTokens[token]
	if !ok {
		return user.ResetToken{}, fmt.Errorf("reset token: %w", storage.ErrNotFound)
	}
	return t, nil
}

func (s *Store) MarkResetTokenUsed(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.resetTokens[token]
	if !ok {
		return fmt.Errorf("reset token: %w", storage.ErrNotFound)
	}
	t.UsedAt = time.Now().UTC()
	s.resetTokens[token] = t
	return nil
}
