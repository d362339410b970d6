package storage

import (
	"context"
	"errors"

	"github.com/quest4deals/quest4deals/internal/app/domain/game"
	"github.com/quest4deals/quest4deals/internal/app/domain/pricing"
	"github.com/quest4deals/quest4deals/internal/app/domain/user"
	"github.com/quest4deals/quest4deals/internal/app/domain/watchlist"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a write violates a uniqueness constraint.
var ErrDuplicate = errors.New("already exists")

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsDuplicate reports whether err wraps ErrDuplicate.
func IsDuplicate(err error) bool { return errors.Is(err, ErrDuplicate) }

// GameStore persists catalog entries. Deleting a game removes its price
// history and watchlist entries.
type GameStore interface {
	CreateGame(ctx context.Context, g game.Game) (game.Game, error)
	UpdateGame(ctx context.Context, g game.Game) (game.Game, error)
	GetGame(ctx context.Context, id string) (game.Game, error)
	GetGameByExternal(ctx context.Context, externalID, platform string) (game.Game, error)
	ListGames(ctx context.Context) ([]game.Game, error)
	DeleteGame(ctx context.Context, id string) error
}

// PriceHistoryStore persists append-only price records.
type PriceHistoryStore interface {
	AppendPriceRecord(ctx context.Context, rec pricing.Record) (pricing.Record, error)
	LatestPriceRecord(ctx context.Context, gameID string) (pricing.Record, error)
	ListPriceRecords(ctx context.Context, gameID string) ([]pricing.Record, error)
}

// WatchlistStore persists per-user tracking entries.
type WatchlistStore interface {
	CreateEntry(ctx context.Context, e watchlist.Entry) (watchlist.Entry, error)
	UpdateEntry(ctx context.Context, e watchlist.Entry) (watchlist.Entry, error)
	UpdateEntries(ctx context.Context, entries []watchlist.Entry) error
	GetEntry(ctx context.Context, id string) (watchlist.Entry, error)
	FindEntry(ctx context.Context, userID, externalGameID, platform string) (watchlist.Entry, error)
	ListEntriesByUser(ctx context.Context, userID string) ([]watchlist.Entry, error)
	ListEntriesForGame(ctx context.Context, gameID, platform string) ([]watchlist.Entry, error)
	DeleteEntry(ctx context.Context, id string) error
}

// UserStore persists accounts and password reset tokens. Deleting a user
// removes their watchlist entries and reset tokens.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	DeleteUser(ctx context.Context, id string) error

	CreateResetToken(ctx context.Context, t user.ResetToken) error
	GetResetToken(ctx context.Context, token string) (user.ResetToken, error)
	MarkResetTokenUsed(ctx context.Context, token string) error
}
