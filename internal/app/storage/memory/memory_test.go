package memory

import (
	"context"
	"testing"
	"time"

	"github.com/quest4deals/quest4deals/internal/app/domain/game"
	"github.com/quest4deals/quest4deals/internal/app/domain/pricing"
	"github.com/quest4deals/quest4deals/internal/app/domain/user"
	"github.com/quest4deals/quest4deals/internal/app/domain/watchlist"
	"github.com/quest4deals/quest4deals/internal/app/storage"
)

func TestGameUniqueness(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.CreateGame(ctx, game.Game{ExternalID: "123", Title: "Hades", Platform: "PC"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.CreateGame(ctx, game.Game{ExternalID: "123", Title: "Hades", Platform: "pc"}); !storage.IsDuplicate(err) {
		t.Fatalf("platform comparison must ignore case, got %v", err)
	}
	if _, err := store.CreateGame(ctx, game.Game{ExternalID: "123", Title: "Hades", Platform: "Switch"}); err != nil {
		t.Fatalf("other platform must be allowed: %v", err)
	}

	g, err := store.GetGameByExternal(ctx, "123", "PC")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if g.Platform != "PC" {
		t.Fatalf("unexpected game: %#v", g)
	}
}

func TestLatestPriceRecord_TiebreakOnEqualTimestamps(t *testing.T) {
	store := New()
	ctx := context.Background()

	g, err := store.CreateGame(ctx, game.Game{Title: "Hades", Platform: "PC"})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}

	at := time.Now().UTC()
	if _, err := store.AppendPriceRecord(ctx, pricing.Record{GameID: g.ID, Price: 24.99, RecordedAt: at}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := store.AppendPriceRecord(ctx, pricing.Record{GameID: g.ID, Price: 19.99, RecordedAt: at}); err != nil {
		t.Fatalf("append: %v", err)
	}

	latest, err := store.LatestPriceRecord(ctx, g.ID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Price != 19.99 {
		t.Fatalf("ties must resolve to the later insert, got %v", latest.Price)
	}
}

func TestWatchlistUniqueness(t *testing.T) {
	store := New()
	ctx := context.Background()

	u, _ := store.CreateUser(ctx, user.User{Email: "player@example.com", PasswordHash: "x"})
	entry := watchlist.Entry{UserID: u.ID, GameID: "g1", ExternalGameID: "123", Platform: "PC"}

	if _, err := store.CreateEntry(ctx, entry); err != nil {
		t.Fatalf("create: %v", err)
	}
	entry.Platform = "pc"
	if _, err := store.CreateEntry(ctx, entry); !storage.IsDuplicate(err) {
		t.Fatalf("expected duplicate entry, got %v", err)
	}

	other, _ := store.CreateUser(ctx, user.User{Email: "other@example.com", PasswordHash: "x"})
	entry.UserID = other.ID
	if _, err := store.CreateEntry(ctx, entry); err != nil {
		t.Fatalf("same game for another user must be allowed: %v", err)
	}
}

func TestDeleteGame_Cascades(t *testing.T) {
	store := New()
	ctx := context.Background()

	u, _ := store.CreateUser(ctx, user.User{Email: "player@example.com", PasswordHash: "x"})
	g, _ := store.CreateGame(ctx, game.Game{ExternalID: "123", Title: "Hades", Platform: "PC"})
	if _, err := store.AppendPriceRecord(ctx, pricing.Record{GameID: g.ID, Price: 24.99, RecordedAt: time.Now()}); err != nil {
		t.Fatalf("append: %v", err)
	}
	entry, err := store.CreateEntry(ctx, watchlist.Entry{UserID: u.ID, GameID: g.ID, ExternalGameID: "123", Platform: "PC"})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}

	if err := store.DeleteGame(ctx, g.ID); err != nil {
		t.Fatalf("delete game: %v", err)
	}

	if _, err := store.LatestPriceRecord(ctx, g.ID); !storage.IsNotFound(err) {
		t.Fatalf("history must be removed, got %v", err)
	}
	if _, err := store.GetEntry(ctx, entry.ID); !storage.IsNotFound(err) {
		t.Fatalf("watchlist entries must be removed, got %v", err)
	}
}

func TestDeleteUser_Cascades(t *testing.T) {
	store := New()
	ctx := context.Background()

	u, _ := store.CreateUser(ctx, user.User{Email: "player@example.com", PasswordHash: "x"})
	g, _ := store.CreateGame(ctx, game.Game{ExternalID: "123", Title: "Hades", Platform: "PC"})
	entry, err := store.CreateEntry(ctx, watchlist.Entry{UserID: u.ID, GameID: g.ID, ExternalGameID: "123", Platform: "PC"})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if err := store.CreateResetToken(ctx, user.ResetToken{Token: "tok", UserID: u.ID, ExpiresAt: time.Now().Add(time.Hour)}); err != nil {
		t.Fatalf("create token: %v", err)
	}

	if err := store.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := store.GetEntry(ctx, entry.ID); !storage.IsNotFound(err) {
		t.Fatalf("entries must be removed, got %v", err)
	}
	if _, err := store.GetResetToken(ctx, "tok"); !storage.IsNotFound(err) {
		t.Fatalf("tokens must be removed, got %v", err)
	}
}

func TestUserEmailUniqueness(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.CreateUser(ctx, user.User{Email: "player@example.com", PasswordHash: "x"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.CreateUser(ctx, user.User{Email: "Player@Example.COM", PasswordHash: "x"}); !storage.IsDuplicate(err) {
		t.Fatalf("email comparison must ignore case, got %v", err)
	}
}
