package watchlist

import (
	"context"
	"testing"

	"github.com/quest4deals/quest4deals/internal/app/domain/game"
	"github.com/quest4deals/quest4deals/internal/app/domain/user"
	domain "github.com/quest4deals/quest4deals/internal/app/domain/watchlist"
	"github.com/quest4deals/quest4deals/internal/app/storage"
	"github.com/quest4deals/quest4deals/internal/app/storage/memory"
)

func setup(t *testing.T) (*Service, *memory.Store, user.User, game.Game) {
	t.Helper()
	store := memory.New()
	ctx := context.Background()

	u, err := store.CreateUser(ctx, user.User{Email: "player@example.com", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	g, err := store.CreateGame(ctx, game.Game{
		ExternalID: "123", Title: "Stardew Valley", Genre: "Sim", Platform: "PC", CurrentPrice: 14.99,
	})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	return New(store, store, nil), store, u, g
}

func TestAdd_DefaultsAndSnapshot(t *testing.T) {
	svc, _, u, g := setup(t)

	entry, err := svc.Add(context.Background(), u.ID, g.ID, nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !entry.Enabled {
		t.Fatalf("new entries must be enabled")
	}
	if entry.Notify.Mode() != domain.ModeAnyChange {
		t.Fatalf("default mode must be any-change, got %s", entry.Notify.Mode())
	}
	if entry.Title != g.Title || entry.Platform != g.Platform || entry.Price != g.CurrentPrice {
		t.Fatalf("game snapshot not copied: %#v", entry)
	}
	if entry.ExternalGameID != g.ExternalID {
		t.Fatalf("external id not copied: %#v", entry)
	}
}

func TestAdd_DuplicateRejected(t *testing.T) {
	svc, _, u, g := setup(t)
	ctx := context.Background()

	if _, err := svc.Add(ctx, u.ID, g.ID, nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.Add(ctx, u.ID, g.ID, nil); !storage.IsDuplicate(err) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestAdd_UnknownGame(t *testing.T) {
	svc, _, u, _ := setup(t)
	if _, err := svc.Add(context.Background(), u.ID, "missing", nil); !storage.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateSettings(t *testing.T) {
	svc, _, u, g := setup(t)
	ctx := context.Background()

	entry, err := svc.Add(ctx, u.ID, g.ID, nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	disabled := false
	threshold := domain.BelowThreshold(9.99)
	updated, err := svc.UpdateSettings(ctx, u.ID, entry.ID, &disabled, &threshold)
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if updated.Enabled {
		t.Fatalf("entry should be disabled")
	}
	if price, ok := updated.Notify.Threshold(); !ok || price != 9.99 {
		t.Fatalf("threshold not applied: %#v", updated.Notify)
	}
}

func TestOwnershipIsEnforced(t *testing.T) {
	svc, store, u, g := setup(t)
	ctx := context.Background()

	entry, err := svc.Add(ctx, u.ID, g.ID, nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	other, err := store.CreateUser(ctx, user.User{Email: "other@example.com", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create other user: %v", err)
	}

	if _, err := svc.Get(ctx, other.ID, entry.ID); !storage.IsNotFound(err) {
		t.Fatalf("foreign entries must read as not found, got %v", err)
	}
	if err := svc.Remove(ctx, other.ID, entry.ID); !storage.IsNotFound(err) {
		t.Fatalf("foreign entries must not be removable, got %v", err)
	}

	if err := svc.Remove(ctx, u.ID, entry.ID); err != nil {
		t.Fatalf("owner remove: %v", err)
	}
	entries, err := svc.ListByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty watchlist, got %d entries", len(entries))
	}
}
