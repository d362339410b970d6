package games

import (
	"context"
	"testing"

	"github.com/quest4deals/quest4deals/internal/app/domain/game"
	"github.com/quest4deals/quest4deals/internal/app/storage"
	"github.com/quest4deals/quest4deals/internal/app/storage/memory"
)

func TestService_CreateAndUpdate(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, game.Game{
		ExternalID: "123", Title: "Hades", Genre: "Roguelike", Platform: "PC", CurrentPrice: 24.99,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("missing id or timestamps: %#v", created)
	}

	if _, err := svc.Create(ctx, game.Game{Platform: "PC"}); err == nil {
		t.Fatalf("missing title must be rejected")
	}
	if _, err := svc.Create(ctx, game.Game{Title: "Hades"}); err == nil {
		t.Fatalf("missing platform must be rejected")
	}
	if _, err := svc.Create(ctx, game.Game{Title: "Hades II", Platform: "PC", CurrentPrice: -1}); err == nil {
		t.Fatalf("negative price must be rejected")
	}

	title := "Hades II"
	price := 29.99
	updated, err := svc.Update(ctx, created.ID, &title, nil, nil, &price)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Hades II" || updated.CurrentPrice != 29.99 {
		t.Fatalf("update not applied: %#v", updated)
	}
	if updated.Genre != "Roguelike" {
		t.Fatalf("untouched fields must survive: %#v", updated)
	}

	empty := " "
	if _, err := svc.Update(ctx, created.ID, &empty, nil, nil, nil); err == nil {
		t.Fatalf("blank title must be rejected")
	}
}

func TestService_EnsureTracked(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	first, err := svc.EnsureTracked(ctx, "123", "Hades", "Roguelike", "PC")
	if err != nil {
		t.Fatalf("ensure tracked: %v", err)
	}
	second, err := svc.EnsureTracked(ctx, "123", "Hades", "Roguelike", "PC")
	if err != nil {
		t.Fatalf("ensure tracked again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same catalog entry, got %s and %s", first.ID, second.ID)
	}

	other, err := svc.EnsureTracked(ctx, "123", "Hades", "Roguelike", "Switch")
	if err != nil {
		t.Fatalf("ensure tracked other platform: %v", err)
	}
	if other.ID == first.ID {
		t.Fatalf("platforms must be tracked separately")
	}
}

func TestService_DuplicateExternal(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, game.Game{ExternalID: "123", Title: "Hades", Platform: "PC"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := svc.Create(ctx, game.Game{ExternalID: "123", Title: "Hades", Platform: "pc"})
	if !storage.IsDuplicate(err) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestService_Delete(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()

	g, err := svc.Create(ctx, game.Game{Title: "Hades", Platform: "PC"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, g.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, g.ID); !storage.IsNotFound(err) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
