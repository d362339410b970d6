package pricing

import (
	"context"
	"testing"

	"github.com/quest4deals/quest4deals/internal/app/domain/game"
	"github.com/quest4deals/quest4deals/internal/app/storage"
	"github.com/quest4deals/quest4deals/internal/app/storage/memory"
)

func newTrackedGame(t *testing.T, store *memory.Store) game.Game {
	t.Helper()
	g, err := store.CreateGame(context.Background(), game.Game{
		ExternalID: "123", Title: "Celeste", Platform: "PC", CurrentPrice: 19.99,
	})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	return g
}

func TestRecordIfChanged(t *testing.T) {
	store := memory.New()
	g := newTrackedGame(t, store)
	svc := New(store, nil)
	ctx := context.Background()

	changed, err := svc.RecordIfChanged(ctx, g.ID, 19.99)
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	if !changed {
		t.Fatalf("first observation must create a record")
	}

	changed, err = svc.RecordIfChanged(ctx, g.ID, 19.99)
	if err != nil {
		t.Fatalf("repeat record: %v", err)
	}
	if changed {
		t.Fatalf("unchanged price must not create a record")
	}

	// Sub-cent noise compares equal.
	if changed, _ = svc.RecordIfChanged(ctx, g.ID, 19.994); changed {
		t.Fatalf("sub-cent difference must not create a record")
	}

	if changed, _ = svc.RecordIfChanged(ctx, g.ID, 14.99); !changed {
		t.Fatalf("price drop must create a record")
	}

	records, err := svc.History(ctx, g.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Price != 14.99 {
		t.Fatalf("newest record first, got %v", records[0].Price)
	}

	latest, err := svc.Latest(ctx, g.ID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Price != 14.99 {
		t.Fatalf("unexpected latest price %v", latest.Price)
	}
}

func TestRecordIfChanged_RejectsInvalidPrices(t *testing.T) {
	store := memory.New()
	g := newTrackedGame(t, store)
	svc := New(store, nil)

	if _, err := svc.RecordIfChanged(context.Background(), g.ID, -1); err == nil {
		t.Fatalf("negative price must be rejected")
	}
	if _, err := svc.RecordIfChanged(context.Background(), "", 10); err == nil {
		t.Fatalf("empty game id must be rejected")
	}
}

func TestStats(t *testing.T) {
	store := memory.New()
	g := newTrackedGame(t, store)
	svc := New(store, nil)
	ctx := context.Background()

	for _, price := range []float64{29.99, 19.99, 24.99} {
		if _, err := svc.RecordIfChanged(ctx, g.ID, price); err != nil {
			t.Fatalf("record %v: %v", price, err)
		}
	}

	stats, err := svc.Stats(ctx, g.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Current != 24.99 || stats.Lowest != 19.99 || stats.Highest != 29.99 || stats.Count != 3 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}

func TestStats_EmptyHistory(t *testing.T) {
	store := memory.New()
	g := newTrackedGame(t, store)
	svc := New(store, nil)

	if _, err := svc.Stats(context.Background(), g.ID); !storage.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
