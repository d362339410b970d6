package notify

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/quest4deals/quest4deals/internal/app/domain/game"
	"github.com/quest4deals/quest4deals/internal/app/domain/user"
	"github.com/quest4deals/quest4deals/internal/app/domain/watchlist"
	"github.com/quest4deals/quest4deals/internal/app/storage/memory"
	"github.com/quest4deals/quest4deals/internal/email"
)

type capturedMail struct {
	to      string
	subject string
}

func seedEntry(t *testing.T, store *memory.Store, notify watchlist.Notification, price float64) (user.User, game.Game, watchlist.Entry) {
	t.Helper()
	ctx := context.Background()

	u, err := store.CreateUser(ctx, user.User{Email: "player@example.com", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	g, err := store.CreateGame(ctx, game.Game{ExternalID: "123", Title: "Hollow Knight", Platform: "PC", CurrentPrice: price})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	entry, err := store.CreateEntry(ctx, watchlist.Entry{
		UserID:         u.ID,
		GameID:         g.ID,
		ExternalGameID: g.ExternalID,
		Platform:       g.Platform,
		Title:          g.Title,
		Price:          price,
		Notify:         notify,
		Enabled:        true,
	})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	return u, g, entry
}

func TestEvaluate_SendsAndPersists(t *testing.T) {
	store := memory.New()
	_, g, entry := seedEntry(t, store, watchlist.BelowThreshold(20), 29.99)

	var mails []capturedMail
	sender := email.SenderFunc(func(to, subject, body string) error {
		mails = append(mails, capturedMail{to: to, subject: subject})
		return nil
	})

	svc := New(store, store, sender, nil)
	sent, err := svc.Evaluate(context.Background(), g.ID, g.Title, 18, g.Platform)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if sent != 1 || len(mails) != 1 {
		t.Fatalf("expected 1 alert, got sent=%d mails=%d", sent, len(mails))
	}
	if mails[0].to != "player@example.com" {
		t.Fatalf("unexpected recipient %q", mails[0].to)
	}

	updated, err := store.GetEntry(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if updated.Price != 18 {
		t.Fatalf("stored price not updated: %v", updated.Price)
	}
	if updated.LastNotifiedAt.IsZero() {
		t.Fatalf("last notified timestamp not set")
	}
}

func TestEvaluate_CooldownAndRearm(t *testing.T) {
	store := memory.New()
	_, g, _ := seedEntry(t, store, watchlist.BelowThreshold(20), 29.99)

	sent := 0
	sender := email.SenderFunc(func(to, subject, body string) error {
		sent++
		return nil
	})

	svc := New(store, store, sender, nil)
	ctx := context.Background()

	if n, _ := svc.Evaluate(ctx, g.ID, g.Title, 18, g.Platform); n != 1 {
		t.Fatalf("first drop should alert, got %d", n)
	}
	if n, _ := svc.Evaluate(ctx, g.ID, g.Title, 18, g.Platform); n != 0 {
		t.Fatalf("repeat price within cooldown should not alert, got %d", n)
	}
	if n, _ := svc.Evaluate(ctx, g.ID, g.Title, 15, g.Platform); n != 1 {
		t.Fatalf("further drop should alert immediately, got %d", n)
	}

	// Age the last notification past the cooldown.
	svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	if n, _ := svc.Evaluate(ctx, g.ID, g.Title, 15, g.Platform); n != 1 {
		t.Fatalf("same price after cooldown should alert, got %d", n)
	}
	if sent != 3 {
		t.Fatalf("expected 3 mails, got %d", sent)
	}
}

func TestEvaluate_SkipsDisabledEntries(t *testing.T) {
	store := memory.New()
	_, g, entry := seedEntry(t, store, watchlist.OnAnyChange(), 29.99)

	entry.Enabled = false
	if _, err := store.UpdateEntry(context.Background(), entry); err != nil {
		t.Fatalf("disable entry: %v", err)
	}

	svc := New(store, store, email.SenderFunc(func(to, subject, body string) error {
		t.Fatalf("disabled entry must not be notified")
		return nil
	}), nil)

	sent, err := svc.Evaluate(context.Background(), g.ID, g.Title, 10, g.Platform)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if sent != 0 {
		t.Fatalf("expected no alerts, got %d", sent)
	}
}

func TestEvaluate_SendFailureDoesNotPersist(t *testing.T) {
	store := memory.New()
	_, g, entry := seedEntry(t, store, watchlist.OnAnyChange(), 29.99)

	svc := New(store, store, email.SenderFunc(func(to, subject, body string) error {
		return fmt.Errorf("smtp down")
	}), nil)

	sent, err := svc.Evaluate(context.Background(), g.ID, g.Title, 10, g.Platform)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if sent != 0 {
		t.Fatalf("failed send must not count, got %d", sent)
	}

	unchanged, err := store.GetEntry(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if unchanged.Price != 29.99 || !unchanged.LastNotifiedAt.IsZero() {
		t.Fatalf("failed send must not update entry: %#v", unchanged)
	}
}
