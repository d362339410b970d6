package notify

import (
	"testing"
	"time"

	"github.com/quest4deals/quest4deals/internal/app/domain/watchlist"
)

func TestDecide_AnyChange(t *testing.T) {
	now := time.Now().UTC()
	n := watchlist.OnAnyChange()

	if !Decide(n, 29.99, 24.99, time.Time{}, now) {
		t.Fatalf("expected notification on price drop")
	}
	if !Decide(n, 24.99, 29.99, now.Add(-time.Minute), now) {
		t.Fatalf("expected notification on price rise")
	}
	if Decide(n, 24.99, 24.99, time.Time{}, now) {
		t.Fatalf("unexpected notification on unchanged price")
	}
	if Decide(n, 24.99, 24.994, time.Time{}, now) {
		t.Fatalf("sub-cent movement should not notify")
	}
}

func TestDecide_Threshold(t *testing.T) {
	now := time.Now().UTC()
	n := watchlist.BelowThreshold(20)

	tests := []struct {
		name         string
		stored       float64
		new          float64
		lastNotified time.Time
		want         bool
	}{
		{"above threshold", 29.99, 21, time.Time{}, false},
		{"first time at threshold", 29.99, 18, time.Time{}, true},
		{"exactly at threshold", 29.99, 20, time.Time{}, true},
		{"same price within cooldown", 18, 18, now.Add(-time.Hour), false},
		{"same price after cooldown", 18, 18, now.Add(-25 * time.Hour), true},
		{"further drop within cooldown", 18, 15, now.Add(-time.Hour), true},
		{"rise within threshold within cooldown", 15, 18, now.Add(-time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(n, tt.stored, tt.new, tt.lastNotified, now); got != tt.want {
				t.Fatalf("Decide(stored=%v new=%v) = %v, want %v", tt.stored, tt.new, got, tt.want)
			}
		})
	}
}

func TestDecide_ZeroValueIsAnyChange(t *testing.T) {
	var n watchlist.Notification
	if !Decide(n, 10, 9, time.Time{}, time.Now()) {
		t.Fatalf("zero-value setting should behave as any-change")
	}
}
