package notify

import (
	"math"
	"time"

	"github.com/quest4deals/quest4deals/internal/app/domain/watchlist"
)

// cooldown is the minimum gap between threshold notifications when the
// qualifying price has not moved.
const cooldown = 24 * time.Hour

func priceEquals(a, b float64) bool {
	return math.Round(a*100) == math.Round(b*100)
}

// Decide reports whether an entry should be notified about newPrice.
//
// Any-change entries fire on every price movement. Threshold entries fire
// when the price is at or below the threshold and either the entry was
// never notified, the last notification is older than the cooldown, or the
// price has moved since the stored one; a further drop inside the cooldown
// window therefore re-alerts immediately.
func Decide(n watchlist.Notification, storedPrice, newPrice float64, lastNotified, now time.Time) bool {
	switch n.Mode() {
	case watchlist.ModeAnyChange:
		return !priceEquals(storedPrice, newPrice)
	case watchlist.ModeThreshold:
		threshold, ok := n.Threshold()
		if !ok {
			return false
		}
		if math.Round(newPrice*100) > math.Round(threshold*100) {
			return false
		}
		if lastNotified.IsZero() {
			return true
		}
		if now.Sub(lastNotified) > cooldown {
			return true
		}
		return !priceEquals(storedPrice, newPrice)
	default:
		return false
	}
}
