package watchlist

import (
	"encoding/json"
	"fmt"
	"time"
)

// Mode discriminates the notification variants.
type Mode string

const (
	// ModeAnyChange notifies on every price movement.
	ModeAnyChange Mode = "any_change"
	// ModeThreshold notifies when the price falls to or below a target.
	ModeThreshold Mode = "threshold"
)

// Notification is a closed two-case variant: either "notify on any change"
// or "notify at or below a threshold". Only the threshold case carries a
// price; the zero value is the any-change case.
type Notification struct {
	mode      Mode
	threshold float64
}

// OnAnyChange returns the any-change notification setting.
func OnAnyChange() Notification {
	return Notification{mode: ModeAnyChange}
}

// BelowThreshold returns a threshold notification setting.
func BelowThreshold(price float64) Notification {
	return Notification{mode: ModeThreshold, threshold: price}
}

// Mode reports which variant this setting is.
func (n Notification) Mode() Mode {
	if n.mode == "" {
		return ModeAnyChange
	}
	return n.mode
}

// Threshold returns the threshold price; ok is false for the any-change
// case.
func (n Notification) Threshold() (float64, bool) {
	if n.Mode() != ModeThreshold {
		return 0, false
	}
	return n.threshold, true
}

type notificationJSON struct {
	Mode      Mode     `json:"mode"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// MarshalJSON encodes the variant; the threshold field is present only for
// the threshold case.
func (n Notification) MarshalJSON() ([]byte, error) {
	out := notificationJSON{Mode: n.Mode()}
	if t, ok := n.Threshold(); ok {
		out.Threshold = &t
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the variant, rejecting unknown modes and threshold
// settings without a price.
func (n *Notification) UnmarshalJSON(data []byte) error {
	var in notificationJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Mode {
	case "", ModeAnyChange:
		*n = OnAnyChange()
	case ModeThreshold:
		if in.Threshold == nil {
			return fmt.Errorf("threshold mode requires a threshold price")
		}
		if *in.Threshold < 0 {
			return fmt.Errorf("threshold price cannot be negative")
		}
		*n = BelowThreshold(*in.Threshold)
	default:
		return fmt.Errorf("unknown notification mode %q", in.Mode)
	}
	return nil
}

// Entry tracks one game on one platform for one user. At most one entry may
// exist per (user, external game, platform).
type Entry struct {
	ID             string       `json:"id"`
	UserID         string       `json:"user_id"`
	GameID         string       `json:"game_id"`
	ExternalGameID string       `json:"external_game_id"`
	Platform       string       `json:"platform"`
	Title          string       `json:"title"`
	Genre          string       `json:"genre"`
	Price          float64      `json:"price"`
	Notify         Notification `json:"notify"`
	Enabled        bool         `json:"enabled"`
	LastNotifiedAt time.Time    `json:"last_notified_at"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
