package user

import "time"

// User is a registered account. Email is unique across users.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ResetToken is a single-use password reset grant.
type ResetToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	UsedAt    time.Time
	CreatedAt time.Time
}

// Used reports whether the token has been consumed.
func (t ResetToken) Used() bool { return !t.UsedAt.IsZero() }

// Expired reports whether the token is past its expiry at the given time.
func (t ResetToken) Expired(now time.Time) bool { return now.After(t.ExpiresAt) }
