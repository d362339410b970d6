package game

import "time"

// Game is a catalog entry for a tracked title on one platform. The external
// ID ties it to the price aggregator's product.
type Game struct {
	ID           string    `json:"id"`
	ExternalID   string    `json:"external_id"`
	Title        string    `json:"title"`
	Genre        string    `json:"genre"`
	Platform     string    `json:"platform"`
	CurrentPrice float64   `json:"current_price"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
