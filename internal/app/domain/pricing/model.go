package pricing

import "time"

// Record is one observed price for a game. Records are append-only and a
// new one is created only when the price differs from the latest record.
type Record struct {
	ID         string    `json:"id"`
	GameID     string    `json:"game_id"`
	Price      float64   `json:"price"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Stats summarises the recorded history of a game.
type Stats struct {
	GameID  string  `json:"game_id"`
	Current float64 `json:"current"`
	Lowest  float64 `json:"lowest"`
	Highest float64 `json:"highest"`
	Count   int     `json:"count"`
}
