package entities

import "time"

// Review is a rating plus free text owned by exactly one (user, tour) pair.
// At most one review per user per tour.
type Review struct {
	ID        string    `json:"id" db:"id"`
	Review    string    `json:"review" db:"review"`
	Rating    float64   `json:"rating" db:"rating"`
	TourID    string    `json:"tour_id" db:"tour_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// RatingStats is the recomputed aggregate for one tour
type RatingStats struct {
	Quantity int
	Average  float64
}
