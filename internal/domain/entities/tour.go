package entities

import (
	"time"
)

// Difficulty enumerates tour difficulty levels
type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyMedium    Difficulty = "medium"
	DifficultyDifficult Difficulty = "difficult"
)

// DefaultRatingsAverage is the aggregate written back when a tour has no
// reviews left.
const DefaultRatingsAverage = 4.5

// Location is a point of interest along a tour
type Location struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Address     string  `json:"address,omitempty"`
	Description string  `json:"description,omitempty"`
	Day         int     `json:"day,omitempty"`
}

// Tour is a catalog entry. RatingsAverage and RatingsQuantity are maintained
// exclusively by the review aggregation routine.
type Tour struct {
	ID              string      `json:"id" db:"id"`
	Name            string      `json:"name" db:"name"`
	Slug            string      `json:"slug" db:"slug"`
	Duration        int         `json:"duration" db:"duration"`
	MaxGroupSize    int         `json:"max_group_size" db:"max_group_size"`
	Difficulty      Difficulty  `json:"difficulty" db:"difficulty"`
	RatingsAverage  float64     `json:"ratings_average" db:"ratings_average"`
	RatingsQuantity int         `json:"ratings_quantity" db:"ratings_quantity"`
	Price           float64     `json:"price" db:"price"`
	PriceDiscount   *float64    `json:"price_discount,omitempty" db:"price_discount"`
	Summary         string      `json:"summary" db:"summary"`
	Description     string      `json:"description,omitempty" db:"description"`
	ImageCover      string      `json:"image_cover" db:"image_cover"`
	Images          []string    `json:"images,omitempty" db:"images"`
	StartDates      []time.Time `json:"start_dates,omitempty" db:"start_dates"`
	StartLocation   Location    `json:"start_location"`
	Locations       []Location  `json:"locations,omitempty"`
	GuideIDs        []string    `json:"guide_ids,omitempty" db:"guide_ids"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`
}

// TourDistance pairs a tour with its computed distance from a query point
type TourDistance struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}

// TourStats is the per-difficulty aggregate of the catalog
type TourStats struct {
	Difficulty Difficulty `json:"difficulty"`
	NumTours   int        `json:"num_tours"`
	AvgRating  float64    `json:"avg_rating"`
	AvgPrice   float64    `json:"avg_price"`
	MinPrice   float64    `json:"min_price"`
	MaxPrice   float64    `json:"max_price"`
}

// MonthlyPlanEntry counts tour starts in one month of a year
type MonthlyPlanEntry struct {
	Month     int      `json:"month"`
	NumStarts int      `json:"num_starts"`
	Tours     []string `json:"tours"`
}
