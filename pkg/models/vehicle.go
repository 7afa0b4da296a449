package models

import (
	"time"

	"github.com/google/uuid"
)

// Vehicle is a rentable unit as supplied by the availability query. Numeric
// fields that may be absent in the underlying listing are pointers; the
// scoring engine substitutes documented defaults for nil values.
type Vehicle struct {
	ID                uuid.UUID `json:"id" db:"id"`
	Category          string    `json:"category" db:"category"` // economy, compact, standard, luxury, suv
	Location          string    `json:"location" db:"location"`
	DailyRate         *float64  `json:"daily_rate,omitempty" db:"daily_rate"`                 // KES per day
	FuelEfficiency    *float64  `json:"fuel_efficiency,omitempty" db:"fuel_efficiency"`       // km per litre
	AvgRating         *float64  `json:"avg_rating,omitempty" db:"avg_rating"`                 // 1-5
	AvailabilityScore *float64  `json:"availability_score,omitempty" db:"availability_score"` // 0-100
	BookingCount      int       `json:"booking_count" db:"booking_count"`
	ReviewCount       int       `json:"review_count" db:"review_count"`
	LocationMatch     bool      `json:"location_match" db:"location_match"`
	HasPromotion      bool      `json:"has_promotion" db:"has_promotion"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// AvailabilityQuery narrows the candidate set. When both dates are set the
// store excludes vehicles whose confirmed reservations overlap the range.
type AvailabilityQuery struct {
	Location   string     `json:"location,omitempty"`
	PickupDate *time.Time `json:"pickup_date,omitempty"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
}
