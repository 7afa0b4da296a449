package models

import (
	"time"

	"github.com/google/uuid"
)

// UserAggregates holds booking/review statistics the store derives from a
// user's history. Optional fields are nil when the user has no signal.
type UserAggregates struct {
	UserID           uuid.UUID `json:"user_id" db:"user_id"`
	Age              *int      `json:"age,omitempty" db:"age"`
	TotalBookings    int       `json:"total_bookings" db:"total_bookings"`
	AvgSpending      *float64  `json:"avg_spending,omitempty" db:"avg_spending"` // KES per booking
	AvgTripDays      *float64  `json:"avg_trip_days,omitempty" db:"avg_trip_days"`
	RatingGiven      *float64  `json:"rating_given,omitempty" db:"rating_given"`
	RatingReceived   *float64  `json:"rating_received,omitempty" db:"rating_received"`
	BookedCategories []string  `json:"booked_categories,omitempty" db:"booked_categories"` // one entry per past booking
}

// SearchRecord is one recent search, newest first when listed.
type SearchRecord struct {
	Category  string    `json:"category,omitempty"`
	Location  string    `json:"location,omitempty"`
	PriceMin  *float64  `json:"price_min,omitempty"`
	PriceMax  *float64  `json:"price_max,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SearchEvent is the ingest payload reported when a renter runs a search.
// Timestamp is optional; the store stamps arrival time when it is absent.
type SearchEvent struct {
	UserID    uuid.UUID `json:"user_id" validate:"required"`
	Category  string    `json:"category,omitempty" validate:"omitempty,max=100"`
	Location  string    `json:"location,omitempty" validate:"omitempty,max=200"`
	PriceMin  *float64  `json:"price_min,omitempty" validate:"omitempty,gte=0"`
	PriceMax  *float64  `json:"price_max,omitempty" validate:"omitempty,gte=0"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// PriceRange is the price band a user has shown interest in.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Preferences are frequency tables mined from searches and bookings.
// Counts are always non-negative; absent history yields empty tables.
type Preferences struct {
	Categories map[string]int `json:"categories"`
	Locations  map[string]int `json:"locations"`
	PriceRange PriceRange     `json:"price_range"`
}

// UserProfile is the aggregated view the scorers consume. Built fresh per
// recommendation call, never persisted.
type UserProfile struct {
	UserID         uuid.UUID      `json:"user_id"`
	Age            *int           `json:"age,omitempty"`
	TotalBookings  int            `json:"total_bookings"`
	AvgSpending    *float64       `json:"avg_spending,omitempty"`
	AvgTripDays    *float64       `json:"avg_trip_days,omitempty"`
	RatingGiven    *float64       `json:"rating_given,omitempty"`
	RatingReceived *float64       `json:"rating_received,omitempty"`
	Preferences    Preferences    `json:"preferences"`
	RecentSearches []SearchRecord `json:"recent_searches"` // at most 5
}

// PeerUser is a co-booking neighbour: another user plus the number of
// vehicles both have booked. Intermediate state for collaborative filtering.
type PeerUser struct {
	UserID         uuid.UUID `json:"user_id" db:"user_id"`
	CommonVehicles int       `json:"common_vehicles" db:"common_vehicles"`
}

// PeerVehicleStat aggregates peer activity on one vehicle.
type PeerVehicleStat struct {
	VehicleID    uuid.UUID `json:"vehicle_id" db:"vehicle_id"`
	BookingCount int       `json:"booking_count" db:"booking_count"`
	AvgRating    *float64  `json:"avg_rating,omitempty" db:"avg_rating"`
}
