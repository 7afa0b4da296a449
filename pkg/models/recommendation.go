package models

import (
	"time"

	"github.com/google/uuid"
)

// Score source tags.
const (
	SourceContent       = "content"
	SourceCollaborative = "collaborative"
	SourcePopularity    = "popularity"
	SourceLocation      = "location"
)

// ScoredVehicle is one scorer's output for one candidate.
type ScoredVehicle struct {
	VehicleID uuid.UUID `json:"vehicle_id"`
	Score     float64   `json:"score"`
	Source    string    `json:"source"`
}

// Recommendation is a ranked result. Breakdown holds the raw (pre-weight)
// component scores keyed by source tag.
type Recommendation struct {
	VehicleID uuid.UUID          `json:"vehicle_id"`
	Score     float64            `json:"score"`
	Breakdown map[string]float64 `json:"breakdown,omitempty"`
	Reason    string             `json:"reason"`
	Position  int                `json:"position"`
	Vehicle   *Vehicle           `json:"vehicle,omitempty"`
}

type RecommendationResponse struct {
	UserID          uuid.UUID        `json:"user_id"`
	Recommendations []Recommendation `json:"recommendations"`
	GeneratedAt     time.Time        `json:"generated_at"`
	CacheHit        bool             `json:"cache_hit"`
}

// Feedback closes the loop: callers report how a recommendation landed.
type Feedback struct {
	UserID    uuid.UUID `json:"user_id" validate:"required"`
	VehicleID uuid.UUID `json:"vehicle_id" validate:"required"`
	Value     float64   `json:"value" validate:"min=-1,max=5"`
	Comment   *string   `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
