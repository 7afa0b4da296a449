package recommend

import (
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gonum.org/v1/gonum/floats"

	"github.com/drivekenya/recsys/pkg/models"
)

// vectorLen is the fixed feature dimensionality shared by user and vehicle
// vectors. Cosine similarity is only defined for equal-length vectors.
const vectorLen = 6

// Defaults substituted when a profile or listing field is absent.
const (
	defaultAge         = 30.0
	defaultAffinity    = 0.5
	defaultTripDays    = 1.0
	defaultSpending    = 100.0
	defaultDailyRate   = 50.0
	defaultEfficiency  = 10.0
	defaultRating      = 3.0
	defaultAvailScore  = 50.0
	maxAge             = 100.0
	maxTripDays        = 14.0
	maxSpending        = 1000.0
	maxBookings        = 50.0
	maxDailyRate       = 200.0
	maxEfficiency      = 30.0
	maxRatingScale     = 5.0
	maxAvailScore      = 100.0
	maxDemand          = 100.0
	affinityCountScale = 10.0
)

// categoryWeights maps a vehicle category to its position on the
// economy-to-premium axis. Unknown categories fall back to the midpoint.
var categoryWeights = map[string]float64{
	"economy":  0.2,
	"compact":  0.4,
	"standard": 0.6,
	"luxury":   0.8,
	"suv":      1.0,
}

// FoldLabel normalizes a category or location label for comparison and
// counting: Unicode NFC, trimmed, lower-cased.
func FoldLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}

func normalizeAge(age *int) float64 {
	if age == nil {
		return defaultAge / maxAge
	}
	return float64(*age) / maxAge
}

func normalizeAffinity(counts map[string]int) float64 {
	if len(counts) == 0 {
		return defaultAffinity
	}
	total := 0
	for _, c := range counts {
		total += c
	}
	return math.Min(float64(total)/affinityCountScale, 1)
}

func normalizeTripDuration(days *float64) float64 {
	d := defaultTripDays
	if days != nil {
		d = *days
	}
	return math.Min(d/maxTripDays, 1)
}

func normalizePriceSensitivity(avgSpending *float64) float64 {
	s := defaultSpending
	if avgSpending != nil {
		s = *avgSpending
	}
	return 1 - math.Min(s/maxSpending, 1)
}

func normalizeBookingFrequency(total int) float64 {
	return math.Min(float64(total)/maxBookings, 1)
}

func normalizeCategory(category string) float64 {
	if w, ok := categoryWeights[FoldLabel(category)]; ok {
		return w
	}
	return 0.5
}

func normalizeDailyRate(rate *float64) float64 {
	r := defaultDailyRate
	if rate != nil {
		r = *rate
	}
	return math.Min(r/maxDailyRate, 1)
}

func normalizeEfficiency(eff *float64) float64 {
	e := defaultEfficiency
	if eff != nil {
		e = *eff
	}
	return math.Min(e/maxEfficiency, 1)
}

func normalizeRating(rating *float64) float64 {
	r := defaultRating
	if rating != nil {
		r = *rating
	}
	return r / maxRatingScale
}

func normalizeAvailability(score *float64) float64 {
	s := defaultAvailScore
	if score != nil {
		s = *score
	}
	return s / maxAvailScore
}

func normalizeDemand(bookingCount int) float64 {
	return math.Min(float64(bookingCount)/maxDemand, 1)
}

// UserVector builds the six-feature profile vector. Every component is in
// [0,1]; missing fields use the documented defaults rather than failing.
func UserVector(p *models.UserProfile) []float64 {
	if p == nil {
		p = &models.UserProfile{}
	}
	return []float64{
		normalizeAge(p.Age),
		normalizeAffinity(p.Preferences.Categories),
		normalizeTripDuration(p.AvgTripDays),
		normalizePriceSensitivity(p.AvgSpending),
		normalizeBookingFrequency(p.TotalBookings),
		normalizeAffinity(p.Preferences.Locations),
	}
}

// VehicleVector builds the six-feature listing vector.
func VehicleVector(v *models.Vehicle) []float64 {
	return []float64{
		normalizeCategory(v.Category),
		normalizeDailyRate(v.DailyRate),
		normalizeEfficiency(v.FuelEfficiency),
		normalizeRating(v.AvgRating),
		normalizeAvailability(v.AvailabilityScore),
		normalizeDemand(v.BookingCount),
	}
}

// CosineSimilarity returns dot(u,v)/(|u||v|). A length mismatch or a
// zero-magnitude vector yields 0 rather than an error.
func CosineSimilarity(u, v []float64) float64 {
	if len(u) != len(v) || len(u) == 0 {
		return 0
	}
	nu := floats.Norm(u, 2)
	nv := floats.Norm(v, 2)
	if nu == 0 || nv == 0 {
		return 0
	}
	return floats.Dot(u, v) / (nu * nv)
}
