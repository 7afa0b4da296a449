package recommend

import (
	"github.com/drivekenya/recsys/pkg/models"
)

const (
	// searchHistoryWindow bounds how many recent searches feed preference
	// mining; recentSearchesKept bounds how many are carried on the profile.
	searchHistoryWindow = 20
	recentSearchesKept  = 5

	// A past booking is a stronger signal than a search.
	bookingSignalWeight = 2
	searchSignalWeight  = 1

	// Wide default band (KES/day) for users with no price signal.
	defaultPriceMin = 1000.0
	defaultPriceMax = 15000.0
)

// BuildProfile aggregates raw history into a UserProfile. Absent inputs
// degrade to empty tables and defaults; this never fails.
func BuildProfile(aggs *models.UserAggregates, searches []models.SearchRecord) *models.UserProfile {
	profile := &models.UserProfile{
		Preferences: models.Preferences{
			Categories: make(map[string]int),
			Locations:  make(map[string]int),
			PriceRange: models.PriceRange{Min: defaultPriceMin, Max: defaultPriceMax},
		},
	}

	if aggs != nil {
		profile.UserID = aggs.UserID
		profile.Age = aggs.Age
		profile.TotalBookings = aggs.TotalBookings
		profile.AvgSpending = aggs.AvgSpending
		profile.AvgTripDays = aggs.AvgTripDays
		profile.RatingGiven = aggs.RatingGiven
		profile.RatingReceived = aggs.RatingReceived

		for _, category := range aggs.BookedCategories {
			if label := FoldLabel(category); label != "" {
				profile.Preferences.Categories[label] += bookingSignalWeight
			}
		}
	}

	if len(searches) > searchHistoryWindow {
		searches = searches[:searchHistoryWindow]
	}

	var priceMin, priceMax *float64
	for _, search := range searches {
		if label := FoldLabel(search.Category); label != "" {
			profile.Preferences.Categories[label] += searchSignalWeight
		}
		if label := FoldLabel(search.Location); label != "" {
			profile.Preferences.Locations[label] += searchSignalWeight
		}
		if search.PriceMin != nil && (priceMin == nil || *search.PriceMin < *priceMin) {
			priceMin = search.PriceMin
		}
		if search.PriceMax != nil && (priceMax == nil || *search.PriceMax > *priceMax) {
			priceMax = search.PriceMax
		}
	}

	if priceMin != nil {
		profile.Preferences.PriceRange.Min = *priceMin
	}
	if priceMax != nil {
		profile.Preferences.PriceRange.Max = *priceMax
	}

	kept := searches
	if len(kept) > recentSearchesKept {
		kept = kept[:recentSearchesKept]
	}
	profile.RecentSearches = append([]models.SearchRecord(nil), kept...)

	return profile
}
