package recommend

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivekenya/recsys/pkg/models"
)

func TestBuildProfile_EmptyHistory(t *testing.T) {
	profile := BuildProfile(nil, nil)
	require.NotNil(t, profile)

	assert.NotNil(t, profile.Preferences.Categories)
	assert.NotNil(t, profile.Preferences.Locations)
	assert.Empty(t, profile.Preferences.Categories)
	assert.Empty(t, profile.Preferences.Locations)
	assert.Equal(t, 1000.0, profile.Preferences.PriceRange.Min)
	assert.Equal(t, 15000.0, profile.Preferences.PriceRange.Max)
	assert.Empty(t, profile.RecentSearches)
}

func TestBuildProfile_SignalWeights(t *testing.T) {
	aggs := &models.UserAggregates{
		UserID:           uuid.New(),
		TotalBookings:    3,
		BookedCategories: []string{"SUV", "suv", "Economy"},
	}
	searches := []models.SearchRecord{
		{Category: "suv", Location: "Nairobi"},
		{Category: "luxury", Location: "nairobi"},
		{Location: "Mombasa"},
	}

	profile := BuildProfile(aggs, searches)

	// Bookings count double; labels fold together case-insensitively.
	assert.Equal(t, 5, profile.Preferences.Categories["suv"]) // 2+2 booked, 1 searched
	assert.Equal(t, 2, profile.Preferences.Categories["economy"])
	assert.Equal(t, 1, profile.Preferences.Categories["luxury"])
	assert.Equal(t, 2, profile.Preferences.Locations["nairobi"])
	assert.Equal(t, 1, profile.Preferences.Locations["mombasa"])
}

func TestBuildProfile_PriceBandFromSearches(t *testing.T) {
	min1, max1 := 2500.0, 8000.0
	min2, max2 := 1800.0, 12000.0

	searches := []models.SearchRecord{
		{PriceMin: &min1, PriceMax: &max1},
		{PriceMin: &min2, PriceMax: &max2},
	}

	profile := BuildProfile(nil, searches)
	assert.Equal(t, 1800.0, profile.Preferences.PriceRange.Min)
	assert.Equal(t, 12000.0, profile.Preferences.PriceRange.Max)
}

func TestBuildProfile_SearchWindows(t *testing.T) {
	var searches []models.SearchRecord
	for i := 0; i < 30; i++ {
		searches = append(searches, models.SearchRecord{
			Category:  fmt.Sprintf("cat-%d", i),
			Timestamp: time.Now().Add(-time.Duration(i) * time.Hour),
		})
	}

	profile := BuildProfile(nil, searches)

	// Only the 20 newest searches feed preferences; 5 newest ride along.
	assert.Len(t, profile.Preferences.Categories, 20)
	assert.Len(t, profile.RecentSearches, 5)
	assert.Equal(t, "cat-0", profile.RecentSearches[0].Category)

	_, counted := profile.Preferences.Categories["cat-25"]
	assert.False(t, counted)
}

func TestBuildProfile_CopiesAggregates(t *testing.T) {
	age := 42
	spending := 5500.0
	aggs := &models.UserAggregates{
		UserID:        uuid.New(),
		Age:           &age,
		TotalBookings: 7,
		AvgSpending:   &spending,
	}

	profile := BuildProfile(aggs, nil)
	assert.Equal(t, aggs.UserID, profile.UserID)
	assert.Equal(t, &age, profile.Age)
	assert.Equal(t, 7, profile.TotalBookings)
	assert.Equal(t, &spending, profile.AvgSpending)
}
