package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivekenya/recsys/pkg/models"
)

func newTestStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()

	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	return NewPostgresStore(mockDB, logger), mockDB
}

func TestPostgresStore_UserAggregates(t *testing.T) {
	store, mockDB := newTestStore(t)
	userID := uuid.New()

	t.Run("user with history", func(t *testing.T) {
		age := 34
		spending := 4500.0
		tripDays := 3.5
		ratingGiven := 4.2
		ratingReceived := 4.8

		mockDB.ExpectQuery("SELECT").
			WithArgs(userID).
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "age", "total_bookings", "avg_spending",
				"avg_trip_days", "rating_given", "rating_received",
			}).AddRow(userID, &age, 6, &spending, &tripDays, &ratingGiven, &ratingReceived))

		mockDB.ExpectQuery("SELECT v.category").
			WithArgs(userID).
			WillReturnRows(pgxmock.NewRows([]string{"category"}).
				AddRow("suv").
				AddRow("suv").
				AddRow("economy"))

		aggs, err := store.UserAggregates(context.Background(), userID)
		require.NoError(t, err)

		assert.Equal(t, userID, aggs.UserID)
		assert.Equal(t, 6, aggs.TotalBookings)
		assert.Equal(t, &age, aggs.Age)
		assert.Equal(t, []string{"suv", "suv", "economy"}, aggs.BookedCategories)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("unknown user returns empty aggregates", func(t *testing.T) {
		mockDB.ExpectQuery("SELECT").
			WithArgs(userID).
			WillReturnError(pgx.ErrNoRows)

		aggs, err := store.UserAggregates(context.Background(), userID)
		require.NoError(t, err)

		assert.Equal(t, userID, aggs.UserID)
		assert.Zero(t, aggs.TotalBookings)
		assert.Nil(t, aggs.Age)
		assert.Empty(t, aggs.BookedCategories)
	})

	t.Run("query failure propagates", func(t *testing.T) {
		mockDB.ExpectQuery("SELECT").
			WithArgs(userID).
			WillReturnError(errors.New("connection reset"))

		_, err := store.UserAggregates(context.Background(), userID)
		assert.Error(t, err)
	})
}

func TestPostgresStore_RecentSearches(t *testing.T) {
	store, mockDB := newTestStore(t)
	userID := uuid.New()

	category := "luxury"
	location := "Nairobi"
	priceMin := 5000.0
	priceMax := 12000.0
	now := time.Now()

	mockDB.ExpectQuery("SELECT category, location").
		WithArgs(userID, 20).
		WillReturnRows(pgxmock.NewRows([]string{
			"category", "location", "price_min", "price_max", "created_at",
		}).
			AddRow(&category, &location, &priceMin, &priceMax, now).
			AddRow(nil, nil, nil, nil, now.Add(-time.Hour)))

	searches, err := store.RecentSearches(context.Background(), userID, 20)
	require.NoError(t, err)
	require.Len(t, searches, 2)

	assert.Equal(t, "luxury", searches[0].Category)
	assert.Equal(t, "Nairobi", searches[0].Location)
	assert.Equal(t, &priceMin, searches[0].PriceMin)

	// NULL columns degrade to zero values
	assert.Empty(t, searches[1].Category)
	assert.Nil(t, searches[1].PriceMin)
}

func TestPostgresStore_AvailableVehicles(t *testing.T) {
	store, mockDB := newTestStore(t)

	vehicleID := uuid.New()
	rate := 6500.0
	rating := 4.4

	rowColumns := []string{
		"id", "category", "location", "daily_rate", "fuel_efficiency",
		"avg_rating", "review_count", "booking_count",
		"availability_score", "has_promotion", "created_at", "location_match",
	}

	t.Run("without date range", func(t *testing.T) {
		mockDB.ExpectQuery("SELECT").
			WithArgs("Nairobi").
			WillReturnRows(pgxmock.NewRows(rowColumns).
				AddRow(vehicleID, "suv", "Nairobi", &rate, nil,
					&rating, 12, 30, nil, true, time.Now(), true))

		vehicles, err := store.AvailableVehicles(context.Background(), models.AvailabilityQuery{
			Location: "Nairobi",
		})
		require.NoError(t, err)
		require.Len(t, vehicles, 1)

		assert.Equal(t, vehicleID, vehicles[0].ID)
		assert.True(t, vehicles[0].LocationMatch)
		assert.True(t, vehicles[0].HasPromotion)
		assert.Nil(t, vehicles[0].FuelEfficiency)
	})

	t.Run("with date range excludes overlapping bookings", func(t *testing.T) {
		pickup := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
		returnDate := time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)

		mockDB.ExpectQuery("NOT EXISTS").
			WithArgs("Mombasa", returnDate, pickup).
			WillReturnRows(pgxmock.NewRows(rowColumns))

		vehicles, err := store.AvailableVehicles(context.Background(), models.AvailabilityQuery{
			Location:   "Mombasa",
			PickupDate: &pickup,
			ReturnDate: &returnDate,
		})
		require.NoError(t, err)
		assert.Empty(t, vehicles)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})
}

func TestPostgresStore_PeerCoBookings(t *testing.T) {
	store, mockDB := newTestStore(t)
	userID := uuid.New()
	peer1 := uuid.New()
	peer2 := uuid.New()

	mockDB.ExpectQuery("SELECT b2.user_id").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "common_vehicles"}).
			AddRow(peer1, 5).
			AddRow(peer2, 2))

	peers, err := store.PeerCoBookings(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, peers, 2)

	assert.Equal(t, peer1, peers[0].UserID)
	assert.Equal(t, 5, peers[0].CommonVehicles)
}

func TestPostgresStore_PeerVehicleStats(t *testing.T) {
	store, mockDB := newTestStore(t)

	peerIDs := []uuid.UUID{uuid.New()}
	vehicleIDs := []uuid.UUID{uuid.New(), uuid.New()}
	rating := 4.1

	mockDB.ExpectQuery("SELECT b.vehicle_id").
		WithArgs(peerIDs, vehicleIDs).
		WillReturnRows(pgxmock.NewRows([]string{"vehicle_id", "booking_count", "avg_rating"}).
			AddRow(vehicleIDs[0], 4, &rating).
			AddRow(vehicleIDs[1], 1, nil))

	stats, err := store.PeerVehicleStats(context.Background(), peerIDs, vehicleIDs)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, 4, stats[0].BookingCount)
	assert.Equal(t, &rating, stats[0].AvgRating)
	assert.Nil(t, stats[1].AvgRating)
}

func TestPostgresStore_RecordFeedback(t *testing.T) {
	store, mockDB := newTestStore(t)

	feedback := &models.Feedback{
		UserID:    uuid.New(),
		VehicleID: uuid.New(),
		Value:     1,
	}

	mockDB.ExpectExec("INSERT INTO recommendation_feedback").
		WithArgs(feedback.UserID, feedback.VehicleID, feedback.Value,
			feedback.Comment, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.RecordFeedback(context.Background(), feedback)
	require.NoError(t, err)
	assert.False(t, feedback.Timestamp.IsZero(), "timestamp is stamped on write")
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestPostgresStore_RecordSearch(t *testing.T) {
	store, mockDB := newTestStore(t)
	userID := uuid.New()

	t.Run("full record", func(t *testing.T) {
		category := "suv"
		location := "Nairobi"
		priceMin := 3000.0
		priceMax := 8000.0
		search := models.SearchRecord{
			Category: category,
			Location: location,
			PriceMin: &priceMin,
			PriceMax: &priceMax,
		}

		mockDB.ExpectExec("INSERT INTO search_history").
			WithArgs(userID, &category, &location, &priceMin, &priceMax, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, store.RecordSearch(context.Background(), userID, search))
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("empty fields stored as NULL", func(t *testing.T) {
		mockDB.ExpectExec("INSERT INTO search_history").
			WithArgs(userID, (*string)(nil), (*string)(nil),
				(*float64)(nil), (*float64)(nil), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, store.RecordSearch(context.Background(), userID, models.SearchRecord{}))
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("propagates write errors", func(t *testing.T) {
		mockDB.ExpectExec("INSERT INTO search_history").
			WithArgs(userID, (*string)(nil), (*string)(nil),
				(*float64)(nil), (*float64)(nil), pgxmock.AnyArg()).
			WillReturnError(errors.New("connection refused"))

		err := store.RecordSearch(context.Background(), userID, models.SearchRecord{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "record search failed")
	})
}
