package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/drivekenya/recsys/pkg/models"
)

// Querier is the subset of pgxpool.Pool the store needs; pgxmock satisfies
// it in tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// PostgresStore implements the recommendation engine's data-access contract
// against the DriveKenya relational schema.
type PostgresStore struct {
	db     Querier
	logger *logrus.Logger
}

func NewPostgresStore(db Querier, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger,
	}
}

// UserAggregates loads booking and review statistics for one user. A user
// with no history returns zero counts and nil optionals, not an error.
func (s *PostgresStore) UserAggregates(ctx context.Context, userID uuid.UUID) (*models.UserAggregates, error) {
	query := `
		SELECT
			u.id,
			u.age,
			COUNT(b.id) AS total_bookings,
			AVG(b.total_amount) AS avg_spending,
			AVG(EXTRACT(EPOCH FROM (b.return_date - b.pickup_date)) / 86400.0) AS avg_trip_days,
			(SELECT AVG(rating) FROM reviews WHERE reviewer_id = u.id) AS rating_given,
			(SELECT AVG(rating) FROM reviews WHERE reviewee_id = u.id) AS rating_received
		FROM users u
		LEFT JOIN bookings b ON b.user_id = u.id AND b.status IN ('confirmed', 'active', 'completed')
		WHERE u.id = $1
		GROUP BY u.id, u.age`

	aggs := &models.UserAggregates{}
	err := s.db.QueryRow(ctx, query, userID).Scan(
		&aggs.UserID,
		&aggs.Age,
		&aggs.TotalBookings,
		&aggs.AvgSpending,
		&aggs.AvgTripDays,
		&aggs.RatingGiven,
		&aggs.RatingReceived,
	)
	if err == pgx.ErrNoRows {
		// Unknown user: empty aggregates, the profile degrades to defaults.
		return &models.UserAggregates{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("user aggregates query failed: %w", err)
	}

	categories, err := s.bookedCategories(ctx, userID)
	if err != nil {
		return nil, err
	}
	aggs.BookedCategories = categories

	return aggs, nil
}

func (s *PostgresStore) bookedCategories(ctx context.Context, userID uuid.UUID) ([]string, error) {
	query := `
		SELECT v.category
		FROM bookings b
		JOIN vehicles v ON v.id = b.vehicle_id
		WHERE b.user_id = $1 AND b.status IN ('confirmed', 'active', 'completed')`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("booked categories query failed: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			s.logger.WithError(err).Warn("Failed to scan booked category")
			continue
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// RecentSearches returns the user's search history, newest first.
func (s *PostgresStore) RecentSearches(ctx context.Context, userID uuid.UUID, max int) ([]models.SearchRecord, error) {
	query := `
		SELECT category, location, price_min, price_max, created_at
		FROM search_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.Query(ctx, query, userID, max)
	if err != nil {
		return nil, fmt.Errorf("recent searches query failed: %w", err)
	}
	defer rows.Close()

	var searches []models.SearchRecord
	for rows.Next() {
		var record models.SearchRecord
		var category, location *string
		if err := rows.Scan(&category, &location, &record.PriceMin, &record.PriceMax, &record.Timestamp); err != nil {
			s.logger.WithError(err).Warn("Failed to scan search record")
			continue
		}
		if category != nil {
			record.Category = *category
		}
		if location != nil {
			record.Location = *location
		}
		searches = append(searches, record)
	}
	return searches, rows.Err()
}

// AvailableVehicles returns available listings with embedded aggregates and
// a location-match indicator. With a date range, vehicles whose confirmed or
// active reservations overlap the range are excluded
// (existing.start <= requested.end AND existing.end >= requested.start).
func (s *PostgresStore) AvailableVehicles(ctx context.Context, q models.AvailabilityQuery) ([]models.Vehicle, error) {
	query := `
		SELECT
			v.id, v.category, v.location, v.daily_rate, v.fuel_efficiency,
			v.avg_rating, v.review_count, v.booking_count,
			v.availability_score, v.has_promotion, v.created_at,
			(LOWER(v.location) = LOWER($1)) AS location_match
		FROM vehicles v
		WHERE v.status = 'available'`

	args := []interface{}{q.Location}
	argIndex := 2

	if q.PickupDate != nil && q.ReturnDate != nil {
		query += fmt.Sprintf(`
			AND NOT EXISTS (
				SELECT 1 FROM bookings b
				WHERE b.vehicle_id = v.id
					AND b.status IN ('confirmed', 'active')
					AND b.pickup_date <= $%d
					AND b.return_date >= $%d
			)`, argIndex, argIndex+1)
		args = append(args, *q.ReturnDate, *q.PickupDate)
		argIndex += 2
	}

	query += " ORDER BY v.created_at DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("available vehicles query failed: %w", err)
	}
	defer rows.Close()

	var vehicles []models.Vehicle
	for rows.Next() {
		var v models.Vehicle
		if err := rows.Scan(
			&v.ID, &v.Category, &v.Location, &v.DailyRate, &v.FuelEfficiency,
			&v.AvgRating, &v.ReviewCount, &v.BookingCount,
			&v.AvailabilityScore, &v.HasPromotion, &v.CreatedAt,
			&v.LocationMatch,
		); err != nil {
			s.logger.WithError(err).Warn("Failed to scan vehicle row")
			continue
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

// PeerCoBookings finds users who booked vehicles in common with the target
// user, pre-filtered to two or more shared vehicles and sorted descending.
func (s *PostgresStore) PeerCoBookings(ctx context.Context, userID uuid.UUID) ([]models.PeerUser, error) {
	query := `
		SELECT b2.user_id, COUNT(DISTINCT b2.vehicle_id) AS common_vehicles
		FROM bookings b1
		JOIN bookings b2 ON b2.vehicle_id = b1.vehicle_id AND b2.user_id <> b1.user_id
		WHERE b1.user_id = $1
			AND b1.status IN ('confirmed', 'active', 'completed')
			AND b2.status IN ('confirmed', 'active', 'completed')
		GROUP BY b2.user_id
		HAVING COUNT(DISTINCT b2.vehicle_id) >= 2
		ORDER BY common_vehicles DESC`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("peer co-bookings query failed: %w", err)
	}
	defer rows.Close()

	var peers []models.PeerUser
	for rows.Next() {
		var peer models.PeerUser
		if err := rows.Scan(&peer.UserID, &peer.CommonVehicles); err != nil {
			s.logger.WithError(err).Warn("Failed to scan peer row")
			continue
		}
		peers = append(peers, peer)
	}
	return peers, rows.Err()
}

// PeerVehicleStats aggregates peer bookings per vehicle: count and average
// review rating.
func (s *PostgresStore) PeerVehicleStats(ctx context.Context, peerIDs, vehicleIDs []uuid.UUID) ([]models.PeerVehicleStat, error) {
	query := `
		SELECT b.vehicle_id, COUNT(b.id) AS booking_count, AVG(r.rating) AS avg_rating
		FROM bookings b
		LEFT JOIN reviews r ON r.booking_id = b.id
		WHERE b.user_id = ANY($1)
			AND b.vehicle_id = ANY($2)
			AND b.status IN ('confirmed', 'active', 'completed')
		GROUP BY b.vehicle_id`

	rows, err := s.db.Query(ctx, query, peerIDs, vehicleIDs)
	if err != nil {
		return nil, fmt.Errorf("peer vehicle stats query failed: %w", err)
	}
	defer rows.Close()

	var stats []models.PeerVehicleStat
	for rows.Next() {
		var stat models.PeerVehicleStat
		if err := rows.Scan(&stat.VehicleID, &stat.BookingCount, &stat.AvgRating); err != nil {
			s.logger.WithError(err).Warn("Failed to scan peer vehicle stat")
			continue
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

// RecordSearch appends one search to the user's history; RecentSearches
// reads it back when building the profile.
func (s *PostgresStore) RecordSearch(ctx context.Context, userID uuid.UUID, search models.SearchRecord) error {
	if search.Timestamp.IsZero() {
		search.Timestamp = time.Now()
	}

	var category, location *string
	if search.Category != "" {
		category = &search.Category
	}
	if search.Location != "" {
		location = &search.Location
	}

	query := `
		INSERT INTO search_history (user_id, category, location, price_min, price_max, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.Exec(ctx, query,
		userID, category, location, search.PriceMin, search.PriceMax, search.Timestamp)
	if err != nil {
		return fmt.Errorf("record search failed: %w", err)
	}
	return nil
}

// RecordFeedback stores feedback on a recommendation; the channel through
// which future personalization signal arrives.
func (s *PostgresStore) RecordFeedback(ctx context.Context, feedback *models.Feedback) error {
	if feedback.Timestamp.IsZero() {
		feedback.Timestamp = time.Now()
	}

	query := `
		INSERT INTO recommendation_feedback (user_id, vehicle_id, value, comment, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.Exec(ctx, query,
		feedback.UserID, feedback.VehicleID, feedback.Value, feedback.Comment, feedback.Timestamp)
	if err != nil {
		return fmt.Errorf("record feedback failed: %w", err)
	}
	return nil
}
