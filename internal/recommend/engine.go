package recommend

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/drivekenya/recsys/internal/config"
	"github.com/drivekenya/recsys/pkg/models"
)

// DataAccess is the read/write contract the engine consumes. Implementations
// live outside the engine (PostgreSQL, Neo4j); any transport satisfying the
// contract is acceptable.
type DataAccess interface {
	UserAggregates(ctx context.Context, userID uuid.UUID) (*models.UserAggregates, error)
	RecentSearches(ctx context.Context, userID uuid.UUID, max int) ([]models.SearchRecord, error)
	AvailableVehicles(ctx context.Context, query models.AvailabilityQuery) ([]models.Vehicle, error)
	PeerCoBookings(ctx context.Context, userID uuid.UUID) ([]models.PeerUser, error)
	PeerVehicleStats(ctx context.Context, peerIDs, vehicleIDs []uuid.UUID) ([]models.PeerVehicleStat, error)
	RecordFeedback(ctx context.Context, feedback *models.Feedback) error
}

// RequestContext is the situational input for one recommendation call.
type RequestContext struct {
	Location   string     `json:"location,omitempty"`
	PickupDate *time.Time `json:"pickup_date,omitempty"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	Limit      int        `json:"limit,omitempty"`
}

// Engine blends four scoring signals into one ranked list. It is stateless
// across calls and safe for concurrent use; all data is fetched up front and
// scoring itself performs no I/O.
type Engine struct {
	cfg    *config.RecommendationConfig
	logger *logrus.Logger
	now    func() time.Time
}

func NewEngine(cfg *config.RecommendationConfig, logger *logrus.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Reason strings, first matching rule wins.
const (
	reasonContent       = "Matches your preferences"
	reasonCollaborative = "Popular with similar users"
	reasonPopularity    = "Highly rated and frequently booked"
	reasonLocation      = "Near your preferred location"
	reasonRating        = "Excellent reviews"
	reasonFallback      = "Recommended for you"
)

const (
	reasonContentThreshold       = 0.7
	reasonCollaborativeThreshold = 0.6
	reasonPopularityThreshold    = 0.8
	reasonLocationThreshold      = 0.9
	reasonRatingThreshold        = 4.5
)

// Recommend produces the ranked list for one user. It never fails past this
// boundary: a data-access error or an empty candidate set yields an empty
// list, which callers must treat as "no recommendations now".
func (e *Engine) Recommend(
	ctx context.Context,
	userID uuid.UUID,
	reqCtx *RequestContext,
	data DataAccess,
) []models.Recommendation {
	if reqCtx == nil {
		reqCtx = &RequestContext{}
	}
	limit := reqCtx.Limit
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}

	// The three reads are independent; fetch them concurrently.
	var (
		wg       sync.WaitGroup
		profile  *models.UserProfile
		vehicles []models.Vehicle
		peers    []models.PeerUser

		profileErr, vehiclesErr, peersErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		aggs, err := data.UserAggregates(ctx, userID)
		if err != nil {
			profileErr = err
			return
		}
		searches, err := data.RecentSearches(ctx, userID, searchHistoryWindow)
		if err != nil {
			profileErr = err
			return
		}
		profile = BuildProfile(aggs, searches)
	}()
	go func() {
		defer wg.Done()
		vehicles, vehiclesErr = data.AvailableVehicles(ctx, models.AvailabilityQuery{
			Location:   reqCtx.Location,
			PickupDate: reqCtx.PickupDate,
			ReturnDate: reqCtx.ReturnDate,
		})
	}()
	go func() {
		defer wg.Done()
		peers, peersErr = data.PeerCoBookings(ctx, userID)
	}()
	wg.Wait()

	for _, err := range []error{profileErr, vehiclesErr, peersErr} {
		if err != nil {
			e.logger.WithError(err).WithField("user_id", userID).
				Warn("Recommendation data fetch failed, returning empty list")
			return []models.Recommendation{}
		}
	}

	if len(vehicles) == 0 {
		return []models.Recommendation{}
	}

	qualified := e.QualifyPeers(peers)

	var peerStats []models.PeerVehicleStat
	if len(qualified) > 0 {
		peerIDs := make([]uuid.UUID, len(qualified))
		for i, p := range qualified {
			peerIDs[i] = p.UserID
		}
		vehicleIDs := make([]uuid.UUID, len(vehicles))
		for i := range vehicles {
			vehicleIDs[i] = vehicles[i].ID
		}

		var err error
		peerStats, err = data.PeerVehicleStats(ctx, peerIDs, vehicleIDs)
		if err != nil {
			e.logger.WithError(err).WithField("user_id", userID).
				Warn("Peer stats fetch failed, returning empty list")
			return []models.Recommendation{}
		}
	}

	contentScores := e.ContentScores(profile, vehicles)
	collaborativeScores := e.CollaborativeScores(qualified, peerStats, vehicles)
	popularityScores := e.PopularityScores(vehicles)
	locationScores := e.LocationScores(vehicles, e.preferredLocation(reqCtx, profile))

	recommendations := e.combine(vehicles, contentScores,
		collaborativeScores, popularityScores, locationScores)

	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].Score > recommendations[j].Score
	})
	if len(recommendations) > limit {
		recommendations = recommendations[:limit]
	}
	for i := range recommendations {
		recommendations[i].Position = i + 1
		recommendations[i].Reason = e.reason(&recommendations[i])
	}

	return recommendations
}

// preferredLocation falls back to the user's most-searched location when the
// request carries none.
func (e *Engine) preferredLocation(reqCtx *RequestContext, profile *models.UserProfile) string {
	if reqCtx.Location != "" {
		return reqCtx.Location
	}
	best, bestCount := "", 0
	for location, count := range profile.Preferences.Locations {
		if count > bestCount || (count == bestCount && location < best) {
			best, bestCount = location, count
		}
	}
	return best
}

// combine merges per-scorer outputs keyed by vehicle identity. The content
// pass defines the canonical candidate set; the other signals contribute
// only to vehicles it produced. Raw component scores are kept for reason
// generation and diagnostics, then the multiplicative business boosts apply.
func (e *Engine) combine(
	vehicles []models.Vehicle,
	content, collaborative, popularity, location []models.ScoredVehicle,
) []models.Recommendation {
	combined := make(map[uuid.UUID]*models.Recommendation, len(content))

	for _, s := range content {
		combined[s.VehicleID] = &models.Recommendation{
			VehicleID: s.VehicleID,
			Score:     s.Score * e.cfg.Weights.Content,
			Breakdown: map[string]float64{models.SourceContent: s.Score},
		}
	}

	add := func(scores []models.ScoredVehicle, weight float64) {
		for _, s := range scores {
			rec, ok := combined[s.VehicleID]
			if !ok {
				continue
			}
			rec.Score += s.Score * weight
			rec.Breakdown[s.Source] = s.Score
		}
	}
	add(collaborative, e.cfg.Weights.Collaborative)
	add(popularity, e.cfg.Weights.Popularity)
	add(location, e.cfg.Weights.Location)

	now := e.now()
	results := make([]models.Recommendation, 0, len(vehicles))
	for i := range vehicles {
		rec, ok := combined[vehicles[i].ID]
		if !ok {
			continue
		}
		if vehicles[i].HasPromotion {
			rec.Score *= e.cfg.Boosts.Promotion
		}
		if now.Sub(vehicles[i].CreatedAt) < e.cfg.Boosts.NewListingWindow {
			rec.Score *= e.cfg.Boosts.NewListing
		}
		rec.Vehicle = &vehicles[i]
		results = append(results, *rec)
	}
	return results
}

// reason picks exactly one human-readable reason per result, first matching
// rule in priority order.
func (e *Engine) reason(rec *models.Recommendation) string {
	switch {
	case rec.Breakdown[models.SourceContent] > reasonContentThreshold:
		return reasonContent
	case rec.Breakdown[models.SourceCollaborative] > reasonCollaborativeThreshold:
		return reasonCollaborative
	case rec.Breakdown[models.SourcePopularity] > reasonPopularityThreshold:
		return reasonPopularity
	case rec.Breakdown[models.SourceLocation] > reasonLocationThreshold:
		return reasonLocation
	case rec.Vehicle != nil && rec.Vehicle.AvgRating != nil &&
		*rec.Vehicle.AvgRating > reasonRatingThreshold:
		return reasonRating
	default:
		return reasonFallback
	}
}
