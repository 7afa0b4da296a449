package recommend

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/drivekenya/recsys/pkg/models"
)

const (
	peerBookingScale   = 10.0
	defaultPeerRating  = 3.0
	locationMatchScore = 1.0
	locationMissScore  = 0.5
	popularityBookings = 0.6
	popularityRating   = 0.4
)

// ContentScores scores every candidate by cosine similarity between the
// user's feature vector and the vehicle's feature vector.
func (e *Engine) ContentScores(profile *models.UserProfile, vehicles []models.Vehicle) []models.ScoredVehicle {
	userVec := UserVector(profile)

	results := make([]models.ScoredVehicle, 0, len(vehicles))
	for i := range vehicles {
		results = append(results, models.ScoredVehicle{
			VehicleID: vehicles[i].ID,
			Score:     CosineSimilarity(userVec, VehicleVector(&vehicles[i])),
			Source:    models.SourceContent,
		})
	}
	return results
}

// QualifyPeers filters co-booking neighbours down to those sharing at least
// MinCoBookings vehicles, ordered by common count descending, capped at
// MaxPeers.
func (e *Engine) QualifyPeers(peers []models.PeerUser) []models.PeerUser {
	qualified := make([]models.PeerUser, 0, len(peers))
	for _, p := range peers {
		if p.CommonVehicles >= e.cfg.Collaborative.MinCoBookings {
			qualified = append(qualified, p)
		}
	}
	sort.SliceStable(qualified, func(i, j int) bool {
		return qualified[i].CommonVehicles > qualified[j].CommonVehicles
	})
	if len(qualified) > e.cfg.Collaborative.MaxPeers {
		qualified = qualified[:e.cfg.Collaborative.MaxPeers]
	}
	return qualified
}

// CollaborativeScores scores candidates by peer booking activity. With no
// qualifying peers every candidate gets the neutral cold-start score, never
// zero, so new users are not penalized. Candidates peers never booked get the
// soft baseline floor to stay rankable.
func (e *Engine) CollaborativeScores(
	peers []models.PeerUser,
	stats []models.PeerVehicleStat,
	vehicles []models.Vehicle,
) []models.ScoredVehicle {
	results := make([]models.ScoredVehicle, 0, len(vehicles))

	if len(peers) == 0 {
		for i := range vehicles {
			results = append(results, models.ScoredVehicle{
				VehicleID: vehicles[i].ID,
				Score:     e.cfg.Collaborative.ColdStartScore,
				Source:    models.SourceCollaborative,
			})
		}
		return results
	}

	byVehicle := make(map[uuid.UUID]models.PeerVehicleStat, len(stats))
	for _, s := range stats {
		byVehicle[s.VehicleID] = s
	}

	for i := range vehicles {
		score := e.cfg.Collaborative.BaselineScore
		if stat, ok := byVehicle[vehicles[i].ID]; ok {
			rating := defaultPeerRating
			if stat.AvgRating != nil {
				rating = *stat.AvgRating
			}
			score = math.Min(
				(float64(stat.BookingCount)/peerBookingScale)*(rating/maxRatingScale), 1)
		}
		results = append(results, models.ScoredVehicle{
			VehicleID: vehicles[i].ID,
			Score:     score,
			Source:    models.SourceCollaborative,
		})
	}
	return results
}

// PopularityScores rewards broadly booked, well-rated vehicles relative to
// the current candidate set. Denominators are floored at 1 so an all-zero
// set produces zeros instead of dividing by zero.
func (e *Engine) PopularityScores(vehicles []models.Vehicle) []models.ScoredVehicle {
	maxBookingCount := 1.0
	maxRating := 1.0
	for i := range vehicles {
		if b := float64(vehicles[i].BookingCount); b > maxBookingCount {
			maxBookingCount = b
		}
		if vehicles[i].AvgRating != nil && *vehicles[i].AvgRating > maxRating {
			maxRating = *vehicles[i].AvgRating
		}
	}

	results := make([]models.ScoredVehicle, 0, len(vehicles))
	for i := range vehicles {
		rating := 0.0
		if vehicles[i].AvgRating != nil {
			rating = *vehicles[i].AvgRating
		}
		score := popularityBookings*(float64(vehicles[i].BookingCount)/maxBookingCount) +
			popularityRating*(rating/maxRating)
		results = append(results, models.ScoredVehicle{
			VehicleID: vehicles[i].ID,
			Score:     score,
			Source:    models.SourcePopularity,
		})
	}
	return results
}

// LocationScores is a binary proximity signal: full score on the store's
// precomputed match flag or an exact folded-label match with the requested
// location, half score otherwise.
func (e *Engine) LocationScores(vehicles []models.Vehicle, requestedLocation string) []models.ScoredVehicle {
	requested := FoldLabel(requestedLocation)

	results := make([]models.ScoredVehicle, 0, len(vehicles))
	for i := range vehicles {
		score := locationMissScore
		if vehicles[i].LocationMatch || (requested != "" && FoldLabel(vehicles[i].Location) == requested) {
			score = locationMatchScore
		}
		results = append(results, models.ScoredVehicle{
			VehicleID: vehicles[i].ID,
			Score:     score,
			Source:    models.SourceLocation,
		})
	}
	return results
}
