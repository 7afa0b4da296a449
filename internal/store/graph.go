package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"github.com/drivekenya/recsys/pkg/models"
)

// GraphPeerSource answers peer-discovery queries from the booking graph
// ((:User)-[:BOOKED]->(:Vehicle)). Deployments that mirror bookings into
// Neo4j use it in place of the relational self-join.
type GraphPeerSource struct {
	driver neo4j.DriverWithContext
	logger *logrus.Logger
}

func NewGraphPeerSource(driver neo4j.DriverWithContext, logger *logrus.Logger) *GraphPeerSource {
	return &GraphPeerSource{
		driver: driver,
		logger: logger,
	}
}

// PeerCoBookings finds users sharing at least two booked vehicles with the
// target user, sorted by shared count descending.
func (g *GraphPeerSource) PeerCoBookings(ctx context.Context, userID uuid.UUID) ([]models.PeerUser, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (u1:User {user_id: $userId})-[:BOOKED]->(v:Vehicle)<-[:BOOKED]-(u2:User)
		WITH u2, count(DISTINCT v) AS common_vehicles
		WHERE common_vehicles >= 2
		RETURN u2.user_id AS user_id, common_vehicles
		ORDER BY common_vehicles DESC`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"userId": userID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("peer co-bookings graph query failed: %w", err)
	}

	var peers []models.PeerUser
	for result.Next(ctx) {
		record := result.Record()
		peerIDStr, _ := record.Values[0].(string)
		common, _ := record.Values[1].(int64)

		peerID, err := uuid.Parse(peerIDStr)
		if err != nil {
			g.logger.WithField("user_id", peerIDStr).Warn("Skipping peer with malformed ID")
			continue
		}
		peers = append(peers, models.PeerUser{
			UserID:         peerID,
			CommonVehicles: int(common),
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("peer co-bookings graph result failed: %w", err)
	}
	return peers, nil
}

// PeerVehicleStats aggregates peer bookings per vehicle from BOOKED edges,
// using the rating carried on the edge when present.
func (g *GraphPeerSource) PeerVehicleStats(ctx context.Context, peerIDs, vehicleIDs []uuid.UUID) ([]models.PeerVehicleStat, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (u:User)-[b:BOOKED]->(v:Vehicle)
		WHERE u.user_id IN $peerIds AND v.vehicle_id IN $vehicleIds
		RETURN v.vehicle_id AS vehicle_id, count(b) AS booking_count, avg(b.rating) AS avg_rating`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"peerIds":    uuidStrings(peerIDs),
		"vehicleIds": uuidStrings(vehicleIDs),
	})
	if err != nil {
		return nil, fmt.Errorf("peer vehicle stats graph query failed: %w", err)
	}

	var stats []models.PeerVehicleStat
	for result.Next(ctx) {
		record := result.Record()
		vehicleIDStr, _ := record.Values[0].(string)
		count, _ := record.Values[1].(int64)

		vehicleID, err := uuid.Parse(vehicleIDStr)
		if err != nil {
			g.logger.WithField("vehicle_id", vehicleIDStr).Warn("Skipping stat with malformed vehicle ID")
			continue
		}

		stat := models.PeerVehicleStat{
			VehicleID:    vehicleID,
			BookingCount: int(count),
		}
		if rating, ok := record.Values[2].(float64); ok {
			stat.AvgRating = &rating
		}
		stats = append(stats, stat)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("peer vehicle stats graph result failed: %w", err)
	}
	return stats, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// GraphBackedStore delegates peer discovery to Neo4j and everything else to
// PostgreSQL.
type GraphBackedStore struct {
	*PostgresStore
	graph *GraphPeerSource
}

func NewGraphBackedStore(pg *PostgresStore, graph *GraphPeerSource) *GraphBackedStore {
	return &GraphBackedStore{
		PostgresStore: pg,
		graph:         graph,
	}
}

func (s *GraphBackedStore) PeerCoBookings(ctx context.Context, userID uuid.UUID) ([]models.PeerUser, error) {
	return s.graph.PeerCoBookings(ctx, userID)
}

func (s *GraphBackedStore) PeerVehicleStats(ctx context.Context, peerIDs, vehicleIDs []uuid.UUID) ([]models.PeerVehicleStat, error) {
	return s.graph.PeerVehicleStats(ctx, peerIDs, vehicleIDs)
}
