// README: Fleet mirror store backed by Redis GEO and Postgres snapshots.
package registry

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"hailer/internal/types"
)

const driverGeoKey = "fleet:drivers"

// Store mirrors driver positions into Redis GEO for fleet-wide overview
// queries and appends periodic snapshots to Postgres. It is side-channel
// infrastructure: allocation never reads from it, so a slow or absent
// backend cannot stall matching.
type Store struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func NewStore(db *pgxpool.Pool, redis *redis.Client) *Store {
	return &Store{db: db, redis: redis}
}

func (s *Store) SetGeo(ctx context.Context, id types.ID, pos types.Point) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.GeoAdd(ctx, driverGeoKey, &redis.GeoLocation{
		Name:      string(id),
		Longitude: pos.Lng,
		Latitude:  pos.Lat,
	}).Err()
}

func (s *Store) RemoveGeo(ctx context.Context, id types.ID) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.ZRem(ctx, driverGeoKey, string(id)).Err()
}

// Nearby returns driver IDs within radiusKm of p, closest first, from the
// Redis mirror.
func (s *Store) Nearby(ctx context.Context, p types.Point, radiusKm float64) ([]types.ID, error) {
	if s.redis == nil {
		return nil, nil
	}
	results, err := s.redis.GeoSearch(ctx, driverGeoKey, &redis.GeoSearchQuery{
		Longitude:  p.Lng,
		Latitude:   p.Lat,
		Radius:     radiusKm,
		RadiusUnit: "km",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, len(results))
	for i, r := range results {
		ids[i] = types.ID(r)
	}
	return ids, nil
}

// Snapshot is one persisted driver position sample.
type Snapshot struct {
	DriverID   types.ID
	Position   types.Point
	Available  bool
	RecordedAt time.Time
}

func (s *Store) AppendSnapshot(ctx context.Context, snap Snapshot) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO driver_location_snapshots (
			driver_id, lat, lng, available, recorded_at
		) VALUES ($1, $2, $3, $4, $5)`,
		string(snap.DriverID),
		snap.Position.Lat, snap.Position.Lng,
		snap.Available,
		snap.RecordedAt,
	)
	return err
}
