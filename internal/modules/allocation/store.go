// README: Decision persistence; append-only allocation outcome rows.
package allocation

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store appends terminal allocation decisions to Postgres. It satisfies
// EventPublisher so it sits behind the same fan-out as the broker sink.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) PublishDecision(ctx context.Context, res Result) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO allocation_decisions (
			request_id, status, driver_id, radius_km, attempts, elapsed_ms
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(res.RequestID),
		string(res.Status),
		string(res.DriverID),
		res.RadiusKm,
		res.Attempts,
		res.Elapsed.Milliseconds(),
	)
	return err
}
