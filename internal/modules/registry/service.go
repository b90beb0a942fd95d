// README: Ingestion service; validates updates, feeds the registry, mirrors best-effort.
package registry

import (
	"context"
	"log"
	"time"

	"hailer/internal/types"
)

type Service struct {
	registry      *Registry
	store         *Store
	snapshotEvery time.Duration
}

func NewService(registry *Registry, store *Store, snapshotEvery time.Duration) *Service {
	return &Service{registry: registry, store: store, snapshotEvery: snapshotEvery}
}

func (s *Service) Registry() *Registry {
	return s.registry
}

// Ingest applies one driver snapshot. A dropped update (out-of-order or
// stale) is not an error for the caller; malformed input is.
func (s *Service) Ingest(ctx context.Context, u Update) error {
	if err := u.validate(); err != nil {
		return err
	}
	if !s.registry.Upsert(u) {
		return nil
	}
	if s.store != nil {
		// Mirror write is best effort; the in-memory registry already holds
		// the authoritative state.
		if err := s.store.SetGeo(ctx, u.DriverID, u.Position); err != nil {
			log.Printf("registry: geo mirror write for %s: %v", u.DriverID, err)
		}
	}
	return nil
}

// Offline removes a driver from matching and from the mirror.
func (s *Service) Offline(ctx context.Context, driverID types.ID) {
	s.registry.SetOffline(driverID)
	if s.store != nil {
		if err := s.store.RemoveGeo(ctx, driverID); err != nil {
			log.Printf("registry: geo mirror remove for %s: %v", driverID, err)
		}
	}
}

// RunSnapshotFlusher periodically appends every known driver position to
// Postgres until ctx is cancelled.
func (s *Service) RunSnapshotFlusher(ctx context.Context) {
	if s.store == nil || s.snapshotEvery <= 0 {
		return
	}
	ticker := time.NewTicker(s.snapshotEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			for _, e := range s.registry.Entries() {
				snap := Snapshot{
					DriverID:   e.DriverID,
					Position:   e.Position,
					Available:  e.Available,
					RecordedAt: now,
				}
				if err := s.store.AppendSnapshot(ctx, snap); err != nil {
					log.Printf("registry: snapshot flush for %s: %v", e.DriverID, err)
				}
			}
		}
	}
}
