package registry

import (
	"context"
	"testing"
	"time"
)

func TestIngest_RejectsMalformed(t *testing.T) {
	svc := NewService(New(30*time.Second), nil, 0)
	err := svc.Ingest(context.Background(), Update{
		DriverID:  "",
		Position:  taipei101,
		Vehicle:   VehicleSedan,
		Available: true,
		Timestamp: time.Now(),
	})
	if err != ErrBadUpdate {
		t.Fatalf("err = %v, want ErrBadUpdate", err)
	}
}

// TestIngest_DroppedUpdateIsNotAnError covers the out-of-order case: the
// stale snapshot is discarded silently, callers have nothing to retry.
func TestIngest_DroppedUpdateIsNotAnError(t *testing.T) {
	svc := NewService(New(30*time.Second), nil, 0)
	now := time.Now()
	ctx := context.Background()

	fresh := Update{
		DriverID: "d1", Position: taipei101, Vehicle: VehicleSedan,
		Available: true, Rating: 4.5, Timestamp: now,
	}
	if err := svc.Ingest(ctx, fresh); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	stale := fresh
	stale.Position = mainStation
	stale.Timestamp = now.Add(-5 * time.Second)
	if err := svc.Ingest(ctx, stale); err != nil {
		t.Fatalf("stale ingest should not error: %v", err)
	}

	got := svc.Registry().Query(taipei101, 1.0, VehicleSedan, nil)
	if len(got) != 1 || got[0].Position != taipei101 {
		t.Fatalf("stale update overwrote position: %v", got)
	}
}
