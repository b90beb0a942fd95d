package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"hailer/internal/geo"
	"hailer/internal/types"
)

var (
	taipei101   = types.Point{Lat: 25.0340, Lng: 121.5645}
	mainStation = types.Point{Lat: 25.0478, Lng: 121.5170} // ~5km away
)

func newTestRegistry(t *testing.T) (*Registry, time.Time) {
	t.Helper()
	r := New(30 * time.Second)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }
	return r, base
}

func upsertDriver(t *testing.T, r *Registry, id string, pos types.Point, ts time.Time) {
	t.Helper()
	ok := r.Upsert(Update{
		DriverID:       types.ID(id),
		Position:       pos,
		Vehicle:        VehicleSedan,
		Available:      true,
		Rating:         4.5,
		CompletedTrips: 50,
		Timestamp:      ts,
	})
	if !ok {
		t.Fatalf("upsert for %s was dropped", id)
	}
}

func TestUpsert_AppliesFreshUpdate(t *testing.T) {
	r, base := newTestRegistry(t)
	upsertDriver(t, r, "d1", taipei101, base)

	got := r.Query(taipei101, 2.0, VehicleSedan, nil)
	if len(got) != 1 || got[0].DriverID != "d1" {
		t.Fatalf("expected d1 in query results, got %v", got)
	}
	if got[0].DistanceKm > 0.01 {
		t.Errorf("distance to own position = %f, want ~0", got[0].DistanceKm)
	}
}

func TestUpsert_DropsOutOfOrder(t *testing.T) {
	r, base := newTestRegistry(t)
	upsertDriver(t, r, "d1", taipei101, base)

	// An older snapshot must not regress the stored position.
	applied := r.Upsert(Update{
		DriverID:  "d1",
		Position:  mainStation,
		Vehicle:   VehicleSedan,
		Available: true,
		Timestamp: base.Add(-10 * time.Second),
	})
	if applied {
		t.Fatal("out-of-order update was applied")
	}

	got := r.Query(taipei101, 1.0, VehicleSedan, nil)
	if len(got) != 1 {
		t.Fatalf("driver position regressed: %v", got)
	}
}

func TestUpsert_DropsStale(t *testing.T) {
	r, base := newTestRegistry(t)
	applied := r.Upsert(Update{
		DriverID:  "d1",
		Position:  taipei101,
		Vehicle:   VehicleSedan,
		Available: true,
		Timestamp: base.Add(-31 * time.Second),
	})
	if applied {
		t.Fatal("update older than the freshness window was applied")
	}
	if got := r.Query(taipei101, 2.0, VehicleSedan, nil); len(got) != 0 {
		t.Fatalf("stale driver appeared in query: %v", got)
	}
}

func TestQuery_FreshnessAtReadTime(t *testing.T) {
	r, base := newTestRegistry(t)
	upsertDriver(t, r, "d1", taipei101, base)

	// Time passes; the stored update ages past the window.
	r.now = func() time.Time { return base.Add(31 * time.Second) }
	if got := r.Query(taipei101, 2.0, VehicleSedan, nil); len(got) != 0 {
		t.Fatalf("driver with aged-out location still matchable: %v", got)
	}
}

func TestQuery_FiltersVehicleRadiusAndExclusion(t *testing.T) {
	r, base := newTestRegistry(t)
	upsertDriver(t, r, "sedan-near", taipei101, base)
	r.Upsert(Update{
		DriverID: "suv-near", Position: taipei101, Vehicle: VehicleSUV,
		Available: true, Timestamp: base,
	})
	upsertDriver(t, r, "sedan-far", mainStation, base)

	got := r.Query(taipei101, 2.0, VehicleSedan, map[types.ID]struct{}{})
	if len(got) != 1 || got[0].DriverID != "sedan-near" {
		t.Fatalf("expected only sedan-near, got %v", got)
	}

	got = r.Query(taipei101, 2.0, VehicleSedan, map[types.ID]struct{}{"sedan-near": {}})
	if len(got) != 0 {
		t.Fatalf("excluded driver still returned: %v", got)
	}

	// Widening the radius picks up the far sedan too.
	got = r.Query(taipei101, 10.0, VehicleSedan, nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 sedans at 10km, got %d", len(got))
	}
}

func TestQuery_InsertionOrderIsStable(t *testing.T) {
	r, base := newTestRegistry(t)
	for i := 0; i < 5; i++ {
		upsertDriver(t, r, fmt.Sprintf("d%d", i), taipei101, base)
	}
	for run := 0; run < 3; run++ {
		got := r.Query(taipei101, 2.0, VehicleSedan, nil)
		if len(got) != 5 {
			t.Fatalf("expected 5 drivers, got %d", len(got))
		}
		for i, c := range got {
			if c.DriverID != types.ID(fmt.Sprintf("d%d", i)) {
				t.Fatalf("run %d: position %d holds %s", run, i, c.DriverID)
			}
		}
	}
}

func TestSetBusy_Exclusivity(t *testing.T) {
	r, base := newTestRegistry(t)
	upsertDriver(t, r, "d1", taipei101, base)

	if !r.SetBusy("d1", "ride-1") {
		t.Fatal("SetBusy on available driver failed")
	}
	if got := r.Query(taipei101, 2.0, VehicleSedan, nil); len(got) != 0 {
		t.Fatalf("busy driver appeared in query: %v", got)
	}
	if r.SetBusy("d1", "ride-2") {
		t.Fatal("SetBusy succeeded twice for the same driver")
	}

	r.SetAvailable("d1")
	if got := r.Query(taipei101, 2.0, VehicleSedan, nil); len(got) != 1 {
		t.Fatalf("released driver missing from query: %v", got)
	}
}

func TestSetBusy_MissingDriver(t *testing.T) {
	r, _ := newTestRegistry(t)
	if r.SetBusy("ghost", "ride-1") {
		t.Fatal("SetBusy succeeded for unknown driver")
	}
	// Both transitions are silent no-ops for disconnected drivers.
	r.SetAvailable("ghost")
	r.SetOffline("ghost")
}

func TestUpsert_DoesNotReleaseBusyDriver(t *testing.T) {
	r, base := newTestRegistry(t)
	upsertDriver(t, r, "d1", taipei101, base)
	if !r.SetBusy("d1", "ride-1") {
		t.Fatal("SetBusy failed")
	}

	// Device keeps reporting available=true mid-ride; the ride state owns
	// availability until SetAvailable.
	r.Upsert(Update{
		DriverID: "d1", Position: taipei101, Vehicle: VehicleSedan,
		Available: true, Rating: 4.5, CompletedTrips: 50,
		Timestamp: base.Add(5 * time.Second),
	})
	if got := r.Query(taipei101, 2.0, VehicleSedan, nil); len(got) != 0 {
		t.Fatalf("busy driver resurfaced via upsert: %v", got)
	}
}

func TestSetOffline_RemovesFromIndex(t *testing.T) {
	r, base := newTestRegistry(t)
	upsertDriver(t, r, "d1", taipei101, base)
	r.SetOffline("d1")

	if got := r.Query(taipei101, 2.0, VehicleSedan, nil); len(got) != 0 {
		t.Fatalf("offline driver still in query: %v", got)
	}
	if n := r.AvailableInZone(geo.Zone(taipei101)); n != 0 {
		t.Fatalf("offline driver still counted in zone: %d", n)
	}
}

func TestAvailableInZone(t *testing.T) {
	r, base := newTestRegistry(t)
	zone := geo.Zone(taipei101)

	for i := 0; i < 3; i++ {
		upsertDriver(t, r, fmt.Sprintf("d%d", i), taipei101, base)
	}
	if n := r.AvailableInZone(zone); n != 3 {
		t.Fatalf("zone count = %d, want 3", n)
	}

	r.SetBusy("d0", "ride-1")
	if n := r.AvailableInZone(zone); n != 2 {
		t.Fatalf("zone count after SetBusy = %d, want 2", n)
	}
}

func TestRegistry_MoveBetweenCells(t *testing.T) {
	r, base := newTestRegistry(t)
	upsertDriver(t, r, "d1", taipei101, base)
	upsertDriver(t, r, "d1", mainStation, base.Add(time.Second))

	if got := r.Query(mainStation, 1.0, VehicleSedan, nil); len(got) != 1 {
		t.Fatalf("moved driver not found at new position: %v", got)
	}
	if got := r.Query(taipei101, 1.0, VehicleSedan, nil); len(got) != 0 {
		t.Fatalf("moved driver still indexed at old position: %v", got)
	}
}

// TestRegistry_ConcurrentIngestAndQuery exercises the per-entry locking
// under -race: a stream of upserts racing many radius queries and busy
// transitions must not corrupt state.
func TestRegistry_ConcurrentIngestAndQuery(t *testing.T) {
	r := New(30 * time.Second)

	const drivers = 20
	var wg sync.WaitGroup

	for i := 0; i < drivers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("d%d", n)
			for j := 0; j < 50; j++ {
				r.Upsert(Update{
					DriverID:  types.ID(id),
					Position:  types.Point{Lat: 25.03 + float64(j)*0.0001, Lng: 121.56},
					Vehicle:   VehicleSedan,
					Available: true,
					Timestamp: time.Now(),
				})
			}
		}(i)
	}

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cands := r.Query(types.Point{Lat: 25.03, Lng: 121.56}, 5.0, VehicleSedan, nil)
				for _, c := range cands {
					if r.SetBusy(c.DriverID, "ride-x") {
						r.SetAvailable(c.DriverID)
					}
				}
			}
		}()
	}

	wg.Wait()

	if got := len(r.Entries()); got != drivers {
		t.Fatalf("expected %d entries after churn, got %d", drivers, got)
	}
}
