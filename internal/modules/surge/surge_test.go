package surge

import (
	"testing"
	"time"

	"hailer/internal/geo"
	"hailer/internal/modules/registry"
	"hailer/internal/types"
)

type fixedCounter map[string]int

func (f fixedCounter) AvailableInZone(zone string) int { return f[zone] }

func TestMultiplier_Tiers(t *testing.T) {
	cases := []struct {
		drivers int
		want    float64
	}{
		{0, 2.5},
		{1, 2.0},
		{2, 2.0},
		{3, 1.5},
		{4, 1.5},
		{5, 1.2},
		{9, 1.2},
		{10, 1.0},
		{50, 1.0},
	}
	for _, tc := range cases {
		e := New(fixedCounter{"zone-a": tc.drivers})
		if got := e.Multiplier("zone-a"); got != tc.want {
			t.Errorf("%d drivers: multiplier = %.1f, want %.1f", tc.drivers, got, tc.want)
		}
	}
}

// TestMultiplier_TracksRegistry drives the estimator against the real
// registry: three available drivers give 2.0x, draining the zone to zero
// gives 2.5x.
func TestMultiplier_TracksRegistry(t *testing.T) {
	reg := registry.New(30 * time.Second)
	pos := types.Point{Lat: 25.0340, Lng: 121.5645}
	zone := geo.Zone(pos)
	e := New(reg)

	ids := []types.ID{"d1", "d2", "d3"}
	for _, id := range ids {
		reg.Upsert(registry.Update{
			DriverID:  id,
			Position:  pos,
			Vehicle:   registry.VehicleSedan,
			Available: true,
			Rating:    4.5,
			Timestamp: time.Now(),
		})
	}
	if got := e.Multiplier(zone); got != 2.0 {
		t.Fatalf("multiplier with 3 drivers = %.1f, want 2.0", got)
	}
	if got := e.MultiplierAt(pos); got != 2.0 {
		t.Fatalf("MultiplierAt = %.1f, want 2.0", got)
	}

	for _, id := range ids {
		reg.SetOffline(id)
	}
	if got := e.Multiplier(zone); got != 2.5 {
		t.Fatalf("multiplier with empty zone = %.1f, want 2.5", got)
	}
}
