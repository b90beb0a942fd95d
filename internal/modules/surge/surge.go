// README: Surge estimator; demand multiplier as a step function of zone driver density.
package surge

import (
	"hailer/internal/geo"
	"hailer/internal/types"
)

// ZoneCounter reports live available-driver counts per zone.
type ZoneCounter interface {
	AvailableInZone(zone string) int
}

// tiers maps "fewer than N available drivers" to a multiplier, checked
// in order. Zero drivers is its own tier above the table.
var tiers = []struct {
	below      int
	multiplier float64
}{
	{3, 2.0},
	{5, 1.5},
	{10, 1.2},
}

const (
	emptyZoneMultiplier = 2.5
	baseMultiplier      = 1.0
)

type Estimator struct {
	counter ZoneCounter
}

func New(counter ZoneCounter) *Estimator {
	return &Estimator{counter: counter}
}

// Multiplier returns the demand multiplier for a zone. It reads the live
// count on every call; zone density moves with every location update, so
// nothing is cached.
func (e *Estimator) Multiplier(zone string) float64 {
	n := e.counter.AvailableInZone(zone)
	if n == 0 {
		return emptyZoneMultiplier
	}
	for _, t := range tiers {
		if n < t.below {
			return t.multiplier
		}
	}
	return baseMultiplier
}

// MultiplierAt is a convenience for callers holding a coordinate rather
// than a zone key.
func (e *Estimator) MultiplierAt(p types.Point) float64 {
	return e.Multiplier(geo.Zone(p))
}
