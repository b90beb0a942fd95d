// README: Concurrent in-memory driver table with geohash cell index.
package registry

import (
	"sync"
	"time"

	"hailer/internal/geo"
	"hailer/internal/types"
)

// indexPrecisions are the geohash lengths the cell index answers queries
// at. They mirror geo.PrecisionForRadius for every radius the dispatcher
// can ask for.
var indexPrecisions = []uint{4, 5, 6, 7}

// driverEntry is the mutable record behind one driver. Field access goes
// through its own mutex so location ingestion and allocation searches
// contend per driver, not on the whole table.
type driverEntry struct {
	mu  sync.Mutex
	e   Entry
	seq uint64

	// indexedCell is the cell the driver is currently filed under in the
	// index. Guarded by Registry.mu, not the entry mutex.
	indexedCell string
}

// Registry is the single source of truth for "who can be matched now".
// The structural maps (driver lookup, cell index) are guarded by mu;
// per-driver state is guarded by each entry's own mutex. No operation
// performs I/O or blocks beyond a single lock acquisition.
type Registry struct {
	freshness time.Duration
	now       func() time.Time

	mu      sync.RWMutex
	drivers map[types.ID]*driverEntry
	cells   map[string]map[types.ID]struct{}
	nextSeq uint64
}

func New(freshness time.Duration) *Registry {
	return &Registry{
		freshness: freshness,
		now:       time.Now,
		drivers:   make(map[types.ID]*driverEntry),
		cells:     make(map[string]map[types.ID]struct{}),
	}
}

// Upsert applies a fresh snapshot for a driver. It reports whether the
// update was applied: snapshots older than the stored one (out-of-order
// delivery) and snapshots staler than the freshness window are dropped.
// While a driver is on a ride, availability is owned by SetBusy and
// SetAvailable; the device snapshot only refreshes position and stats.
func (r *Registry) Upsert(u Update) bool {
	now := r.now()
	if u.Timestamp.IsZero() || now.Sub(u.Timestamp) > r.freshness {
		return false
	}

	cell := geo.Encode(u.Position, geo.CellPrecision)

	r.mu.Lock()
	de, ok := r.drivers[u.DriverID]
	if !ok {
		r.nextSeq++
		de = &driverEntry{seq: r.nextSeq}
		de.e = Entry{DriverID: u.DriverID, CurrentRideID: nil}
		r.drivers[u.DriverID] = de
	}
	r.mu.Unlock()

	de.mu.Lock()
	if !de.e.UpdatedAt.Before(u.Timestamp) {
		de.mu.Unlock()
		return false
	}
	de.e.Position = u.Position
	de.e.Vehicle = u.Vehicle
	de.e.Rating = u.Rating
	de.e.CompletedTrips = u.CompletedTrips
	de.e.UpdatedAt = u.Timestamp
	de.e.Cell = cell
	de.e.Zone = cell[:geo.ZonePrecision]
	if de.e.CurrentRideID == nil {
		de.e.Available = u.Available
	}
	de.mu.Unlock()

	r.reindex(de, u.DriverID)
	return true
}

// SetBusy atomically claims an available driver for a ride. It reports
// false when the driver is absent or already busy; concurrent requests
// racing for the same driver use this as the tie-break.
func (r *Registry) SetBusy(driverID, rideID types.ID) bool {
	r.mu.RLock()
	de, ok := r.drivers[driverID]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	de.mu.Lock()
	defer de.mu.Unlock()
	if !de.e.Available {
		return false
	}
	id := rideID
	de.e.Available = false
	de.e.CurrentRideID = &id
	return true
}

// SetAvailable releases a driver back into the matchable pool. No-op if
// the driver has disconnected in the meantime.
func (r *Registry) SetAvailable(driverID types.ID) {
	r.mu.RLock()
	de, ok := r.drivers[driverID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	de.mu.Lock()
	de.e.Available = true
	de.e.CurrentRideID = nil
	de.mu.Unlock()
}

// SetOffline removes a driver from the table and the cell index.
func (r *Registry) SetOffline(driverID types.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	de, ok := r.drivers[driverID]
	if !ok {
		return
	}
	delete(r.drivers, driverID)
	r.removeFromCellsLocked(driverID, de.indexedCell)
}

// Query returns all available, fresh, non-excluded drivers of the given
// vehicle type within true distance radiusKm of center. Geohash cover
// keys are only a pre-filter; every hit is verified with haversine.
// Results are ordered by driver insertion sequence so that downstream
// ranking is deterministic.
func (r *Registry) Query(center types.Point, radiusKm float64, vehicle VehicleType, exclude map[types.ID]struct{}) []Candidate {
	now := r.now()

	r.mu.RLock()
	ids := make(map[types.ID]struct{})
	for _, key := range geo.CoverKeys(center, radiusKm) {
		for id := range r.cells[key] {
			ids[id] = struct{}{}
		}
	}
	entries := make([]*driverEntry, 0, len(ids))
	for id := range ids {
		if _, skip := exclude[id]; skip {
			continue
		}
		if de, ok := r.drivers[id]; ok {
			entries = append(entries, de)
		}
	}
	r.mu.RUnlock()

	out := make([]Candidate, 0, len(entries))
	for _, de := range entries {
		de.mu.Lock()
		e := de.e
		seq := de.seq
		de.mu.Unlock()

		if !e.Available || e.Vehicle != vehicle {
			continue
		}
		if now.Sub(e.UpdatedAt) > r.freshness {
			continue
		}
		d := geo.HaversineKm(center, e.Position)
		if d > radiusKm {
			continue
		}
		out = append(out, Candidate{Entry: e, DistanceKm: d, insertSeq: seq})
	}

	sortBySeq(out)
	return out
}

// AvailableInZone counts available, fresh drivers in a zone. Density is
// computed lazily on read against the latest completed mutations.
func (r *Registry) AvailableInZone(zone string) int {
	now := r.now()

	r.mu.RLock()
	entries := make([]*driverEntry, 0, len(r.cells[zone]))
	for id := range r.cells[zone] {
		if de, ok := r.drivers[id]; ok {
			entries = append(entries, de)
		}
	}
	r.mu.RUnlock()

	n := 0
	for _, de := range entries {
		de.mu.Lock()
		ok := de.e.Available && now.Sub(de.e.UpdatedAt) <= r.freshness
		de.mu.Unlock()
		if ok {
			n++
		}
	}
	return n
}

// Entries returns a copy of every driver record, for snapshot flushing
// and debugging.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	entries := make([]*driverEntry, 0, len(r.drivers))
	for _, de := range r.drivers {
		entries = append(entries, de)
	}
	r.mu.RUnlock()

	out := make([]Entry, 0, len(entries))
	for _, de := range entries {
		de.mu.Lock()
		out = append(out, de.e)
		de.mu.Unlock()
	}
	return out
}

// reindex files the driver under its current cell. Lock order is always
// Registry.mu before the entry mutex.
func (r *Registry) reindex(de *driverEntry, id types.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, present := r.drivers[id]; !present {
		// Raced with SetOffline; the driver is gone.
		return
	}
	de.mu.Lock()
	cell := de.e.Cell
	de.mu.Unlock()
	if de.indexedCell == cell {
		return
	}
	r.removeFromCellsLocked(id, de.indexedCell)
	for _, p := range indexPrecisions {
		key := cell[:p]
		set, ok := r.cells[key]
		if !ok {
			set = make(map[types.ID]struct{})
			r.cells[key] = set
		}
		set[id] = struct{}{}
	}
	de.indexedCell = cell
}

func (r *Registry) removeFromCellsLocked(id types.ID, cell string) {
	if cell == "" {
		return
	}
	for _, p := range indexPrecisions {
		key := cell[:p]
		if set, ok := r.cells[key]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(r.cells, key)
			}
		}
	}
}

// sortBySeq is an insertion sort; candidate sets are small (one radius
// worth of drivers).
func sortBySeq(cands []Candidate) {
	for i := 1; i < len(cands); i++ {
		key := cands[i]
		j := i - 1
		for j >= 0 && cands[j].insertSeq > key.insertSeq {
			cands[j+1] = cands[j]
			j--
		}
		cands[j+1] = key
	}
}
