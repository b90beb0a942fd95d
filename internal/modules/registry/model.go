// README: Driver pool entry, vehicle types, and ingestion update shapes.
package registry

import (
	"errors"
	"time"

	"hailer/internal/types"
)

type VehicleType string

const (
	VehicleSedan     VehicleType = "sedan"
	VehicleSUV       VehicleType = "suv"
	VehicleHatchback VehicleType = "hatchback"
	VehicleBike      VehicleType = "bike"
)

var ErrBadUpdate = errors.New("invalid location update")

// Update is one location/availability snapshot from a driver device.
type Update struct {
	DriverID       types.ID
	Position       types.Point
	Vehicle        VehicleType
	Available      bool
	Rating         float64
	CompletedTrips int
	Timestamp      time.Time
}

func (u Update) validate() error {
	if u.DriverID == "" {
		return ErrBadUpdate
	}
	if u.Position.Lat < -90 || u.Position.Lat > 90 || u.Position.Lng < -180 || u.Position.Lng > 180 {
		return ErrBadUpdate
	}
	if u.Rating < 0 || u.Rating > 5 {
		return ErrBadUpdate
	}
	if u.CompletedTrips < 0 {
		return ErrBadUpdate
	}
	return nil
}

// Entry is a point-in-time copy of one driver's state. While
// CurrentRideID is set the driver is busy and availability is owned by
// SetBusy/SetAvailable; off-ride, the device snapshot controls
// Available, so Available == false with CurrentRideID == nil simply
// means the driver toggled themselves unavailable.
type Entry struct {
	DriverID       types.ID
	Position       types.Point
	Vehicle        VehicleType
	Rating         float64
	CompletedTrips int
	UpdatedAt      time.Time
	Available      bool
	CurrentRideID  *types.ID
	Cell           string
	Zone           string
}

// Candidate is a driver returned by a radius query, eligible for ranking.
// insertSeq preserves first-seen order for deterministic tie-breaking.
type Candidate struct {
	Entry
	DistanceKm float64

	insertSeq uint64
}
