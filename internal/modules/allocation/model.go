// README: Ride request, allocation result, and driver response definitions.
package allocation

import (
	"errors"
	"time"

	"hailer/internal/modules/registry"
	"hailer/internal/types"
)

var (
	ErrBadRequest = errors.New("invalid ride request")
	ErrNotFound   = errors.New("allocation not found")
)

// Request is one ride request. Immutable once submitted.
type Request struct {
	ID            types.ID
	RequesterID   types.ID
	Pickup        types.Point
	Drop          types.Point
	Vehicle       registry.VehicleType
	EstimatedFare types.Money
	RequestedAt   time.Time
}

func (r Request) validate() error {
	if r.RequesterID == "" || r.Vehicle == "" {
		return ErrBadRequest
	}
	return nil
}

type Status string

const (
	// StatusSearching is the only non-terminal status.
	StatusSearching Status = "searching"
	StatusResolved  Status = "resolved"
	StatusExhausted Status = "exhausted"
	StatusCancelled Status = "cancelled"
)

// Result is the terminal outcome of one allocation (or a searching
// snapshot while it is still in flight).
type Result struct {
	RequestID types.ID      `json:"request_id"`
	Status    Status        `json:"status"`
	DriverID  types.ID      `json:"driver_id,omitempty"`
	RadiusKm  float64       `json:"radius_km,omitempty"`
	Attempts  int           `json:"attempts,omitempty"`
	Elapsed   time.Duration `json:"elapsed_ns,omitempty"`
}

// Response is a driver's answer to an offer.
type Response string

const (
	ResponseAccepted Response = "accepted"
	ResponseRejected Response = "rejected"
	ResponseTimedOut Response = "timed_out"
)
