// README: Boundary contracts between the dispatcher and the surrounding system.
package allocation

import (
	"context"
	"time"

	"hailer/internal/modules/registry"
	"hailer/internal/types"
)

// Offer is one outbound ride proposal for one driver.
type Offer struct {
	RequestID          types.ID    `json:"request_id"`
	Pickup             types.Point `json:"pickup"`
	Drop               types.Point `json:"drop"`
	EstimatedFare      types.Money `json:"estimated_fare"`
	DistanceToPickupKm float64     `json:"distance_to_pickup_km"`
	ExpiresAt          time.Time   `json:"expires_at"`
}

// Notifier pushes an offer toward a driver device. The transport is the
// integration layer's business; an error means the offer did not leave.
type Notifier interface {
	SendOffer(ctx context.Context, driverID types.ID, offer Offer) error
}

// AcceptanceSource delivers a driver's answer to a specific offer. It
// blocks until an answer arrives or ctx is done; losing an offer race
// surfaces to the driver device as "offer expired".
type AcceptanceSource interface {
	AwaitResponse(ctx context.Context, driverID, requestID types.ID) (Response, error)
}

// DriverPool is the slice of the registry the dispatcher needs.
type DriverPool interface {
	Query(center types.Point, radiusKm float64, vehicle registry.VehicleType, exclude map[types.ID]struct{}) []registry.Candidate
	SetBusy(driverID, rideID types.ID) bool
}

// EventPublisher receives terminal allocation decisions, fire and forget.
type EventPublisher interface {
	PublishDecision(ctx context.Context, res Result) error
}
