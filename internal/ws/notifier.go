// README: Offer notifier; pushes ride offers over a driver's socket.
package ws

import (
	"context"

	"hailer/internal/modules/allocation"
	"hailer/internal/types"
)

// offerEnvelope wraps an offer with a message type the driver app can
// switch on.
type offerEnvelope struct {
	Type string `json:"type"`
	allocation.Offer
}

// OfferNotifier delivers allocation offers over the hub. A driver with
// no live connection gets ErrNotConnected, which the orchestrator treats
// as a failed delivery for that driver only.
type OfferNotifier struct {
	hub *Hub
}

func NewOfferNotifier(hub *Hub) *OfferNotifier {
	return &OfferNotifier{hub: hub}
}

func (n *OfferNotifier) SendOffer(ctx context.Context, driverID types.ID, offer allocation.Offer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return n.hub.SendJSON(driverID, offerEnvelope{Type: "ride_offer", Offer: offer})
}
