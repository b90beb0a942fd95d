// README: Ride handlers for submit/get/cancel.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hailer/internal/modules/allocation"
	"hailer/internal/modules/registry"
	"hailer/internal/types"
)

type RideHandler struct {
	allocator *allocation.Service
}

func NewRideHandler(svc *allocation.Service) *RideHandler {
	return &RideHandler{allocator: svc}
}

type submitRideReq struct {
	RequesterID string  `json:"requester_id"`
	PickupLat   float64 `json:"pickup_lat"`
	PickupLng   float64 `json:"pickup_lng"`
	DropLat     float64 `json:"drop_lat"`
	DropLng     float64 `json:"drop_lng"`
	VehicleType string  `json:"vehicle_type"`
	FareAmount  int64   `json:"fare_amount"`
	FareCcy     string  `json:"fare_currency"`
}

// Submit starts an allocation and returns 202 immediately; clients poll
// the request status or learn the outcome out of band.
func (h *RideHandler) Submit(c *gin.Context) {
	var req submitRideReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.RequesterID == "" || req.VehicleType == "" {
		writeError(c, http.StatusBadRequest, "missing fields")
		return
	}

	handle, err := h.allocator.Submit(allocation.Request{
		RequesterID:   types.ID(req.RequesterID),
		Pickup:        types.Point{Lat: req.PickupLat, Lng: req.PickupLng},
		Drop:          types.Point{Lat: req.DropLat, Lng: req.DropLng},
		Vehicle:       registry.VehicleType(req.VehicleType),
		EstimatedFare: types.Money{Amount: req.FareAmount, Currency: req.FareCcy},
	})
	if err != nil {
		writeAllocationError(c, err)
		return
	}
	writeJSON(c, http.StatusAccepted, map[string]any{
		"request_id": handle.RequestID,
		"status":     allocation.StatusSearching,
	})
}

func (h *RideHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing request id")
		return
	}
	res, err := h.allocator.Get(types.ID(id))
	if err != nil {
		writeAllocationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

func (h *RideHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing request id")
		return
	}
	if err := h.allocator.Cancel(types.ID(id)); err != nil {
		writeAllocationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"status": allocation.StatusCancelled})
}
