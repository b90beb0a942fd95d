// README: Driver handlers for location ingestion, offline, and the fleet overview.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"hailer/internal/modules/registry"
	"hailer/internal/types"
)

type DriverHandler struct {
	registry *registry.Service
	store    *registry.Store
}

func NewDriverHandler(svc *registry.Service, store *registry.Store) *DriverHandler {
	return &DriverHandler{registry: svc, store: store}
}

type locationUpdateReq struct {
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
	VehicleType    string  `json:"vehicle_type"`
	Available      bool    `json:"available"`
	Rating         float64 `json:"rating"`
	CompletedTrips int     `json:"completed_trips"`
	Timestamp      string  `json:"timestamp"`
}

// UpdateLocation is the HTTP ingestion path for devices that do not
// publish through the broker. Same semantics as the AMQP consumer.
func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing driver id")
		return
	}
	var req locationUpdateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	ts := time.Now()
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid timestamp")
			return
		}
		ts = parsed
	}

	err := h.registry.Ingest(c.Request.Context(), registry.Update{
		DriverID:       types.ID(id),
		Position:       types.Point{Lat: req.Lat, Lng: req.Lng},
		Vehicle:        registry.VehicleType(req.VehicleType),
		Available:      req.Available,
		Rating:         req.Rating,
		CompletedTrips: req.CompletedTrips,
		Timestamp:      ts,
	})
	if err != nil {
		writeRegistryError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *DriverHandler) Offline(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing driver id")
		return
	}
	h.registry.Offline(c.Request.Context(), types.ID(id))
	writeJSON(c, http.StatusOK, map[string]any{"status": "offline"})
}

// Nearby serves the ops overview from the Redis mirror, not the matching
// index; results may lag live state by one ping.
func (h *DriverHandler) Nearby(c *gin.Context) {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
	if err1 != nil || err2 != nil {
		writeError(c, http.StatusBadRequest, "lat and lng are required")
		return
	}
	radiusKm := 5.0
	if raw := c.Query("radius_km"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			writeError(c, http.StatusBadRequest, "invalid radius_km")
			return
		}
		radiusKm = parsed
	}

	ids, err := h.store.Nearby(c.Request.Context(), types.Point{Lat: lat, Lng: lng}, radiusKm)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"drivers": ids, "radius_km": radiusKm})
}
