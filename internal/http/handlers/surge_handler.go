// README: Surge handler; live multiplier lookup by coordinate.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hailer/internal/geo"
	"hailer/internal/modules/surge"
	"hailer/internal/types"
)

type SurgeHandler struct {
	estimator *surge.Estimator
}

func NewSurgeHandler(estimator *surge.Estimator) *SurgeHandler {
	return &SurgeHandler{estimator: estimator}
}

func (h *SurgeHandler) Get(c *gin.Context) {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
	if err1 != nil || err2 != nil {
		writeError(c, http.StatusBadRequest, "lat and lng are required")
		return
	}
	p := types.Point{Lat: lat, Lng: lng}
	writeJSON(c, http.StatusOK, map[string]any{
		"zone":       geo.Zone(p),
		"multiplier": h.estimator.MultiplierAt(p),
	})
}
