// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hailer/internal/http/handlers"
	"hailer/internal/http/middleware"
	"hailer/internal/modules/allocation"
	"hailer/internal/modules/registry"
	"hailer/internal/modules/surge"
	"hailer/internal/ws"
)

type RouterDeps struct {
	Allocator *allocation.Service
	Registry  *registry.Service
	Store     *registry.Store
	Surge     *surge.Estimator
	Hub       *ws.Hub
}

func NewRouter(deps RouterDeps) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Logging(), middleware.Recovery())

	rideHandler := handlers.NewRideHandler(deps.Allocator)
	r.POST("/api/rides", rideHandler.Submit)
	r.GET("/api/rides/:id", rideHandler.Get)
	r.POST("/api/rides/:id/cancel", rideHandler.Cancel)

	driverHandler := handlers.NewDriverHandler(deps.Registry, deps.Store)
	r.PUT("/api/drivers/:id/location", driverHandler.UpdateLocation)
	r.POST("/api/drivers/:id/offline", driverHandler.Offline)
	r.GET("/api/admin/drivers/nearby", driverHandler.Nearby)

	surgeHandler := handlers.NewSurgeHandler(deps.Surge)
	r.GET("/api/surge", surgeHandler.Get)

	wsHandler := handlers.NewWSHandler(deps.Hub)
	r.GET("/ws/drivers/:id", wsHandler.Connect)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return r
}
