// README: WebSocket handler; upgrades driver connections into the hub.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hailer/internal/types"
	"hailer/internal/ws"
)

type WSHandler struct {
	hub *ws.Hub
}

func NewWSHandler(hub *ws.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

func (h *WSHandler) Connect(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing driver id")
		return
	}
	if err := h.hub.Serve(c.Writer, c.Request, types.ID(id)); err != nil {
		// Upgrade failures already wrote an HTTP error to the client.
		return
	}
}
