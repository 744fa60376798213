package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursegraph-backend/internal/realtime"
)

type RealtimeHandler struct {
	hub *realtime.Hub
}

func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// GET /api/events?channel=catalog&channel=job
func (h *RealtimeHandler) Stream(c *gin.Context) {
	client := h.hub.Register(c.QueryArray("channel")...)
	defer h.hub.Unregister(client)
	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
