package http

import (
	"net/http"
	"time"

	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
	Rooms  int    `json:"rooms"`
	Users  int    `json:"users"`
}

type healthHandler struct {
	orch    *orch.Orchestrator
	started time.Time
}

func newHealthHandler(o *orch.Orchestrator) *healthHandler {
	return &healthHandler{orch: o, started: time.Now()}
}

func (h *healthHandler) get(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status: "ok",
		Uptime: time.Since(h.started).Truncate(time.Second).String(),
		Rooms:  len(h.orch.Rooms.List()),
		Users:  h.orch.Registry.UserCount(),
	})
}
