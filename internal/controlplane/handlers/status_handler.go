package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openmined/marksync/internal/app"
	"github.com/openmined/marksync/internal/schedule"
	"github.com/openmined/marksync/internal/version"
)

type StatusResponse struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"ts"`
	Version    string            `json:"version"`
	Revision   string            `json:"revision"`
	BuildDate  string            `json:"buildDate"`
	Scope      string            `json:"scope"`
	LogBackend string            `json:"logBackend"`
	Schedules  []schedule.Policy `json:"schedules"`
}

type StatusHandler struct {
	app *app.App
}

func NewStatusHandler(a *app.App) *StatusHandler {
	return &StatusHandler{app: a}
}

func (h *StatusHandler) Status(c *gin.Context) {
	cfg := h.app.Config()
	c.PureJSON(http.StatusOK, &StatusResponse{
		Status:     "ok",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Version:    version.Version,
		Revision:   version.Revision,
		BuildDate:  version.BuildDate,
		Scope:      cfg.Scope,
		LogBackend: cfg.LogBackend,
		Schedules:  h.app.Policies(),
	})
}
