package handlers

import (
	"net/http"
	"time"

	"github.com/Rajat-malhotra0/draw-agent/internal/models"
)

const Version = "1.0.0"

// ClientCounter reports how many boards are connected to the relay.
type ClientCounter interface {
	Clients() int
}

type HealthHandler struct {
	provider   string
	configured bool
	relay      ClientCounter
}

func NewHealthHandler(provider string, configured bool, relay ClientCounter) *HealthHandler {
	return &HealthHandler{provider: provider, configured: configured, relay: relay}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := models.HealthResponse{
		Status:       "healthy",
		Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
		Version:      Version,
		Provider:     h.provider,
		AIConfigured: h.configured,
	}
	if h.relay != nil {
		resp.Clients = h.relay.Clients()
	}
	writeJSON(w, http.StatusOK, resp)
}
