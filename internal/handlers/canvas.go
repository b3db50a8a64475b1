package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/Rajat-malhotra0/draw-agent/internal/models"
	"github.com/Rajat-malhotra0/draw-agent/internal/services"
)

type CanvasHandler struct {
	canvas *services.CanvasService
	logger zerolog.Logger
}

func NewCanvasHandler(canvas *services.CanvasService, logger zerolog.Logger) *CanvasHandler {
	return &CanvasHandler{canvas: canvas, logger: logger}
}

func (h *CanvasHandler) Draw(w http.ResponseWriter, r *http.Request) {
	var req models.DrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("INVALID_INPUT", "Invalid request body", r))
		return
	}

	count, err := h.canvas.Draw(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"message":     "Drawing command executed",
		"strokeCount": count,
	})
}

func (h *CanvasHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"state":   h.canvas.State(r.Context()),
	})
}

func (h *CanvasHandler) StoreImage(w http.ResponseWriter, r *http.Request) {
	var req models.StoreImageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSnapshotBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("INVALID_INPUT", "Invalid request body", r))
		return
	}

	h.canvas.StoreImage(r.Context(), req.Image)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Canvas image stored",
	})
}

// Render serves the stroke log as a PNG.
func (h *CanvasHandler) Render(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.canvas.Render(r.Context(), &buf); err != nil {
		h.logger.Error().Err(err).Msg("render canvas")
		handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
