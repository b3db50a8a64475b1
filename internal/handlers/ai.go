package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Rajat-malhotra0/draw-agent/internal/models"
	"github.com/Rajat-malhotra0/draw-agent/internal/services"
)

// Canvas snapshots are large; anything past this is not a whiteboard.
const maxSnapshotBody = 20 << 20

type AIHandler struct {
	solver *services.SolverService
	logger zerolog.Logger
}

func NewAIHandler(solver *services.SolverService, logger zerolog.Logger) *AIHandler {
	return &AIHandler{solver: solver, logger: logger}
}

func (h *AIHandler) Solve(w http.ResponseWriter, r *http.Request) {
	var req models.SolveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSnapshotBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("INVALID_INPUT", "Invalid request body", r))
		return
	}

	h.logger.Info().Str("client_id", req.ClientID).Bool("step_by_step", req.Options.StepByStep).Msg("received solve request")

	solution, err := h.solver.Solve(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.SolveResult{Success: true, Solution: *solution})
}

func (h *AIHandler) Test(w http.ResponseWriter, r *http.Request) {
	result, err := h.solver.Test(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AIHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSnapshotBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("INVALID_INPUT", "Invalid request body", r))
		return
	}

	result, err := h.solver.Analyze(req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
