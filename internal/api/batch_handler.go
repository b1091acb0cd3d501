package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/inkwell-ai/inkwell/internal/api/shared"
	"github.com/inkwell-ai/inkwell/internal/orchestrator"
)

// BatchHandler handles batch submission, cancellation, selection and
// snapshot requests against the orchestrator surface.
type BatchHandler struct {
	orch      *orchestrator.Orchestrator
	validator *validator.Validate
	logger    *slog.Logger
}

// NewBatchHandler creates a new BatchHandler.
func NewBatchHandler(orch *orchestrator.Orchestrator, logger *slog.Logger) *BatchHandler {
	return &BatchHandler{
		orch:      orch,
		validator: validator.New(),
		logger:    logger.With("handler", "batch"),
	}
}

// SubmitBatch handles POST /api/batches requests. Processing happens
// asynchronously; the response is 202 Accepted.
func (h *BatchHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req SubmitBatchRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	// The batch outlives the request; submission must not inherit the
	// request context's cancellation.
	err := h.orch.Submit(contextWithoutCancel(r), req.IDs, orchestrator.Mode(req.Mode))
	if err != nil {
		if errors.Is(err, orchestrator.ErrBatchActive) {
			shared.RespondWithError(w, r, http.StatusConflict,
				"A sequential batch is already running")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest,
			"Failed to submit batch", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, map[string]any{
		"submitted": len(req.IDs),
		"mode":      req.Mode,
	})
}

// CancelBatch handles POST /api/batches/cancel requests. Idempotent.
func (h *BatchHandler) CancelBatch(w http.ResponseWriter, r *http.Request) {
	h.orch.Cancel()
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "cancellation requested"})
}

// GetState handles GET /api/state requests, returning the current snapshot.
func (h *BatchHandler) GetState(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.orch.Snapshot())
}

// SetSelection handles PUT /api/selection requests.
func (h *BatchHandler) SetSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	h.orch.SetSelected(req.IDs)
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]int{"selected": len(req.IDs)})
}
