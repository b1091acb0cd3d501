package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/inkwell-ai/inkwell/internal/api/shared"
	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/inkwell-ai/inkwell/internal/workstore"
)

// ItemHandler handles work-item HTTP requests.
type ItemHandler struct {
	store     *workstore.Store
	validator *validator.Validate
	logger    *slog.Logger
}

// NewItemHandler creates a new ItemHandler.
func NewItemHandler(store *workstore.Store, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{
		store:     store,
		validator: validator.New(),
		logger:    logger.With("handler", "item"),
	}
}

// CreateItem handles POST /api/items requests.
func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}

	item, err := domain.NewWorkItem(id, domain.GenerationInput{
		Topic:    req.Topic,
		Keywords: req.Keywords,
		Extra:    req.Extra,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid work item", err)
		return
	}

	if err := h.store.Put(r.Context(), item); err != nil {
		if errors.Is(err, workstore.ErrDuplicateWorkItem) {
			shared.RespondWithError(w, r, http.StatusConflict, "Work item already exists")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to create work item", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, itemToResponse(item))
}

// ListItems handles GET /api/items requests.
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items := h.store.List(nil)

	responses := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, itemToResponse(item))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// GetItem handles GET /api/items/{id} requests.
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	item, err := h.store.Get(id)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusNotFound, "Work item not found")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, itemToResponse(item))
}

// RetryItem handles POST /api/items/{id}/retry requests: an explicit
// reset-for-retry that moves a terminal item back to queued, clearing its
// result or error and bumping the retry count. The caller resubmits the
// batch afterwards.
func (h *ItemHandler) RetryItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	status := domain.StatusQueued
	item, err := h.store.Update(r.Context(), id, workstore.Patch{
		Status:         &status,
		IncrementRetry: true,
	})
	if err != nil {
		switch {
		case errors.Is(err, workstore.ErrWorkItemNotFound):
			shared.RespondWithError(w, r, http.StatusNotFound, "Work item not found")
		case errors.Is(err, domain.ErrIllegalTransition):
			shared.RespondWithError(w, r, http.StatusConflict,
				"Work item cannot be retried in its current state")
		default:
			shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
				"Failed to retry work item", err)
		}
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, itemToResponse(item))
}
