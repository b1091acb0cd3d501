package api

import (
	"time"

	"github.com/inkwell-ai/inkwell/internal/domain"
)

// CreateItemRequest represents the request body for creating a work item.
// ID is optional; one is generated when absent.
type CreateItemRequest struct {
	ID       string            `json:"id"`
	Topic    string            `json:"topic"    validate:"required,min=1"`
	Keywords []string          `json:"keywords" validate:"max=100"`
	Extra    map[string]string `json:"extra"`
}

// SubmitBatchRequest represents the request body for submitting a batch.
type SubmitBatchRequest struct {
	IDs  []string `json:"ids"  validate:"required,min=1"`
	Mode string   `json:"mode" validate:"required,oneof=bounded sequential"`
}

// SelectionRequest represents the request body for replacing the selection.
type SelectionRequest struct {
	IDs []string `json:"ids" validate:"required"`
}

// ItemResponse represents the response data for a work item.
type ItemResponse struct {
	ID            string            `json:"id"`
	Topic         string            `json:"topic"`
	Keywords      []string          `json:"keywords,omitempty"`
	Status        string            `json:"status"`
	ProgressText  string            `json:"progress_text,omitempty"`
	Stage         string            `json:"stage,omitempty"`
	ResultPayload string            `json:"result_payload,omitempty"`
	ErrorInfo     *domain.ErrorInfo `json:"error_info,omitempty"`
	RetryCount    int               `json:"retry_count"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// itemToResponse converts a domain.WorkItem to an ItemResponse.
func itemToResponse(item *domain.WorkItem) ItemResponse {
	return ItemResponse{
		ID:            item.ID,
		Topic:         item.Input.Topic,
		Keywords:      item.Input.Keywords,
		Status:        string(item.Status),
		ProgressText:  item.ProgressText,
		Stage:         item.Stage,
		ResultPayload: item.ResultPayload,
		ErrorInfo:     item.ErrorInfo,
		RetryCount:    item.RetryCount,
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
	}
}
