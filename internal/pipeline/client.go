package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPClient implements Client against the backend's REST surface.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates a pipeline client for the given base URL. The API
// key is optional; when set it is sent as a bearer token.
func NewHTTPClient(baseURL, apiKey string, logger *slog.Logger) (*HTTPClient, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger cannot be nil", ErrInvalidConfig)
	}
	if baseURL == "" {
		return nil, fmt.Errorf("%w: base URL cannot be empty", ErrInvalidConfig)
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("%w: invalid base URL %q: %v", ErrInvalidConfig, baseURL, err)
	}

	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			// Per-call ceiling; cancellation still flows through the context.
			Timeout: 30 * time.Second,
		},
		logger: logger.With("component", "pipeline_client"),
	}, nil
}

// StartJob submits the work item input and returns the issued job id.
func (c *HTTPClient) StartJob(ctx context.Context, req StartRequest) (StartResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return StartResponse{}, fmt.Errorf("failed to encode start request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+"/api/v1/jobs", bytes.NewReader(body))
	if err != nil {
		return StartResponse{}, fmt.Errorf("failed to build start request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq)

	var resp StartResponse
	if err := c.do(httpReq, &resp); err != nil {
		return StartResponse{}, err
	}

	if resp.JobID == "" {
		return StartResponse{}, ErrEmptyJobID
	}

	c.logger.Debug("job started",
		"work_item_id", req.WorkItemID,
		"job_id", resp.JobID,
		"initial_status", resp.InitialStatus)
	return resp, nil
}

// JobStatus fetches the current status of a job.
func (c *HTTPClient) JobStatus(ctx context.Context, jobID string) (StatusResponse, error) {
	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.baseURL+"/api/v1/jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return StatusResponse{}, fmt.Errorf("failed to build status request: %w", err)
	}
	c.authorize(httpReq)

	var resp StatusResponse
	if err := c.do(httpReq, &resp); err != nil {
		return StatusResponse{}, err
	}
	return resp, nil
}

func (c *HTTPClient) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// do executes the request and decodes a 2xx JSON body into out. Any other
// outcome is classified into a *Fault.
func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Fault{Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close response body", "error", closeErr)
		}
	}()

	// Cap error bodies; backends have been seen returning HTML error pages.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &Fault{Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Fault{
			StatusCode: resp.StatusCode,
			Message:    extractErrorMessage(body),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &Fault{Err: fmt.Errorf("failed to decode response body: %w", err)}
	}
	return nil
}

// extractErrorMessage pulls a human-readable message out of an error body,
// tolerating both {"error": "..."} and {"message": "..."} shapes.
func extractErrorMessage(body []byte) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}

	trimmed := strings.TrimSpace(string(body))
	if len(trimmed) > 200 {
		trimmed = trimmed[:200]
	}
	return trimmed
}
