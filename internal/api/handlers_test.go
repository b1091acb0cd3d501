package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/inkwell-ai/inkwell/internal/orchestrator"
	"github.com/inkwell-ai/inkwell/internal/pipeline"
	"github.com/inkwell-ai/inkwell/internal/poller"
	"github.com/inkwell-ai/inkwell/internal/workstore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// instantClient completes every job on its first status poll.
type instantClient struct{}

func (instantClient) StartJob(_ context.Context, req pipeline.StartRequest) (pipeline.StartResponse, error) {
	return pipeline.StartResponse{
		JobID:         "job-" + req.WorkItemID,
		InitialStatus: pipeline.JobStateSubmitted,
	}, nil
}

func (instantClient) JobStatus(_ context.Context, _ string) (pipeline.StatusResponse, error) {
	return pipeline.StatusResponse{
		Status: pipeline.JobStateCompleted,
		Result: json.RawMessage(`{"result": "generated"}`),
	}, nil
}

type fixture struct {
	store  *workstore.Store
	router http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := testLogger()
	store := workstore.NewStore(nil, logger)
	registry := workstore.NewRegistry(logger)
	orch := orchestrator.New(store, registry, instantClient{}, nil, orchestrator.Config{
		MaxConcurrency: 2,
		Poller: poller.Config{
			PollInterval: time.Millisecond,
			JobTimeout:   time.Second,
		},
	}, logger)

	r := chi.NewRouter()
	itemHandler := NewItemHandler(store, logger)
	batchHandler := NewBatchHandler(orch, logger)
	r.Route("/api", func(r chi.Router) {
		r.Post("/items", itemHandler.CreateItem)
		r.Get("/items", itemHandler.ListItems)
		r.Get("/items/{id}", itemHandler.GetItem)
		r.Post("/items/{id}/retry", itemHandler.RetryItem)
		r.Post("/batches", batchHandler.SubmitBatch)
		r.Post("/batches/cancel", batchHandler.CancelBatch)
		r.Get("/state", batchHandler.GetState)
		r.Put("/selection", batchHandler.SetSelection)
	})

	return &fixture{store: store, router: r}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeItem(t *testing.T, body *bytes.Buffer) ItemResponse {
	t.Helper()
	var resp ItemResponse
	require.NoError(t, json.Unmarshal(body.Bytes(), &resp))
	return resp
}

func TestCreateItem(t *testing.T) {
	t.Parallel()

	t.Run("generates an id when absent", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/api/items",
			`{"topic": "wave energy", "keywords": ["ocean"]}`)

		require.Equal(t, http.StatusCreated, rec.Code)
		resp := decodeItem(t, rec.Body)
		assert.NotEmpty(t, resp.ID)
		assert.Equal(t, "wave energy", resp.Topic)
		assert.Equal(t, string(domain.StatusIdle), resp.Status)
	})

	t.Run("honors an explicit id", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/api/items",
			`{"id": "item-1", "topic": "wave energy"}`)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "item-1", decodeItem(t, rec.Body).ID)
	})

	t.Run("rejects a duplicate id", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		body := `{"id": "item-1", "topic": "wave energy"}`
		require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/items", body).Code)
		assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/api/items", body).Code)
	})

	t.Run("rejects a missing topic", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/api/items", `{"id": "item-1"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/api/items", `{"topic": `)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects trailing garbage", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/api/items", `{"topic": "x"}{"topic": "y"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListItems(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/items", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	f.do(t, http.MethodPost, "/api/items", `{"id": "a", "topic": "first"}`)
	f.do(t, http.MethodPost, "/api/items", `{"id": "b", "topic": "second"}`)

	rec = f.do(t, http.MethodGet, "/api/items", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var items []ItemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID, "insertion order is preserved")
	assert.Equal(t, "b", items[1].ID)
}

func TestGetItem(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/items", `{"id": "item-1", "topic": "wave energy"}`)

	rec := f.do(t, http.MethodGet, "/api/items/item-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "item-1", decodeItem(t, rec.Body).ID)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/items/nope", "").Code)
}

func TestRetryItem(t *testing.T) {
	t.Parallel()

	t.Run("resets a failed item to queued", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.do(t, http.MethodPost, "/api/items", `{"id": "item-1", "topic": "wave energy"}`)

		ctx := context.Background()
		_, err := f.store.Update(ctx, "item-1", workstore.StatusPatch(domain.StatusRunning))
		require.NoError(t, err)
		status := domain.StatusError
		_, err = f.store.Update(ctx, "item-1", workstore.Patch{
			Status:    &status,
			ErrorInfo: &domain.ErrorInfo{Kind: domain.ErrorKindPipeline, Message: "boom"},
		})
		require.NoError(t, err)

		rec := f.do(t, http.MethodPost, "/api/items/item-1/retry", "")
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeItem(t, rec.Body)
		assert.Equal(t, string(domain.StatusQueued), resp.Status)
		assert.Equal(t, 1, resp.RetryCount)
		assert.Nil(t, resp.ErrorInfo, "reset clears the previous failure")
	})

	t.Run("conflicts for a running item", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.do(t, http.MethodPost, "/api/items", `{"id": "item-1", "topic": "wave energy"}`)
		_, err := f.store.Update(context.Background(), "item-1",
			workstore.StatusPatch(domain.StatusRunning))
		require.NoError(t, err)

		rec := f.do(t, http.MethodPost, "/api/items/item-1/retry", "")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("not found for an unknown item", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/api/items/nope/retry", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSubmitBatch(t *testing.T) {
	t.Parallel()

	t.Run("accepts a bounded batch", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.do(t, http.MethodPost, "/api/items", `{"id": "item-1", "topic": "wave energy"}`)

		rec := f.do(t, http.MethodPost, "/api/batches",
			`{"ids": ["item-1"], "mode": "bounded"}`)
		require.Equal(t, http.StatusAccepted, rec.Code)

		// Processing is asynchronous; the accepted item eventually lands in
		// a terminal state.
		require.Eventually(t, func() bool {
			item, err := f.store.Get("item-1")
			return err == nil && item.Status == domain.StatusCompleted
		}, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("rejects an unknown mode", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/api/batches",
			`{"ids": ["item-1"], "mode": "parallel"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects an empty id list", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/api/batches", `{"ids": [], "mode": "bounded"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects an empty body", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/api/batches", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCancelBatchIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/batches/cancel", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/batches/cancel", "").Code)
}

func TestGetState(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/items", `{"id": "item-1", "topic": "wave energy"}`)

	rec := f.do(t, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "item-1", snap.Items[0].ID)
}

func TestSetSelection(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/api/selection", `{"ids": ["a", "b"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"selected": 2}`, rec.Body.String())

	rec = f.do(t, http.MethodPut, "/api/selection", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
