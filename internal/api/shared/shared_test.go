package shared

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name string `json:"name"`
}

func jsonRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	t.Run("valid body", func(t *testing.T) {
		t.Parallel()

		var p payload
		require.NoError(t, DecodeJSON(jsonRequest(`{"name": "ok"}`), &p))
		assert.Equal(t, "ok", p.Name)
	})

	t.Run("empty body", func(t *testing.T) {
		t.Parallel()

		var p payload
		err := DecodeJSON(jsonRequest(""), &p)
		assert.ErrorIs(t, err, ErrEmptyBody)
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()

		var p payload
		assert.Error(t, DecodeJSON(jsonRequest(`{"name": `), &p))
	})

	t.Run("trailing garbage", func(t *testing.T) {
		t.Parallel()

		var p payload
		err := DecodeJSON(jsonRequest(`{"name": "ok"} extra`), &p)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "after JSON document")
	})
}

func TestRespondWithJSON(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	RespondWithJSON(rec, req, http.StatusCreated, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"key": "value"}`, rec.Body.String())
}

func TestRespondWithError(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := SetTraceID(req.Context())
	req = req.WithContext(ctx)

	RespondWithError(rec, req, http.StatusNotFound, "not here")

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not here", resp.Error)
	assert.Equal(t, GetTraceID(ctx), resp.TraceID)
}

func TestTraceIDContext(t *testing.T) {
	t.Parallel()

	assert.Empty(t, GetTraceID(context.Background()))

	ctx := SetTraceID(context.Background())
	id := GetTraceID(ctx)
	assert.NotEmpty(t, id)

	// Re-applying keeps the existing trace id.
	assert.Equal(t, id, GetTraceID(SetTraceID(ctx)))
}
