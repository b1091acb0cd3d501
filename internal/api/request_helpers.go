package api

import (
	"context"
	"net/http"
)

// contextWithoutCancel detaches the request's values (trace ID, logger)
// from its cancellation, for work that outlives the request.
func contextWithoutCancel(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
