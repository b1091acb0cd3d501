package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/inkwell-ai/inkwell/internal/api"
	apiMiddleware "github.com/inkwell-ai/inkwell/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	itemHandler := api.NewItemHandler(app.store, app.logger)
	batchHandler := api.NewBatchHandler(app.orch, app.logger)
	eventsHandler := api.NewEventsHandler(app.emitter, app.logger)

	r.Route("/api", func(r chi.Router) {
		// Work item management
		r.Post("/items", itemHandler.CreateItem)
		r.Get("/items", itemHandler.ListItems)
		r.Get("/items/{id}", itemHandler.GetItem)
		r.Post("/items/{id}/retry", itemHandler.RetryItem)

		// Batch orchestration
		r.Post("/batches", batchHandler.SubmitBatch)
		r.Post("/batches/cancel", batchHandler.CancelBatch)
		r.Get("/state", batchHandler.GetState)
		r.Put("/selection", batchHandler.SetSelection)

		// Change feed for the presentation layer
		r.Get("/events", eventsHandler.Stream)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
