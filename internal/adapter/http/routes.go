package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router. stream is
// the websocket notification endpoint and may be nil when streaming is
// disabled.
func MountRoutes(r chi.Router, h *Handlers, stream http.Handler) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Books
		r.Get("/books", h.ListBooks)
		r.Post("/books", h.CreateBook)
		r.Get("/books/{id}", h.GetBook)
		r.Put("/books/{id}", h.UpdateBook)
		r.Delete("/books/{id}", h.DeleteBook)

		// Authors
		r.Get("/authors", h.ListAuthors)
		r.Post("/authors", h.CreateAuthor)

		// Reference data
		r.Get("/categories", h.ListCategories)
		r.Get("/publishers", h.ListPublishers)

		// Live notification stream
		if stream != nil {
			r.Handle("/stream", stream)
		}
	})
}
