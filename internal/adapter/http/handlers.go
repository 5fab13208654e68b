package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/openshelf/catalog/internal/domain/catalog"
	"github.com/openshelf/catalog/internal/port/cache"
	"github.com/openshelf/catalog/internal/service"
)

// Handlers bundles the HTTP handler dependencies.
type Handlers struct {
	svc     *service.CatalogService
	cache   cache.Cache
	listTTL time.Duration
}

// NewHandlers constructs the handler set. cache may be nil to disable
// read-through caching.
func NewHandlers(svc *service.CatalogService, c cache.Cache, listTTL time.Duration) *Handlers {
	return &Handlers{svc: svc, cache: c, listTTL: listTTL}
}

// cached serves the response body for key from the cache when present,
// otherwise calls load, caches the encoded result and writes it.
func (h *Handlers) cached(w http.ResponseWriter, r *http.Request, key string, load func() (any, error)) {
	if h.cache != nil {
		if data, ok, err := h.cache.Get(r.Context(), key); err == nil && ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(data)
			return
		}
	}

	v, err := load()
	if err != nil {
		writeDomainError(w, err, "resource not found")
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if h.cache != nil {
		if err := h.cache.Set(r.Context(), key, data, h.listTTL); err != nil {
			slog.Debug("cache set failed", "key", key, "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ListBooks handles GET /api/v1/books.
func (h *Handlers) ListBooks(w http.ResponseWriter, r *http.Request) {
	h.cached(w, r, service.CacheKeyBookList, func() (any, error) {
		return h.svc.ListBooks(r.Context())
	})
}

// GetBook handles GET /api/v1/books/{id}.
func (h *Handlers) GetBook(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	h.cached(w, r, service.CacheKeyBook(id), func() (any, error) {
		return h.svc.GetBook(r.Context(), id)
	})
}

// CreateBook handles POST /api/v1/books.
func (h *Handlers) CreateBook(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[catalog.CreateBookRequest](w, r)
	if !ok {
		return
	}

	book, err := h.svc.CreateBook(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "book not found")
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

// UpdateBook handles PUT /api/v1/books/{id}.
func (h *Handlers) UpdateBook(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[catalog.UpdateBookRequest](w, r)
	if !ok {
		return
	}

	book, err := h.svc.UpdateBook(r.Context(), urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "book not found")
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// DeleteBook handles DELETE /api/v1/books/{id}.
func (h *Handlers) DeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteBook(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "book not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAuthors handles GET /api/v1/authors.
func (h *Handlers) ListAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := h.svc.ListAuthors(r.Context())
	if err != nil {
		writeDomainError(w, err, "authors not found")
		return
	}
	writeJSON(w, http.StatusOK, authors)
}

type createAuthorRequest struct {
	Name string `json:"name"`
}

// CreateAuthor handles POST /api/v1/authors.
func (h *Handlers) CreateAuthor(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[createAuthorRequest](w, r)
	if !ok {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	author, err := h.svc.CreateAuthor(r.Context(), req.Name)
	if err != nil {
		writeDomainError(w, err, "author not found")
		return
	}
	writeJSON(w, http.StatusCreated, author)
}

// ListCategories handles GET /api/v1/categories.
func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.ListCategories(r.Context())
	if err != nil {
		writeDomainError(w, err, "categories not found")
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// ListPublishers handles GET /api/v1/publishers.
func (h *Handlers) ListPublishers(w http.ResponseWriter, r *http.Request) {
	publishers, err := h.svc.ListPublishers(r.Context())
	if err != nil {
		writeDomainError(w, err, "publishers not found")
		return
	}
	writeJSON(w, http.StatusOK, publishers)
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
