// Package service contains the application services orchestrating the
// catalog store and the notification relay.
package service

import (
	"context"
	"log/slog"

	"github.com/openshelf/catalog/internal/domain/catalog"
	"github.com/openshelf/catalog/internal/domain/notification"
	"github.com/openshelf/catalog/internal/port/database"
	"github.com/openshelf/catalog/internal/port/notifier"
)

// CatalogService handles catalog CRUD and publishes exactly one change
// notification per committed mutation.
type CatalogService struct {
	store    database.Store
	notifier notifier.Publisher
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(store database.Store, n notifier.Publisher) *CatalogService {
	return &CatalogService{store: store, notifier: n}
}

// ListBooks returns all books.
func (s *CatalogService) ListBooks(ctx context.Context) ([]catalog.Book, error) {
	return s.store.ListBooks(ctx)
}

// GetBook returns a book by ID.
func (s *CatalogService) GetBook(ctx context.Context, id string) (*catalog.Book, error) {
	return s.store.GetBook(ctx, id)
}

// CreateBook validates and persists a new book, then notifies subscribers.
func (s *CatalogService) CreateBook(ctx context.Context, req catalog.CreateBookRequest) (*catalog.Book, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	b, err := s.store.CreateBook(ctx, req)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notification.NewBookCreated(b.ID, b.Title))
	return b, nil
}

// UpdateBook validates and persists changes to a book, then notifies subscribers.
func (s *CatalogService) UpdateBook(ctx context.Context, id string, req catalog.UpdateBookRequest) (*catalog.Book, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	b, err := s.store.UpdateBook(ctx, id, req)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notification.NewBookUpdated(b.ID, b.Title))
	return b, nil
}

// DeleteBook removes a book, then notifies subscribers.
func (s *CatalogService) DeleteBook(ctx context.Context, id string) error {
	b, err := s.store.DeleteBook(ctx, id)
	if err != nil {
		return err
	}

	s.notify(ctx, notification.NewBookDeleted(b.ID, b.Title))
	return nil
}

// ListAuthors returns all authors.
func (s *CatalogService) ListAuthors(ctx context.Context) ([]catalog.Author, error) {
	return s.store.ListAuthors(ctx)
}

// CreateAuthor persists a new author.
func (s *CatalogService) CreateAuthor(ctx context.Context, name string) (*catalog.Author, error) {
	return s.store.CreateAuthor(ctx, name)
}

// ListCategories returns all categories.
func (s *CatalogService) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	return s.store.ListCategories(ctx)
}

// ListPublishers returns all publishers.
func (s *CatalogService) ListPublishers(ctx context.Context) ([]catalog.Publisher, error) {
	return s.store.ListPublishers(ctx)
}

func (s *CatalogService) notify(ctx context.Context, env notification.Envelope) {
	slog.Debug("publishing notification", "event", env.EventID, "type", env.Type, "entity", env.EntityID)
	s.notifier.PublishNotification(ctx, env)
}
