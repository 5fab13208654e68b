// Package database defines the persistence port (interface).
package database

import (
	"context"

	"github.com/openshelf/catalog/internal/domain/catalog"
)

// Store is the port interface for catalog persistence.
type Store interface {
	// Books
	ListBooks(ctx context.Context) ([]catalog.Book, error)
	GetBook(ctx context.Context, id string) (*catalog.Book, error)
	CreateBook(ctx context.Context, req catalog.CreateBookRequest) (*catalog.Book, error)
	UpdateBook(ctx context.Context, id string, req catalog.UpdateBookRequest) (*catalog.Book, error)
	DeleteBook(ctx context.Context, id string) (*catalog.Book, error)

	// Supporting entities
	ListAuthors(ctx context.Context) ([]catalog.Author, error)
	CreateAuthor(ctx context.Context, name string) (*catalog.Author, error)
	ListCategories(ctx context.Context) ([]catalog.Category, error)
	ListPublishers(ctx context.Context) ([]catalog.Publisher, error)
}
