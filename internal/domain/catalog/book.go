// Package catalog defines the core catalog entities: books, authors,
// categories and publishers.
package catalog

import (
	"fmt"
	"time"

	"github.com/openshelf/catalog/internal/domain"
)

// Book is a single catalog item.
type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	ISBN        string    `json:"isbn,omitempty"`
	AuthorID    string    `json:"author_id"`
	CategoryID  string    `json:"category_id,omitempty"`
	PublisherID string    `json:"publisher_id,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateBookRequest carries the fields a client supplies when creating a book.
type CreateBookRequest struct {
	Title       string `json:"title"`
	ISBN        string `json:"isbn,omitempty"`
	AuthorID    string `json:"author_id"`
	CategoryID  string `json:"category_id,omitempty"`
	PublisherID string `json:"publisher_id,omitempty"`
	PriceCents  int64  `json:"price_cents"`
}

// UpdateBookRequest carries the mutable fields of a book.
type UpdateBookRequest struct {
	Title      string `json:"title"`
	CategoryID string `json:"category_id,omitempty"`
	PriceCents int64  `json:"price_cents"`
}

// Validate checks a create request against domain rules.
func (r CreateBookRequest) Validate() error {
	if r.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if len(r.Title) > 512 {
		return fmt.Errorf("%w: title too long (max 512 chars)", domain.ErrValidation)
	}
	if r.AuthorID == "" {
		return fmt.Errorf("%w: author_id is required", domain.ErrValidation)
	}
	if r.PriceCents < 0 {
		return fmt.Errorf("%w: price_cents must not be negative", domain.ErrValidation)
	}
	return nil
}

// Validate checks an update request against domain rules.
func (r UpdateBookRequest) Validate() error {
	if r.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if r.PriceCents < 0 {
		return fmt.Errorf("%w: price_cents must not be negative", domain.ErrValidation)
	}
	return nil
}
