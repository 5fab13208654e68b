package catalog

import (
	"errors"
	"strings"
	"testing"

	"github.com/openshelf/catalog/internal/domain"
)

func TestCreateBookRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateBookRequest
		wantErr bool
	}{
		{"valid", CreateBookRequest{Title: "Dune", AuthorID: "a1", PriceCents: 999}, false},
		{"missing title", CreateBookRequest{AuthorID: "a1"}, true},
		{"missing author", CreateBookRequest{Title: "Dune"}, true},
		{"negative price", CreateBookRequest{Title: "Dune", AuthorID: "a1", PriceCents: -1}, true},
		{"title too long", CreateBookRequest{Title: strings.Repeat("x", 513), AuthorID: "a1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestUpdateBookRequestValidate(t *testing.T) {
	if err := (UpdateBookRequest{Title: "Dune", PriceCents: 100}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (UpdateBookRequest{}).Validate(); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
