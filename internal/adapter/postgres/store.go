package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openshelf/catalog/internal/domain"
	"github.com/openshelf/catalog/internal/domain/catalog"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const bookColumns = `id, title, isbn, author_id, category_id, publisher_id, price_cents, created_at, updated_at`

// --- Books ---

func (s *Store) ListBooks(ctx context.Context) ([]catalog.Book, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+bookColumns+` FROM books ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []catalog.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (s *Store) GetBook(ctx context.Context, id string) (*catalog.Book, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = $1`, id)

	b, err := scanBook(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get book %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get book %s: %w", id, err)
	}
	return &b, nil
}

func (s *Store) CreateBook(ctx context.Context, req catalog.CreateBookRequest) (*catalog.Book, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO books (title, isbn, author_id, category_id, publisher_id, price_cents)
		 VALUES ($1, $2, $3, NULLIF($4, '')::uuid, NULLIF($5, '')::uuid, $6)
		 RETURNING `+bookColumns,
		req.Title, req.ISBN, req.AuthorID, req.CategoryID, req.PublisherID, req.PriceCents)

	b, err := scanBook(row)
	if err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}
	return &b, nil
}

func (s *Store) UpdateBook(ctx context.Context, id string, req catalog.UpdateBookRequest) (*catalog.Book, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE books
		 SET title = $2, category_id = NULLIF($3, '')::uuid, price_cents = $4, updated_at = now()
		 WHERE id = $1
		 RETURNING `+bookColumns,
		id, req.Title, req.CategoryID, req.PriceCents)

	b, err := scanBook(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("update book %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("update book %s: %w", id, err)
	}
	return &b, nil
}

func (s *Store) DeleteBook(ctx context.Context, id string) (*catalog.Book, error) {
	row := s.pool.QueryRow(ctx,
		`DELETE FROM books WHERE id = $1 RETURNING `+bookColumns, id)

	b, err := scanBook(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("delete book %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("delete book %s: %w", id, err)
	}
	return &b, nil
}

// --- Authors ---

func (s *Store) ListAuthors(ctx context.Context) ([]catalog.Author, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, created_at FROM authors ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	defer rows.Close()

	var authors []catalog.Author
	for rows.Next() {
		var a catalog.Author
		if err := rows.Scan(&a.ID, &a.Name, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan author: %w", err)
		}
		authors = append(authors, a)
	}
	return authors, rows.Err()
}

func (s *Store) CreateAuthor(ctx context.Context, name string) (*catalog.Author, error) {
	var a catalog.Author
	err := s.pool.QueryRow(ctx,
		`INSERT INTO authors (name) VALUES ($1) RETURNING id, name, created_at`,
		name).Scan(&a.ID, &a.Name, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create author: %w", err)
	}
	return &a, nil
}

// --- Categories ---

func (s *Store) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []catalog.Category
	for rows.Next() {
		var c catalog.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// --- Publishers ---

func (s *Store) ListPublishers(ctx context.Context) ([]catalog.Publisher, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM publishers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list publishers: %w", err)
	}
	defer rows.Close()

	var pubs []catalog.Publisher
	for rows.Next() {
		var p catalog.Publisher
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan publisher: %w", err)
		}
		pubs = append(pubs, p)
	}
	return pubs, rows.Err()
}

// scanBook scans a book row from either a pgx.Row or pgx.Rows.
func scanBook(row pgx.Row) (catalog.Book, error) {
	var b catalog.Book
	var categoryID, publisherID sql.NullString

	err := row.Scan(&b.ID, &b.Title, &b.ISBN, &b.AuthorID, &categoryID, &publisherID,
		&b.PriceCents, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return catalog.Book{}, err
	}

	b.CategoryID = categoryID.String
	b.PublisherID = publisherID.String
	return b, nil
}
