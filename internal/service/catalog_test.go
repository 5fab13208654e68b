package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openshelf/catalog/internal/broadcast"
	"github.com/openshelf/catalog/internal/domain"
	"github.com/openshelf/catalog/internal/domain/catalog"
	"github.com/openshelf/catalog/internal/domain/notification"
)

// fakeStore is an in-memory database.Store for books.
type fakeStore struct {
	books   map[string]catalog.Book
	nextID  int
	failAll bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{books: make(map[string]catalog.Book)}
}

var errStore = errors.New("store down")

func (f *fakeStore) ListBooks(context.Context) ([]catalog.Book, error) {
	if f.failAll {
		return nil, errStore
	}
	out := make([]catalog.Book, 0, len(f.books))
	for _, b := range f.books {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeStore) GetBook(_ context.Context, id string) (*catalog.Book, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

func (f *fakeStore) CreateBook(_ context.Context, req catalog.CreateBookRequest) (*catalog.Book, error) {
	if f.failAll {
		return nil, errStore
	}
	f.nextID++
	b := catalog.Book{
		ID:       string(rune('a' + f.nextID)),
		Title:    req.Title,
		AuthorID: req.AuthorID,
	}
	f.books[b.ID] = b
	return &b, nil
}

func (f *fakeStore) UpdateBook(_ context.Context, id string, req catalog.UpdateBookRequest) (*catalog.Book, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	b.Title = req.Title
	f.books[id] = b
	return &b, nil
}

func (f *fakeStore) DeleteBook(_ context.Context, id string) (*catalog.Book, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(f.books, id)
	return &b, nil
}

func (f *fakeStore) ListAuthors(context.Context) ([]catalog.Author, error) { return nil, nil }
func (f *fakeStore) CreateAuthor(context.Context, string) (*catalog.Author, error) {
	return &catalog.Author{}, nil
}
func (f *fakeStore) ListCategories(context.Context) ([]catalog.Category, error)  { return nil, nil }
func (f *fakeStore) ListPublishers(context.Context) ([]catalog.Publisher, error) { return nil, nil }

// fakeNotifier records every published envelope.
type fakeNotifier struct {
	published []notification.Envelope
}

func (f *fakeNotifier) PublishNotification(_ context.Context, env notification.Envelope) {
	f.published = append(f.published, env)
}

func TestCreateBookPublishesExactlyOneNotification(t *testing.T) {
	n := &fakeNotifier{}
	svc := NewCatalogService(newFakeStore(), n)

	b, err := svc.CreateBook(context.Background(), catalog.CreateBookRequest{Title: "Dune", AuthorID: "a1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if len(n.published) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(n.published))
	}
	env := n.published[0]
	if env.Type != notification.TypeBookCreated {
		t.Fatalf("expected book.created, got %s", env.Type)
	}
	if env.EntityID != b.ID {
		t.Fatalf("expected entity %s, got %s", b.ID, env.EntityID)
	}
}

func TestValidationFailureDoesNotPublish(t *testing.T) {
	n := &fakeNotifier{}
	svc := NewCatalogService(newFakeStore(), n)

	_, err := svc.CreateBook(context.Background(), catalog.CreateBookRequest{})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(n.published) != 0 {
		t.Fatalf("expected no notifications, got %d", len(n.published))
	}
}

func TestStoreFailureDoesNotPublish(t *testing.T) {
	n := &fakeNotifier{}
	store := newFakeStore()
	store.failAll = true
	svc := NewCatalogService(store, n)

	_, err := svc.CreateBook(context.Background(), catalog.CreateBookRequest{Title: "Dune", AuthorID: "a1"})
	if !errors.Is(err, errStore) {
		t.Fatalf("expected store error, got %v", err)
	}
	if len(n.published) != 0 {
		t.Fatalf("expected no notifications, got %d", len(n.published))
	}
}

func TestUpdateAndDeletePublish(t *testing.T) {
	n := &fakeNotifier{}
	svc := NewCatalogService(newFakeStore(), n)

	b, err := svc.CreateBook(context.Background(), catalog.CreateBookRequest{Title: "Dune", AuthorID: "a1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.UpdateBook(context.Background(), b.ID, catalog.UpdateBookRequest{Title: "Dune (rev)"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := svc.DeleteBook(context.Background(), b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if len(n.published) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(n.published))
	}
	if n.published[1].Type != notification.TypeBookUpdated {
		t.Fatalf("expected book.updated, got %s", n.published[1].Type)
	}
	if n.published[2].Type != notification.TypeBookDeleted {
		t.Fatalf("expected book.deleted, got %s", n.published[2].Type)
	}
}

// fakeCache records deletes for the invalidator test.
type fakeCache struct {
	deleted chan string
}

func (f *fakeCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (f *fakeCache) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}
func (f *fakeCache) Delete(_ context.Context, key string) error {
	f.deleted <- key
	return nil
}

func TestCacheInvalidatorDropsAffectedKeys(t *testing.T) {
	b := broadcast.New(16)
	fc := &fakeCache{deleted: make(chan string, 8)}

	stop := StartCacheInvalidator(context.Background(), b, fc)
	defer stop()

	b.Publish(notification.NewBookUpdated("b1", "Dune"))

	want := map[string]bool{CacheKeyBookList: false, CacheKeyBook("b1"): false}
	for i := 0; i < 2; i++ {
		select {
		case key := <-fc.deleted:
			if _, ok := want[key]; !ok {
				t.Fatalf("unexpected delete of %s", key)
			}
			want[key] = true
		case <-time.After(time.Second):
			t.Fatalf("timed out, deletes so far: %v", want)
		}
	}
}

func TestCacheInvalidatorIgnoresPing(t *testing.T) {
	b := broadcast.New(16)
	fc := &fakeCache{deleted: make(chan string, 8)}

	stop := StartCacheInvalidator(context.Background(), b, fc)
	defer stop()

	b.Publish(notification.NewPing())

	select {
	case key := <-fc.deleted:
		t.Fatalf("ping must not invalidate, deleted %s", key)
	case <-time.After(50 * time.Millisecond):
	}
}
