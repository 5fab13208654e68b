package ristretto

import (
	"context"
	"testing"
	"time"
)

func TestSetGetDelete(t *testing.T) {
	c, err := New(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	ctx := context.Background()

	if err := c.Set(ctx, "books:list", []byte(`["Dune"]`), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	c.Wait()

	data, ok, err := c.Get(ctx, "books:list")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(data) != `["Dune"]` {
		t.Fatalf("unexpected data %s", data)
	}

	if err := c.Delete(ctx, "books:list"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "books:list"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestGetMiss(t *testing.T) {
	c, err := New(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, ok, _ := c.Get(context.Background(), "nope"); ok {
		t.Fatal("expected miss")
	}
}
