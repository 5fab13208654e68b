package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/openshelf/catalog/internal/broadcast"
	"github.com/openshelf/catalog/internal/domain/notification"
)

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, strings.Replace(url, "http", "ws", 1), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return c
}

func readEnvelope(t *testing.T, c *websocket.Conn) notification.Envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, data, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	env, err := notification.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env
}

func TestStreamDeliversPublishedEnvelopes(t *testing.T) {
	b := broadcast.New(16)
	srv := httptest.NewServer(NewHandler(b, 0))
	defer srv.Close()

	c := dial(t, srv.URL)
	defer c.Close(websocket.StatusNormalClosure, "")

	// Wait for the subscription to register before publishing.
	waitForSubscribers(t, b, 1)

	env := notification.NewBookCreated("b1", "Dune")
	b.Publish(env)

	got := readEnvelope(t, c)
	if got.EventID != env.EventID {
		t.Fatalf("expected %s, got %s", env.EventID, got.EventID)
	}
	if got.Type != notification.TypeBookCreated {
		t.Fatalf("expected book.created discriminator, got %s", got.Type)
	}
}

func TestStreamOrderPreserved(t *testing.T) {
	b := broadcast.New(16)
	srv := httptest.NewServer(NewHandler(b, 0))
	defer srv.Close()

	c := dial(t, srv.URL)
	defer c.Close(websocket.StatusNormalClosure, "")
	waitForSubscribers(t, b, 1)

	var want []string
	for i := 0; i < 5; i++ {
		env := notification.NewBookUpdated("b1", "t")
		want = append(want, env.EventID)
		b.Publish(env)
	}

	for i, id := range want {
		got := readEnvelope(t, c)
		if got.EventID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, got.EventID)
		}
	}
}

func TestStreamEmitsPings(t *testing.T) {
	b := broadcast.New(16)
	srv := httptest.NewServer(NewHandler(b, 20*time.Millisecond))
	defer srv.Close()

	c := dial(t, srv.URL)
	defer c.Close(websocket.StatusNormalClosure, "")

	got := readEnvelope(t, c)
	if got.Type != notification.TypePing {
		t.Fatalf("expected ping, got %s", got.Type)
	}
	if got.EntityID != "" {
		t.Fatalf("ping must carry no entity, got %s", got.EntityID)
	}
}

func TestDisconnectUnsubscribes(t *testing.T) {
	b := broadcast.New(16)
	srv := httptest.NewServer(NewHandler(b, 0))
	defer srv.Close()

	c := dial(t, srv.URL)
	waitForSubscribers(t, b, 1)

	c.Close(websocket.StatusNormalClosure, "")
	waitForSubscribers(t, b, 0)

	// Publishing after disconnect must not fail.
	b.Publish(notification.NewBookDeleted("b1", "Dune"))
}

func waitForSubscribers(t *testing.T, b *broadcast.Broadcaster, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if b.SubscriberCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d subscribers, have %d", want, b.SubscriberCount())
}
