package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openshelf/catalog/internal/broadcast"
	"github.com/openshelf/catalog/internal/domain/notification"
	"github.com/openshelf/catalog/internal/port/broker"
	"github.com/openshelf/catalog/internal/resilience"
)

// fakeBroker is an in-memory broker.Broker that can be taken offline.
type fakeBroker struct {
	connected bool
	failNext  error
	published [][]byte
	handler   broker.Handler
}

func (f *fakeBroker) Publish(subject string, data []byte) error {
	if f.failNext != nil {
		err := f.failNext
		return err
	}
	f.published = append(f.published, data)
	// Echo back to the subscriber, as a real broker does for self-publish.
	if f.handler != nil {
		f.handler(subject, data)
	}
	return nil
}

func (f *fakeBroker) Subscribe(_ string, h broker.Handler) (func(), error) {
	f.handler = h
	return func() { f.handler = nil }, nil
}

func (f *fakeBroker) IsConnected() bool { return f.connected }
func (f *fakeBroker) Close() error      { return nil }

func newRelay(t *testing.T, fb *fakeBroker) (*Relay, *broadcast.Broadcaster) {
	t.Helper()
	local := broadcast.New(16)
	var b broker.Broker
	if fb != nil {
		b = fb
	}
	r := New(b, local, resilience.NewBreaker(3, time.Second), nil)
	return r, local
}

func receive(t *testing.T, sub *broadcast.Subscription) notification.Envelope {
	t.Helper()
	select {
	case env := <-sub.C():
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for envelope")
		return notification.Envelope{}
	}
}

func TestPublishGoesThroughBrokerEcho(t *testing.T) {
	fb := &fakeBroker{connected: true}
	r, local := newRelay(t, fb)

	cancel, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer cancel()

	sub := local.Subscribe()
	defer local.Unsubscribe(sub.ID())

	env := notification.NewBookCreated("b1", "Dune")
	r.PublishNotification(context.Background(), env)

	if len(fb.published) != 1 {
		t.Fatalf("expected 1 broker publish, got %d", len(fb.published))
	}

	// Local delivery happens via the broker echo, not a second direct path.
	got := receive(t, sub)
	if got.EventID != env.EventID {
		t.Fatalf("expected %s, got %s", env.EventID, got.EventID)
	}

	select {
	case extra := <-sub.C():
		t.Fatalf("unexpected duplicate delivery %s", extra.EventID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFallbackWhenDisconnected(t *testing.T) {
	fb := &fakeBroker{connected: false}
	r, local := newRelay(t, fb)

	sub := local.Subscribe()
	defer local.Unsubscribe(sub.ID())

	env := notification.NewBookUpdated("b1", "Dune")
	r.PublishNotification(context.Background(), env)

	if len(fb.published) != 0 {
		t.Fatalf("expected no broker publish while disconnected, got %d", len(fb.published))
	}
	got := receive(t, sub)
	if got.EventID != env.EventID {
		t.Fatalf("expected %s, got %s", env.EventID, got.EventID)
	}
}

func TestFallbackWhenPublishFails(t *testing.T) {
	fb := &fakeBroker{connected: true, failNext: errors.New("timeout")}
	r, local := newRelay(t, fb)

	sub := local.Subscribe()
	defer local.Unsubscribe(sub.ID())

	env := notification.NewBookDeleted("b1", "Dune")
	r.PublishNotification(context.Background(), env)

	got := receive(t, sub)
	if got.EventID != env.EventID {
		t.Fatalf("expected %s, got %s", env.EventID, got.EventID)
	}
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	fb := &fakeBroker{connected: true, failNext: errors.New("timeout")}
	local := broadcast.New(16)
	breaker := resilience.NewBreaker(2, time.Minute)
	r := New(fb, local, breaker, nil)

	sub := local.Subscribe()
	defer local.Unsubscribe(sub.ID())

	for i := 0; i < 3; i++ {
		r.PublishNotification(context.Background(), notification.NewBookCreated("b1", "x"))
		receive(t, sub)
	}

	if breaker.State() != resilience.StateOpen {
		t.Fatalf("expected open breaker, got %s", breaker.State())
	}

	// With the breaker open the broker is not even attempted.
	fb.failNext = nil
	r.PublishNotification(context.Background(), notification.NewBookCreated("b2", "y"))
	if len(fb.published) != 0 {
		t.Fatalf("expected no broker publish with open breaker, got %d", len(fb.published))
	}
	receive(t, sub)
}

func TestNilBrokerIsLocalOnly(t *testing.T) {
	r, local := newRelay(t, nil)

	cancel, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer cancel()

	sub := local.Subscribe()
	defer local.Unsubscribe(sub.ID())

	env := notification.NewBookCreated("b1", "Dune")
	r.PublishNotification(context.Background(), env)

	got := receive(t, sub)
	if got.EventID != env.EventID {
		t.Fatalf("expected %s, got %s", env.EventID, got.EventID)
	}
}

func TestInboundMalformedMessageDropped(t *testing.T) {
	fb := &fakeBroker{connected: true}
	r, local := newRelay(t, fb)

	cancel, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer cancel()

	sub := local.Subscribe()
	defer local.Unsubscribe(sub.ID())

	fb.handler(broker.SubjectNotifications, []byte("{garbage"))

	select {
	case env := <-sub.C():
		t.Fatalf("malformed message must not be delivered, got %s", env.EventID)
	case <-time.After(50 * time.Millisecond):
	}

	// The subscription keeps working after a bad message.
	good, _ := notification.Encode(notification.NewBookCreated("b1", "Dune"))
	fb.handler(broker.SubjectNotifications, good)
	receive(t, sub)
}
