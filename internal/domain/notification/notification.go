// Package notification defines the immutable change-notification envelope
// broadcast to connected clients whenever catalog state changes.
package notification

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type identifies the kind of change a notification describes.
// The set is closed: every routing boundary switches exhaustively over it
// and treats anything else as a decode error.
type Type string

const (
	TypeBookCreated Type = "book.created"
	TypeBookUpdated Type = "book.updated"
	TypeBookDeleted Type = "book.deleted"

	// TypePing is a connection-liveness signal. It carries no entity
	// and no payload and must never trigger cache invalidation.
	TypePing Type = "ping"
)

// Envelope is a single immutable change notification. It is produced once by
// the originating instance and never mutated afterwards; EventID is globally
// unique per logical change so consumers can treat re-delivery as a no-op.
type Envelope struct {
	EventID   string          `json:"event_id"`
	EntityID  string          `json:"entity_id,omitempty"`
	Type      Type            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// BookPayload carries the minimal display fields for a book change, enough
// for a client to update a list row without an immediate re-fetch.
type BookPayload struct {
	Title string `json:"title"`
}

// NewBookCreated builds a book.created envelope for the given book.
func NewBookCreated(entityID, title string) Envelope {
	return newBookEnvelope(TypeBookCreated, entityID, title)
}

// NewBookUpdated builds a book.updated envelope for the given book.
func NewBookUpdated(entityID, title string) Envelope {
	return newBookEnvelope(TypeBookUpdated, entityID, title)
}

// NewBookDeleted builds a book.deleted envelope for the given book.
func NewBookDeleted(entityID, title string) Envelope {
	return newBookEnvelope(TypeBookDeleted, entityID, title)
}

// NewPing builds a liveness envelope with no entity and no payload.
func NewPing() Envelope {
	return Envelope{
		EventID:   uuid.New().String(),
		Type:      TypePing,
		Timestamp: time.Now().UTC(),
	}
}

func newBookEnvelope(t Type, entityID, title string) Envelope {
	payload, _ := json.Marshal(BookPayload{Title: title})
	return Envelope{
		EventID:   uuid.New().String(),
		EntityID:  entityID,
		Type:      t,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// Encode serializes the envelope for the wire.
func Encode(env Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode notification: %w", err)
	}
	return data, nil
}

// Decode parses a wire message into an Envelope and rejects envelopes whose
// type is outside the closed set, so a malformed or newer message is dropped
// at the boundary instead of reaching dispatch half-parsed.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode notification: %w", err)
	}
	if env.EventID == "" {
		return Envelope{}, fmt.Errorf("decode notification: missing event_id")
	}

	switch env.Type {
	case TypeBookCreated, TypeBookUpdated, TypeBookDeleted, TypePing:
		return env, nil
	default:
		return Envelope{}, fmt.Errorf("decode notification: unknown type %q", env.Type)
	}
}

// DecodeBookPayload parses the variant payload of a book envelope.
func DecodeBookPayload(env Envelope) (BookPayload, error) {
	switch env.Type {
	case TypeBookCreated, TypeBookUpdated, TypeBookDeleted:
	case TypePing:
		return BookPayload{}, fmt.Errorf("notification %s carries no book payload", env.Type)
	default:
		return BookPayload{}, fmt.Errorf("unknown notification type %q", env.Type)
	}

	var p BookPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return BookPayload{}, fmt.Errorf("decode book payload: %w", err)
	}
	return p, nil
}
