package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ContentEventType is the event type (and subject suffix) of content changes.
const ContentEventType = "content"

// Content actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ContentEvent records one mutation of a game, genre, news item or review.
type ContentEvent struct {
	Kind       string `json:"kind"`
	Action     string `json:"action"`
	DocumentID string `json:"document_id"`
	Actor      string `json:"actor"`
}

// NewContentEnvelope wraps ev for publishing.
func NewContentEnvelope(source string, ev ContentEvent) (*Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode content event: %w", err)
	}
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: ContentEventType,
		Payload:   payload,
	}, nil
}

// DecodeContent extracts the ContentEvent carried by env.
func DecodeContent(env *Envelope) (ContentEvent, error) {
	var ev ContentEvent
	if env.EventType != ContentEventType {
		return ev, fmt.Errorf("unexpected event type %q", env.EventType)
	}
	if err := json.Unmarshal(env.Payload, &ev); err != nil {
		return ev, fmt.Errorf("decode content event: %w", err)
	}
	return ev, nil
}

// PublishContent builds and publishes a content event on bus.
func PublishContent(ctx context.Context, bus EventBus, source string, ev ContentEvent) error {
	env, err := NewContentEnvelope(source, ev)
	if err != nil {
		return err
	}
	return bus.Publish(ctx, env)
}
