package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

const envelopeVersion = 1

// ActorRef identifies who made the change.
type ActorRef struct {
	UserID string `json:"userId"`
	Role   string `json:"role,omitempty"`
}

// Envelope is the stable message body published for every curation event.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// Event is a change to curated content.
type Event struct {
	Type          enums.CurationEventType
	AggregateType enums.CurationAggregateType
	AggregateID   string
	Data          any
}

type actorKey struct{}

// WithActor stores the acting user on the context for events emitted downstream.
func WithActor(ctx context.Context, actor ActorRef) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the acting user, if any.
func ActorFromContext(ctx context.Context) *ActorRef {
	if ctx == nil {
		return nil
	}
	if actor, ok := ctx.Value(actorKey{}).(ActorRef); ok && actor.UserID != "" {
		return &actor
	}
	return nil
}
