package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/google/uuid"
)

const publishTimeout = 5 * time.Second

// Publisher emits curation events. Publishing is best effort and never fails the
// write that triggered it.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Sender delivers one message to a topic.
type Sender interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
}

type topicPublisher struct {
	sender Sender
	topic  string
	logg   *logger.Logger
	now    func() time.Time
}

// NewPublisher returns a Pub/Sub backed publisher, or a no-op one when sender or
// topic are missing.
func NewPublisher(sender Sender, topic string, logg *logger.Logger) Publisher {
	if sender == nil || strings.TrimSpace(topic) == "" {
		return Noop{}
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &topicPublisher{
		sender: sender,
		topic:  strings.TrimSpace(topic),
		logg:   logg,
		now:    time.Now,
	}
}

func (p *topicPublisher) Publish(ctx context.Context, event Event) {
	envelope, err := p.envelope(ctx, event)
	fields := map[string]any{
		"event_type":     event.Type.String(),
		"aggregate_type": event.AggregateType.String(),
		"aggregate_id":   event.AggregateID,
	}
	if err != nil {
		p.logg.Error(p.logg.WithFields(ctx, fields), "encode curation event", err)
		return
	}
	fields["event_id"] = envelope.EventID
	logCtx := p.logg.WithFields(ctx, fields)

	body, err := json.Marshal(envelope)
	if err != nil {
		p.logg.Error(logCtx, "encode curation event", err)
		return
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	attrs := map[string]string{
		"event_type":     event.Type.String(),
		"aggregate_type": event.AggregateType.String(),
		"aggregate_id":   event.AggregateID,
	}
	if _, err := p.sender.Publish(sendCtx, p.topic, body, attrs); err != nil {
		p.logg.Error(logCtx, "publish curation event", err)
		return
	}
	p.logg.Info(logCtx, "curation event published")
}

func (p *topicPublisher) envelope(ctx context.Context, event Event) (Envelope, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Version:    envelopeVersion,
		EventID:    uuid.NewString(),
		OccurredAt: p.now().UTC(),
		Actor:      ActorFromContext(ctx),
		Data:       data,
	}, nil
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) {}

// Recorder keeps published events in memory. Used by tests across packages.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) {
	r.Events = append(r.Events, event)
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []string {
	out := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.Type.String())
	}
	return out
}
