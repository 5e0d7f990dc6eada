package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Decision event topics, prefixed with the configured topic prefix
const (
	TopicCaseFlagged      = "case.flagged"
	TopicImageSuspicious  = "image.suspicious"
	TopicFarmerRegistered = "farmer.registered"
)

// AllTopics lists every decision event topic
var AllTopics = []string{TopicCaseFlagged, TopicImageSuspicious, TopicFarmerRegistered}

// Event is the envelope published for each decision
type Event struct {
	Type       string          `json:"type"`
	FarmerID   string          `json:"efn"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// Publisher wraps a Queue with JSON event encoding and topic prefixing
type Publisher struct {
	queue  Queue
	prefix string
}

func NewPublisher(q Queue, prefix string) *Publisher {
	return &Publisher{queue: q, prefix: prefix}
}

// Topic returns the fully qualified topic name
func (p *Publisher) Topic(name string) string {
	if p.prefix == "" {
		return name
	}
	return p.prefix + "." + name
}

// Publish encodes payload and publishes it keyed by farmer id
func (p *Publisher) Publish(ctx context.Context, topic, farmerID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", topic, err)
	}

	evt, err := json.Marshal(Event{
		Type:       topic,
		FarmerID:   farmerID,
		OccurredAt: time.Now().UTC(),
		Payload:    body,
	})
	if err != nil {
		return fmt.Errorf("encode %s event: %w", topic, err)
	}

	return p.queue.Publish(ctx, p.Topic(topic), farmerID, evt)
}

// Subscribe decodes events on topic and passes them to fn
func (p *Publisher) Subscribe(ctx context.Context, topic string, fn func(context.Context, Event) error) error {
	return p.queue.Subscribe(ctx, p.Topic(topic), func(ctx context.Context, _ string, value []byte) error {
		var evt Event
		if err := json.Unmarshal(value, &evt); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		return fn(ctx, evt)
	})
}
