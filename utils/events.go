package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// Event is the envelope of every message published on the domain topics.
type Event struct {
	Event string          `json:"event"`
	ID    uint            `json:"id"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EventMeta is carried in the message headers.
type EventMeta struct {
	EventID   string
	EventType string
}

func ExtractEventMeta(msg kafka.Message) EventMeta {
	eventID := HeaderValue(msg.Headers, "event_id")
	eventType := HeaderValue(msg.Headers, "event_type")
	if eventID == "" {
		eventID = string(msg.Key)
	}
	if eventType == "" {
		eventType = msg.Topic
	}
	return EventMeta{EventID: eventID, EventType: eventType}
}

// Publisher sends domain events without ever failing the caller. A nil
// producer makes every publish a no-op.
// Asynchronous events are sent by one goroutine in the order they were
// queued.
type Publisher struct {
	producer KafkaProducer
	log      logrus.FieldLogger
	timeout  time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan outgoingEvent
	done   chan struct{}
}

type outgoingEvent struct {
	ctx       context.Context
	topic     string
	eventType string
	id        uint
	data      interface{}
}

const publishQueueSize = 256

func NewPublisher(producer KafkaProducer, log logrus.FieldLogger) *Publisher {
	p := &Publisher{producer: producer, log: log, timeout: 5 * time.Second}
	if producer != nil {
		p.queue = make(chan outgoingEvent, publishQueueSize)
		p.done = make(chan struct{})
		go p.send()
	}
	return p
}

func (p *Publisher) Enabled() bool {
	return p != nil && p.producer != nil
}

// Publish encodes data into an Event keyed by id and sends it to topic.
func (p *Publisher) Publish(ctx context.Context, topic, eventType string, id uint, data interface{}) error {
	if !p.Enabled() {
		return nil
	}

	event := Event{Event: eventType, ID: id}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
		}
		event.Data = raw
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.producer.SendMessage(ctx, topic, []byte(fmt.Sprint(id)), value,
		kafka.Header{Key: "event_type", Value: []byte(eventType)},
		kafka.Header{Key: "event_id", Value: []byte(uuid.NewString())},
	)
}

// PublishAsync queues the event and only logs failures. The span in ctx is
// carried into the message headers; its cancellation is not, so an event
// queued by a finished request is still sent.
func (p *Publisher) PublishAsync(ctx context.Context, topic, eventType string, id uint, data interface{}) {
	if !p.Enabled() {
		return
	}
	event := outgoingEvent{
		ctx:       trace.ContextWithSpan(context.Background(), trace.SpanFromContext(ctx)),
		topic:     topic,
		eventType: eventType,
		id:        id,
		data:      data,
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.log.WithFields(logrus.Fields{"topic": topic, "event": eventType, "id": id}).Warn("publisher closed, dropping event")
		return
	}
	p.queue <- event
}

func (p *Publisher) send() {
	defer close(p.done)
	for e := range p.queue {
		if err := p.Publish(e.ctx, e.topic, e.eventType, e.id, e.data); err != nil {
			p.log.WithFields(logrus.Fields{
				"topic": e.topic,
				"event": e.eventType,
				"id":    e.id,
			}).WithError(err).Warn("failed to publish event")
		}
	}
}

// Close stops accepting events and waits until the queued ones were sent.
func (p *Publisher) Close() {
	if !p.Enabled() {
		return
	}
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	<-p.done
}

// DecodeEvent parses a message value into an Event. An event without a name
// is rejected.
func DecodeEvent(value []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(value, &event); err != nil {
		return event, fmt.Errorf("failed to decode event: %w", err)
	}
	if event.Event == "" {
		return event, fmt.Errorf("event without a name")
	}
	return event, nil
}
