package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
)

// Order event types
const (
	EventOrderCreated = "order.created"
	EventOrderUpdated = "order.updated"
	EventOrderDeleted = "order.deleted"
)

// OrderEvent announces a committed change to an order
type OrderEvent struct {
	Type        string    `json:"type"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Actor       string    `json:"actor,omitempty"`
	Fields      []string  `json:"fields,omitempty"`
	At          time.Time `json:"at"`
}

// EventPublisher hands order events to downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

// NopEventPublisher drops every event
type NopEventPublisher struct{}

func (NopEventPublisher) Publish(context.Context, OrderEvent) error { return nil }

// kafkaMessageWriter abstracts kafka.Writer for testability.
type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaEventPublisher writes order events keyed by order id so one order's events stay ordered
type KafkaEventPublisher struct {
	writer kafkaMessageWriter
}

// NewKafkaEventPublisher writes order events to topic on brokers
func NewKafkaEventPublisher(brokers []string, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
	}}
}

// NewKafkaEventPublisherWith is only for tests to inject a fake writer.
func NewKafkaEventPublisherWith(w kafkaMessageWriter) *KafkaEventPublisher {
	return &KafkaEventPublisher{writer: w}
}

// Publish writes one event keyed by order id
func (k *KafkaEventPublisher) Publish(ctx context.Context, event OrderEvent) error {
	b, err := json.Marshal(&event)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(event.OrderID), Value: b})
}

// Close flushes and closes the writer
func (k *KafkaEventPublisher) Close() error {
	if c, ok := k.writer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
