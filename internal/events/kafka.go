package events

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	// Request handlers write one event at a time; do not wait for a batch.
	kafkaBatchTimeout = 10 * time.Millisecond
	kafkaWriteTimeout = 5 * time.Second
)

// KafkaPublisher writes application events to Kafka. Every event goes to
// the default topic unless routes names another one for its type.
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
	routes map[string]string
}

func NewKafkaPublisher(brokers []string, topic string, routes map[string]string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka publisher requires at least one broker")
	}
	if topic == "" {
		return nil, errors.New("kafka publisher requires a topic")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: kafkaBatchTimeout,
			WriteTimeout: kafkaWriteTimeout,
		},
		topic:  topic,
		routes: routes,
	}, nil
}

// TopicFor returns the topic an event type is written to.
func (p *KafkaPublisher) TopicFor(eventType string) string {
	if t := p.routes[eventType]; t != "" {
		return t
	}
	return p.topic
}

// Publish writes one message keyed by partitionKey, so events sharing a key
// land on the same partition in order.
func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic:   p.TopicFor(eventType),
		Key:     []byte(partitionKey),
		Value:   payload,
		Time:    time.Now().UTC(),
		Headers: []kafka.Header{{Key: "event-type", Value: []byte(eventType)}},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
