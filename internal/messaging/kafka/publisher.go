// Package kafka publishes committed ticket purchases to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cimillas/eventapi/internal/app"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	DefaultTopic = "ticket.purchased"

	batchTimeout = 10 * time.Millisecond
	writeTimeout = 5 * time.Second
)

// MessageWriter is the subset of *kafkago.Writer used here.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type Publisher struct {
	writer MessageWriter
	logger *zap.Logger
}

// NewWriter builds a writer that balances by key so one event's purchases stay ordered.
func NewWriter(brokers []string, topic string) *kafkago.Writer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		BatchTimeout:           batchTimeout,
		WriteTimeout:           writeTimeout,
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

func NewPublisher(writer MessageWriter, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{writer: writer, logger: logger}
}

func (p *Publisher) PublishTicketPurchased(ctx context.Context, msg app.TicketPurchased) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode ticket purchased: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(msg.EventID),
		Value: payload,
		Time:  msg.PurchasedAt,
		Headers: []kafkago.Header{
			{Key: "type", Value: []byte("ticket.purchased")},
		},
	})
	if err != nil {
		return fmt.Errorf("write ticket purchased: %w", err)
	}
	p.logger.Debug("published ticket purchased",
		zap.String("ticket_id", msg.TicketID),
		zap.String("event_id", msg.EventID),
	)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
