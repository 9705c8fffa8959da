// Package kafkasink publishes CaptureRecorded events to a Kafka topic,
// implementing the capture.EventSink extension point.
package kafkasink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/luminapay/capture"
)

// Publisher writes capture events keyed by payment id, so events for one
// payment stay ordered within a partition.
type Publisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewPublisher builds a Publisher for the given brokers and topic.
func NewPublisher(brokers []string, topic string, logger *zap.Logger) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		Logger:       kafka.LoggerFunc(func(msg string, args ...interface{}) { logger.Debug(fmt.Sprintf(msg, args...)) }),
		ErrorLogger:  kafka.LoggerFunc(func(msg string, args ...interface{}) { logger.Error(fmt.Sprintf(msg, args...)) }),
	}

	return &Publisher{writer: writer, logger: logger}
}

func (p *Publisher) PublishCaptureRecorded(ctx context.Context, event capture.CaptureRecorded) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal capture event: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.writer.WriteTimeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.PaymentID),
		Value: value,
	}
	if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
		return fmt.Errorf("write capture event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ capture.EventSink = (*Publisher)(nil)
