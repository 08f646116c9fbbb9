package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// messageWriter is the part of kafka.Writer the sink needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink forwards ticket events to a Kafka topic. Delivery is best effort.
type KafkaSink struct {
	writer messageWriter
	logger *zap.Logger
}

// NewKafkaSink builds a sink. With no brokers or no topic the sink is a no-op.
func NewKafkaSink(brokers []string, topic string, logger *zap.Logger) *KafkaSink {
	if len(brokers) == 0 || topic == "" {
		return &KafkaSink{logger: logger}
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warn("kafka: write ticket events", zap.Int("count", len(messages)), zap.Error(err))
			}
		},
	}
	logger.Info("kafka event sink enabled", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return &KafkaSink{writer: writer, logger: logger}
}

// Enabled reports whether events are actually forwarded.
func (s *KafkaSink) Enabled() bool {
	return s != nil && s.writer != nil
}

// Handle is an EventHandler. Messages are keyed by ticket so one ticket's events stay ordered.
func (s *KafkaSink) Handle(ctx context.Context, event Event) error {
	if !s.Enabled() {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	key := event.ChannelID
	if event.TicketID != 0 {
		key = strconv.FormatInt(event.TicketID, 10)
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
}

// Close flushes pending messages.
func (s *KafkaSink) Close() error {
	if !s.Enabled() {
		return nil
	}
	return s.writer.Close()
}
