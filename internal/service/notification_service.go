package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/observability"
)

// NotificationService fans lifecycle events out to the log and the optional Kafka sink.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	sink       *events.KafkaSink
	metrics    *observability.Metrics
}

// NewNotificationService creates the service. sink and metrics may be nil.
func NewNotificationService(
	dispatcher events.Dispatcher,
	logger *zap.Logger,
	sink *events.KafkaSink,
	metrics *observability.Metrics,
) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     orNop(logger),
		sink:       sink,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		n.dispatcher.Subscribe(eventType, n.logEvent)
		if n.sink.Enabled() {
			n.dispatcher.Subscribe(eventType, n.sink.Handle)
		}
	}
}

func (n *NotificationService) logEvent(_ context.Context, event events.Event) error {
	n.metrics.RecordEvent(string(event.Type))
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.Int64("ticket_id", event.TicketID),
		zap.String("channel_id", event.ChannelID),
		zap.String("actor_id", event.ActorID),
		zap.Any("payload", event.Payload))
	return nil
}
