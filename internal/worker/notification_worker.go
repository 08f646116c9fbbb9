package worker

import (
	"github.com/spec-kit/ticket-bot/internal/service"
)

// StartNotificationWorker subscribes the event log and sink to ticket lifecycle events.
// It must run before the gateway starts taking interactions.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
