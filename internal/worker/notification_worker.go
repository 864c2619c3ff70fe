package worker

import (
	"github.com/spec-kit/ticket-intake/internal/events"
	"github.com/spec-kit/ticket-intake/internal/service"
)

// StartEventSubscribers registers the event consumers on the dispatcher. The
// Kafka publisher is optional.
func StartEventSubscribers(dispatcher events.Dispatcher, notifications *service.NotificationService, kafka *events.KafkaPublisher) {
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	if kafka != nil && dispatcher != nil {
		kafka.Register(dispatcher)
	}
}
