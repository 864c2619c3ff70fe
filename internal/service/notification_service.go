package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-intake/internal/config"
	"github.com/spec-kit/ticket-intake/internal/events"
)

// NotificationService handles emitting notifications for domain events.
// Events are logged inline; webhook calls run on a background queue.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	client     *resty.Client
	queue      *events.Queue
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetHeader("Content-Type", "application/json")
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		client:     client,
	}
	if strings.TrimSpace(cfg.WebhookURL) != "" {
		n.queue = events.NewQueue("webhook", events.DefaultQueueSize, n.sendWebhook, logger)
	}
	return n
}

// Close waits for pending webhook deliveries.
func (n *NotificationService) Close() {
	if n == nil || n.queue == nil {
		return
	}
	n.queue.Close()
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketClassified, n.handleTicketClassified)
	n.dispatcher.Subscribe(events.EventTicketUpdated, n.handleTicketUpdated)
	n.dispatcher.Subscribe(events.EventTicketDeleted, n.handleTicketDeleted)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return n.enqueueWebhook(ctx, event)
}

func (n *NotificationService) handleTicketClassified(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketClassified", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return n.enqueueWebhook(ctx, event)
}

func (n *NotificationService) handleTicketUpdated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketUpdated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return n.enqueueWebhook(ctx, event)
}

func (n *NotificationService) handleTicketDeleted(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketDeleted", zap.String("ticket_id", event.TicketID))
	return n.enqueueWebhook(ctx, event)
}

func (n *NotificationService) enqueueWebhook(ctx context.Context, event events.Event) error {
	if n.queue == nil {
		return nil
	}
	return n.queue.Handle(ctx, event)
}

func (n *NotificationService) sendWebhook(ctx context.Context, event events.Event) error {
	url := strings.TrimSpace(n.cfg.WebhookURL)
	if url == "" {
		return nil
	}
	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("X-Event-Type", string(event.Type)).
		SetBody(event).
		Post(url)
	if err != nil {
		return fmt.Errorf("webhook %s: %w", event.Type, err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook %s: unexpected status %d", event.Type, resp.StatusCode())
	}
	n.logger.Debug("webhook delivered",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.Int("status", resp.StatusCode()))
	return nil
}
