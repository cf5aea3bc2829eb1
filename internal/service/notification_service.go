package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ops-hub/internal/config"
	"github.com/spec-kit/ops-hub/internal/events"
)

// NotificationService emits assignment notifications for allocation events.
// Delivery mechanics are external; this only logs the outgoing intent.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventAllocationCreated, n.handleAllocationCreated)
	n.dispatcher.Subscribe(events.EventAllocationReassigned, n.handleAllocationReassigned)
}

func (n *NotificationService) handleAllocationCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AllocationCreatedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("AllocationCreated",
		zap.String("customer_code", payload.CustomerCode),
		zap.Int64("user_id", payload.UserID))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleAllocationReassigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AllocationReassignedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("AllocationReassigned",
		zap.String("customer_code", payload.CustomerCode),
		zap.Int64("new_user_id", payload.NewUserID))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("event_type", string(event.Type)))
}
