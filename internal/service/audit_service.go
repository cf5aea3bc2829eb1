package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ops-hub/internal/domain"
	"github.com/spec-kit/ops-hub/internal/events"
	"github.com/spec-kit/ops-hub/internal/repository"
)

// AuditService persists allocation-status changes and access-denial
// decisions as immutable trail entries.
type AuditService struct {
	auditLogs  repository.AuditLogRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(auditLogs repository.AuditLogRepository, dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{
		auditLogs:  auditLogs,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to auditable events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventAllocationCreated, a.handleAllocationCreated)
	a.dispatcher.Subscribe(events.EventAllocationReassigned, a.handleAllocationReassigned)
	a.dispatcher.Subscribe(events.EventAllocationDeallocated, a.handleAllocationDeallocated)
	a.dispatcher.Subscribe(events.EventAccessDenied, a.handleAccessDenied)
}

func (a *AuditService) handleAllocationCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AllocationCreatedPayload)
	if !ok {
		return nil
	}
	return a.record(ctx, &domain.AuditLog{
		ActorID:    event.ActorID,
		Action:     domain.AuditActionCreate,
		EntityType: "CUSTOMER_ALLOCATION",
		EntityID:   payload.AllocationID,
		NewValues: map[string]any{
			"customer_id":     payload.CustomerID,
			"customer_code":   payload.CustomerCode,
			"user_id":         payload.UserID,
			"role_code":       payload.RoleCode,
			"allocation_type": payload.AllocationType,
			"status":          domain.AllocationStatusActive,
		},
	})
}

func (a *AuditService) handleAllocationReassigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AllocationReassignedPayload)
	if !ok {
		return nil
	}
	return a.record(ctx, &domain.AuditLog{
		ActorID:    event.ActorID,
		Action:     domain.AuditActionReassign,
		EntityType: "CUSTOMER_ALLOCATION",
		EntityID:   payload.AllocationID,
		OldValues: map[string]any{
			"customer_id":       payload.CustomerID,
			"previous_user_ids": payload.PreviousUserIDs,
		},
		NewValues: map[string]any{
			"customer_id":   payload.CustomerID,
			"customer_code": payload.CustomerCode,
			"new_user_id":   payload.NewUserID,
			"reason":        payload.Reason,
			"status":        domain.AllocationStatusActive,
		},
	})
}

func (a *AuditService) handleAllocationDeallocated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AllocationDeallocatedPayload)
	if !ok {
		return nil
	}
	return a.record(ctx, &domain.AuditLog{
		ActorID:    event.ActorID,
		Action:     domain.AuditActionDeallocate,
		EntityType: "CUSTOMER_ALLOCATION",
		EntityID:   payload.AllocationID,
		OldValues: map[string]any{
			"status": domain.AllocationStatusActive,
		},
		NewValues: map[string]any{
			"status":              domain.AllocationStatusInactive,
			"deallocation_reason": payload.Reason,
		},
	})
}

func (a *AuditService) handleAccessDenied(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AccessDeniedPayload)
	if !ok {
		return nil
	}
	return a.record(ctx, &domain.AuditLog{
		ActorID:    event.ActorID,
		Action:     domain.AuditActionAccessDenied,
		EntityType: payload.TargetType,
		EntityID:   payload.TargetID,
		NewValues: map[string]any{
			"reason": payload.Reason,
		},
	})
}

func (a *AuditService) record(ctx context.Context, entry *domain.AuditLog) error {
	if err := a.auditLogs.Create(ctx, entry); err != nil {
		a.logger.Error("audit log write failed",
			zap.String("action", string(entry.Action)),
			zap.Error(err))
		return err
	}
	return nil
}
