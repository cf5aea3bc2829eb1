package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/ops-hub/internal/domain"
	"github.com/spec-kit/ops-hub/internal/events"
	"github.com/spec-kit/ops-hub/internal/observability"
	"github.com/spec-kit/ops-hub/internal/repository"
	apperrors "github.com/spec-kit/ops-hub/pkg/util"
)

// AllocationService owns the active-allocation invariant: a customer has at
// most one active assignee at a time.
type AllocationService struct {
	allocations repository.AllocationRepository
	customers   repository.CustomerRepository
	users       repository.UserRepository
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// AllocationDependencies bundles repositories.
type AllocationDependencies struct {
	AllocationRepo repository.AllocationRepository
	CustomerRepo   repository.CustomerRepository
	UserRepo       repository.UserRepository
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Metrics        *observability.Metrics
}

// NewAllocationService creates the service.
func NewAllocationService(deps AllocationDependencies) *AllocationService {
	return &AllocationService{
		allocations: deps.AllocationRepo,
		customers:   deps.CustomerRepo,
		users:       deps.UserRepo,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
	}
}

// AllocateInput captures an assignment request.
type AllocateInput struct {
	CustomerID     int64
	UserID         int64
	RoleCode       string
	AllocationType domain.AllocationType
	Notes          string
}

// ReassignInput captures a reassignment request.
type ReassignInput struct {
	CustomerID     int64
	NewUserID      int64
	RoleCode       string
	AllocationType domain.AllocationType
	Reason         string
	Notes          string
}

// ActiveForCustomer returns the customer's active allocations. Finding more
// than one is a data-integrity failure, never silently narrowed to one.
func (s *AllocationService) ActiveForCustomer(ctx context.Context, customerID int64) ([]domain.CustomerAllocation, error) {
	active, err := s.allocations.FindActiveByCustomer(ctx, customerID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(active) > 1 {
		s.logger.Error("multiple active allocations for customer",
			zap.Int64("customer_id", customerID),
			zap.Int("count", len(active)))
		return nil, apperrors.NewIntegrityError("multiple active allocations for customer",
			map[string]any{"customer_id": customerID, "count": len(active)})
	}
	return active, nil
}

// ActiveForUser returns the user's active allocations.
func (s *AllocationService) ActiveForUser(ctx context.Context, userID int64) ([]domain.CustomerAllocation, error) {
	active, err := s.allocations.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return active, nil
}

// Allocate assigns a customer to a user. Fails with a conflict when any
// active allocation for the customer already exists.
func (s *AllocationService) Allocate(ctx context.Context, actor *domain.User, input AllocateInput) (*domain.CustomerAllocation, error) {
	customer, assignee, err := s.loadPair(ctx, input.CustomerID, input.UserID)
	if err != nil {
		return nil, err
	}
	if err := checkAllocatorRank(actor, assignee); err != nil {
		return nil, err
	}

	allocation := &domain.CustomerAllocation{
		CustomerID:     customer.ID,
		UserID:         assignee.ID,
		RoleCode:       input.RoleCode,
		AllocationType: input.AllocationType,
		Status:         domain.AllocationStatusActive,
		AllocatedByID:  actorID(actor),
		Notes:          input.Notes,
	}
	if err := s.allocations.Create(ctx, allocation); err != nil {
		if errors.Is(err, repository.ErrActiveAllocationExists) {
			return nil, apperrors.NewConflict("customer already has an active allocation",
				map[string]any{"customer_id": customer.ID})
		}
		return nil, apperrors.MapError(err)
	}

	s.metrics.RecordOperation("allocation_create")
	s.publish(ctx, events.EventAllocationCreated, actor, events.AllocationCreatedPayload{
		AllocationID:   allocation.ID,
		CustomerID:     customer.ID,
		CustomerCode:   customer.CustomerCode,
		UserID:         assignee.ID,
		RoleCode:       allocation.RoleCode,
		AllocationType: allocation.AllocationType,
	})
	s.logger.Info("customer allocated",
		zap.String("customer_code", customer.CustomerCode),
		zap.String("assignee_employee_id", assignee.EmployeeID))
	return allocation, nil
}

// Reassign atomically moves a customer to a new assignee: any existing
// active allocation is deactivated and the new one activated in the same
// transaction. A concurrent change to the active state surfaces as a
// retryable conflict.
func (s *AllocationService) Reassign(ctx context.Context, actor *domain.User, input ReassignInput) (*domain.CustomerAllocation, error) {
	customer, assignee, err := s.loadPair(ctx, input.CustomerID, input.NewUserID)
	if err != nil {
		return nil, err
	}
	if err := checkAllocatorRank(actor, assignee); err != nil {
		return nil, err
	}

	active, err := s.allocations.FindActiveByCustomer(ctx, customer.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	expectedIDs := make([]int64, 0, len(active))
	previousUserIDs := make([]int64, 0, len(active))
	for _, existing := range active {
		if existing.UserID == assignee.ID {
			return nil, apperrors.NewConflict("customer already allocated to this user",
				map[string]any{"customer_id": customer.ID, "user_id": assignee.ID})
		}
		expectedIDs = append(expectedIDs, existing.ID)
		previousUserIDs = append(previousUserIDs, existing.UserID)
	}

	allocation, err := s.allocations.Reassign(ctx, repository.ReassignParams{
		CustomerID:        customer.ID,
		NewUserID:         assignee.ID,
		RoleCode:          input.RoleCode,
		AllocationType:    input.AllocationType,
		AllocatedByID:     actorID(actor),
		Reason:            reassignReason(assignee.EmployeeID, input.Reason),
		Notes:             input.Notes,
		ExpectedActiveIDs: expectedIDs,
	})
	if err != nil {
		if errors.Is(err, repository.ErrStaleAllocation) {
			return nil, apperrors.NewConflict("allocation changed concurrently; retry the reassignment",
				map[string]any{"customer_id": customer.ID})
		}
		return nil, apperrors.MapError(err)
	}

	s.metrics.RecordOperation("allocation_reassign")
	s.publish(ctx, events.EventAllocationReassigned, actor, events.AllocationReassignedPayload{
		AllocationID:    allocation.ID,
		CustomerID:      customer.ID,
		CustomerCode:    customer.CustomerCode,
		PreviousUserIDs: previousUserIDs,
		NewUserID:       assignee.ID,
		Reason:          input.Reason,
	})
	s.logger.Info("customer reassigned",
		zap.String("customer_code", customer.CustomerCode),
		zap.Int("deactivated", len(previousUserIDs)),
		zap.String("new_assignee_employee_id", assignee.EmployeeID))
	return allocation, nil
}

// Deallocate closes the active allocation between a customer and a user.
func (s *AllocationService) Deallocate(ctx context.Context, actor *domain.User, customerID, userID int64, reason string) error {
	allocation, err := s.allocations.Deactivate(ctx, customerID, userID, reason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("active allocation",
				map[string]any{"customer_id": customerID, "user_id": userID})
		}
		return apperrors.MapError(err)
	}

	s.metrics.RecordOperation("allocation_deallocate")
	s.publish(ctx, events.EventAllocationDeallocated, actor, events.AllocationDeallocatedPayload{
		AllocationID: allocation.ID,
		CustomerID:   customerID,
		UserID:       userID,
		Reason:       reason,
	})
	s.logger.Info("customer deallocated",
		zap.Int64("customer_id", customerID),
		zap.Int64("user_id", userID))
	return nil
}

// CustomersVisibleTo returns the customers currently allocated to a user.
func (s *AllocationService) CustomersVisibleTo(ctx context.Context, userID int64) ([]domain.Customer, error) {
	active, err := s.allocations.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	ids := make([]int64, 0, len(active))
	for _, allocation := range active {
		ids = append(ids, allocation.CustomerID)
	}
	customers, err := s.customers.ListByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return customers, nil
}

// SumPendingAmount aggregates over an explicit id set supplied by the
// caller, normally the access gate's visibility computation.
func (s *AllocationService) SumPendingAmount(ctx context.Context, customerIDs []int64) (decimal.Decimal, error) {
	sum, err := s.customers.SumPendingAmount(ctx, customerIDs)
	if err != nil {
		return decimal.Zero, apperrors.MapError(err)
	}
	return sum, nil
}

// CountByStatus aggregates over an explicit id set supplied by the caller.
func (s *AllocationService) CountByStatus(ctx context.Context, customerIDs []int64) (map[domain.CustomerStatus]int64, error) {
	counts, err := s.customers.CountByStatus(ctx, customerIDs)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return counts, nil
}

func (s *AllocationService) loadPair(ctx context.Context, customerID, userID int64) (*domain.Customer, *domain.User, error) {
	if customerID == 0 {
		return nil, nil, apperrors.NewValidationError("customer id required", nil)
	}
	if userID == 0 {
		return nil, nil, apperrors.NewValidationError("user id required", nil)
	}
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("customer", map[string]any{"customer_id": customerID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	assignee, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	if !assignee.Active {
		return nil, nil, apperrors.NewConflict("assignee inactive", map[string]any{"user_id": userID})
	}
	return customer, assignee, nil
}

func (s *AllocationService) publish(ctx context.Context, eventType events.EventType, actor *domain.User, payload any) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ActorID:   actorID(actor),
		Timestamp: time.Now(),
		Payload:   payload,
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// checkAllocatorRank requires the acting user to strictly outrank the
// assignee, or be an admin.
func checkAllocatorRank(actor, assignee *domain.User) error {
	if actor == nil {
		return apperrors.NewUnauthorized("acting user required")
	}
	if actor.Role() == domain.RoleAdmin {
		return nil
	}
	if !domain.IsAbove(actor.UserType, assignee.UserType) {
		return apperrors.NewForbidden("insufficient rank to allocate customers")
	}
	return nil
}

func actorID(actor *domain.User) *int64 {
	if actor == nil {
		return nil
	}
	id := actor.ID
	return &id
}

func reassignReason(newEmployeeID, reason string) string {
	base := "Reassigned to user " + newEmployeeID
	if reason == "" {
		return base
	}
	return base + ": " + reason
}
