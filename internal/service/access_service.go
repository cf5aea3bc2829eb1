package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ops-hub/internal/domain"
	"github.com/spec-kit/ops-hub/internal/events"
	"github.com/spec-kit/ops-hub/internal/observability"
	"github.com/spec-kit/ops-hub/internal/repository"
	apperrors "github.com/spec-kit/ops-hub/pkg/util"
)

// ScopeLevel identifies which slice of the geography tree an actor may see.
type ScopeLevel string

const (
	ScopeAll     ScopeLevel = "ALL"
	ScopeCluster ScopeLevel = "CLUSTER"
	ScopeCircle  ScopeLevel = "CIRCLE"
	ScopeZone    ScopeLevel = "ZONE"
	ScopeArea    ScopeLevel = "AREA"
	ScopeDenied  ScopeLevel = "DENIED"
)

// ScopeFilter is the geography id and level an actor is restricted to.
// ID is nil for ALL and DENIED.
type ScopeFilter struct {
	Level ScopeLevel
	ID    *int64
}

// AccessService is the composition layer answering who may see or act on
// whom. Actors with an unknown role and no resolvable geography get the
// most restrictive scope; an active allocation grants customer visibility
// even outside the geographic scope.
type AccessService struct {
	hierarchy   *HierarchyService
	allocations repository.AllocationRepository
	customers   repository.CustomerRepository
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// AccessDependencies bundles collaborators.
type AccessDependencies struct {
	Hierarchy      *HierarchyService
	AllocationRepo repository.AllocationRepository
	CustomerRepo   repository.CustomerRepository
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Metrics        *observability.Metrics
}

// NewAccessService creates the service.
func NewAccessService(deps AccessDependencies) *AccessService {
	return &AccessService{
		hierarchy:   deps.Hierarchy,
		allocations: deps.AllocationRepo,
		customers:   deps.CustomerRepo,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
	}
}

// VisibilityScope chooses the actor's scope from their normalized role and
// resolved geography. Unresolvable geography for a scoped role denies,
// never widens.
func (s *AccessService) VisibilityScope(ctx context.Context, actor *domain.User) (ScopeFilter, error) {
	if actor == nil {
		return ScopeFilter{Level: ScopeDenied}, nil
	}
	role := actor.Role()
	if role == domain.RoleAdmin {
		return ScopeFilter{Level: ScopeAll}, nil
	}

	geo, err := s.hierarchy.ResolveGeography(ctx, actor)
	if err != nil {
		return ScopeFilter{Level: ScopeDenied}, err
	}

	switch role {
	case domain.RoleClusterHead:
		return scopeAt(ScopeCluster, geo.ClusterID), nil
	case domain.RoleCircleHead:
		return scopeAt(ScopeCircle, geo.CircleID), nil
	case domain.RoleZoneHead:
		return scopeAt(ScopeZone, geo.ZoneID), nil
	case domain.RoleAreaHead, domain.RoleStoreHead, domain.RoleAgent:
		return scopeAt(ScopeArea, geo.AreaID), nil
	default:
		return ScopeFilter{Level: ScopeDenied}, nil
	}
}

// CanAct reports whether the actor strictly outranks the target user and
// the target falls inside the actor's visibility scope.
func (s *AccessService) CanAct(ctx context.Context, actor, target *domain.User) (bool, error) {
	if actor == nil || target == nil {
		return false, nil
	}
	if !domain.IsAbove(actor.UserType, target.UserType) {
		s.recordDenial(ctx, actor, "USER", target.ID, "actor does not outrank target")
		return false, nil
	}

	scope, err := s.VisibilityScope(ctx, actor)
	if err != nil {
		return false, err
	}
	if scope.Level == ScopeAll {
		return true, nil
	}
	if scope.Level == ScopeDenied {
		s.recordDenial(ctx, actor, "USER", target.ID, "actor scope denied")
		return false, nil
	}

	targetGeo, err := s.hierarchy.ResolveGeography(ctx, target)
	if err != nil {
		return false, err
	}
	if !geoWithinScope(targetGeo, scope) {
		s.recordDenial(ctx, actor, "USER", target.ID, "target outside actor scope")
		return false, nil
	}
	return true, nil
}

// CanViewCustomer reports whether the customer falls inside the actor's
// scope, or the actor holds an active allocation to the customer. The
// allocation override grants visibility regardless of geography.
func (s *AccessService) CanViewCustomer(ctx context.Context, actor *domain.User, customer *domain.Customer) (bool, error) {
	if actor == nil || customer == nil {
		return false, nil
	}
	scope, err := s.VisibilityScope(ctx, actor)
	if err != nil {
		return false, err
	}
	if scope.Level == ScopeAll {
		return true, nil
	}

	if scope.Level != ScopeDenied && customer.AreaID != nil {
		customerGeo, err := s.hierarchy.ResolveArea(ctx, *customer.AreaID)
		if err != nil {
			return false, err
		}
		if geoWithinScope(customerGeo, scope) {
			return true, nil
		}
	}

	allocated, err := s.hasActiveAllocation(ctx, customer.ID, actor.ID)
	if err != nil {
		return false, err
	}
	if allocated {
		return true, nil
	}

	s.recordDenial(ctx, actor, "CUSTOMER", customer.ID, "customer outside actor scope")
	return false, nil
}

// AccessibleCustomerIDs computes the id set the actor may query over.
// The second return is false when the actor is unrestricted (admin).
// Actors without a geographic scope fall back to their active allocations.
func (s *AccessService) AccessibleCustomerIDs(ctx context.Context, actor *domain.User) ([]int64, bool, error) {
	scope, err := s.VisibilityScope(ctx, actor)
	if err != nil {
		return nil, true, err
	}

	var customers []domain.Customer
	switch scope.Level {
	case ScopeAll:
		return nil, false, nil
	case ScopeCluster:
		customers, err = s.customers.ListByCluster(ctx, *scope.ID)
	case ScopeCircle:
		customers, err = s.customers.ListByCircle(ctx, *scope.ID)
	case ScopeZone:
		customers, err = s.customers.ListByZone(ctx, *scope.ID)
	case ScopeArea:
		// Area heads see the whole area roster; store heads and agents see
		// their allocated book.
		if actor.Role() != domain.RoleAreaHead {
			return s.allocatedCustomerIDs(ctx, actor.ID)
		}
		customers, err = s.customers.ListByArea(ctx, *scope.ID)
	default:
		return s.allocatedCustomerIDs(ctx, actor.ID)
	}
	if err != nil {
		return nil, true, apperrors.MapError(err)
	}
	return customerIDs(customers), true, nil
}

func (s *AccessService) allocatedCustomerIDs(ctx context.Context, userID int64) ([]int64, bool, error) {
	active, err := s.allocations.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, true, apperrors.MapError(err)
	}
	ids := make([]int64, 0, len(active))
	for _, allocation := range active {
		ids = append(ids, allocation.CustomerID)
	}
	return ids, true, nil
}

func (s *AccessService) hasActiveAllocation(ctx context.Context, customerID, userID int64) (bool, error) {
	_, err := s.allocations.FindActiveByCustomerAndUser(ctx, customerID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, apperrors.MapError(err)
	}
	return true, nil
}

func (s *AccessService) recordDenial(ctx context.Context, actor *domain.User, targetType string, targetID int64, reason string) {
	s.metrics.RecordDenial(reason)
	s.logger.Debug("access denied",
		zap.Int64("actor_id", actor.ID),
		zap.String("target_type", targetType),
		zap.Int64("target_id", targetID),
		zap.String("reason", reason))
	if s.dispatcher == nil {
		return
	}
	id := actor.ID
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventAccessDenied,
		ActorID:   &id,
		Timestamp: time.Now(),
		Payload: events.AccessDeniedPayload{
			TargetType: targetType,
			TargetID:   targetID,
			Reason:     reason,
		},
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func scopeAt(level ScopeLevel, id *int64) ScopeFilter {
	if id == nil {
		return ScopeFilter{Level: ScopeDenied}
	}
	return ScopeFilter{Level: level, ID: id}
}

func geoWithinScope(geo domain.GeographyContext, scope ScopeFilter) bool {
	switch scope.Level {
	case ScopeAll:
		return true
	case ScopeCluster:
		return geo.ClusterID != nil && *geo.ClusterID == *scope.ID
	case ScopeCircle:
		return geo.CircleID != nil && *geo.CircleID == *scope.ID
	case ScopeZone:
		return geo.ZoneID != nil && *geo.ZoneID == *scope.ID
	case ScopeArea:
		return geo.AreaID != nil && *geo.AreaID == *scope.ID
	default:
		return false
	}
}

func customerIDs(customers []domain.Customer) []int64 {
	ids := make([]int64, 0, len(customers))
	for _, customer := range customers {
		ids = append(ids, customer.ID)
	}
	return ids
}
