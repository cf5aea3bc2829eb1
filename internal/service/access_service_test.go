package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ops-hub/internal/domain"
	"github.com/spec-kit/ops-hub/internal/events"
	"github.com/spec-kit/ops-hub/internal/observability"
)

type accessFixture struct {
	access      *AccessService
	allocations *fakeAllocationRepo
	customers   *fakeCustomerRepo
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics

	// cluster 4 > circle 7 > zone 3 > area 2
	// cluster 8 > circle 9 > zone 10 > area 5
	inNorth *domain.Customer
	inSouth *domain.Customer
}

func newAccessFixture(t *testing.T) *accessFixture {
	t.Helper()
	ctx := context.Background()

	clusters := &fakeClusterRepo{byID: map[int64]*domain.Cluster{
		4: {ID: 4, Code: "NORTH", Name: "North", Active: true},
		8: {ID: 8, Code: "SOUTH", Name: "South", Active: true},
	}}
	circles := &fakeCircleRepo{byID: map[int64]*domain.Circle{
		7: {ID: 7, Code: "NORTH-C1", ClusterID: int64Ptr(4), Active: true},
		9: {ID: 9, Code: "SOUTH-C1", ClusterID: int64Ptr(8), Active: true},
	}}
	zones := &fakeZoneRepo{byID: map[int64]*domain.Zone{
		3:  {ID: 3, Code: "NORTH-Z1", CircleID: int64Ptr(7), Active: true},
		10: {ID: 10, Code: "SOUTH-Z1", CircleID: int64Ptr(9), Active: true},
	}}
	areas := &fakeAreaRepo{byID: map[int64]*domain.Area{
		2: {ID: 2, Code: "NORTH-A1", ZoneID: int64Ptr(3), Active: true},
		5: {ID: 5, Code: "SOUTH-A1", ZoneID: int64Ptr(10), Active: true},
	}}

	chains := map[int64]geoChain{
		2: {ZoneID: int64Ptr(3), CircleID: int64Ptr(7), ClusterID: int64Ptr(4)},
		5: {ZoneID: int64Ptr(10), CircleID: int64Ptr(9), ClusterID: int64Ptr(8)},
	}
	customers := &fakeCustomerRepo{byID: map[int64]*domain.Customer{}, chains: chains}
	allocations := &fakeAllocationRepo{byID: map[int64]*domain.CustomerAllocation{}}
	metrics := observability.NewMetrics()

	inNorth := &domain.Customer{CustomerCode: "CUST-N1", AreaID: int64Ptr(2), Status: domain.CustomerStatusActive}
	inSouth := &domain.Customer{CustomerCode: "CUST-S1", AreaID: int64Ptr(5), Status: domain.CustomerStatusActive}
	require.NoError(t, customers.Create(ctx, inNorth))
	require.NoError(t, customers.Create(ctx, inSouth))

	hierarchy := NewHierarchyService(HierarchyDependencies{
		ClusterRepo: clusters,
		CircleRepo:  circles,
		ZoneRepo:    zones,
		AreaRepo:    areas,
		Logger:      zap.NewNop(),
	})
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	access := NewAccessService(AccessDependencies{
		Hierarchy:      hierarchy,
		AllocationRepo: allocations,
		CustomerRepo:   customers,
		Dispatcher:     dispatcher,
		Logger:         zap.NewNop(),
		Metrics:        metrics,
	})

	return &accessFixture{
		access:      access,
		allocations: allocations,
		customers:   customers,
		dispatcher:  dispatcher,
		metrics:     metrics,
		inNorth:     inNorth,
		inSouth:     inSouth,
	}
}

func northUser(id int64, userType string) *domain.User {
	return &domain.User{ID: id, EmployeeID: "EMP-N", UserType: userType, AreaID: int64Ptr(2), Active: true}
}

func TestVisibilityScope(t *testing.T) {
	fx := newAccessFixture(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		actor     *domain.User
		wantLevel ScopeLevel
		wantID    *int64
	}{
		{"admin unrestricted", northUser(1, "ADMIN"), ScopeAll, nil},
		{"cluster head", northUser(2, "CLUSTER_HEAD"), ScopeCluster, int64Ptr(4)},
		{"cluster lead synonym", northUser(3, "cluster_lead"), ScopeCluster, int64Ptr(4)},
		{"circle head", northUser(4, "CIRCLE_HEAD"), ScopeCircle, int64Ptr(7)},
		{"zone head", northUser(5, "ZONE_HEAD"), ScopeZone, int64Ptr(3)},
		{"area head", northUser(6, "AREA_HEAD"), ScopeArea, int64Ptr(2)},
		{"store head", northUser(7, "STORE_HEAD"), ScopeArea, int64Ptr(2)},
		{"agent", northUser(8, "AGENT"), ScopeArea, int64Ptr(2)},
		{"unknown role denied", northUser(9, "INTERN"), ScopeDenied, nil},
		{"nil actor denied", nil, ScopeDenied, nil},
		{"scoped role without area denied", &domain.User{ID: 10, UserType: "ZONE_HEAD"}, ScopeDenied, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, err := fx.access.VisibilityScope(ctx, tt.actor)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLevel, scope.Level)
			if tt.wantID == nil {
				assert.Nil(t, scope.ID)
			} else {
				require.NotNil(t, scope.ID)
				assert.Equal(t, *tt.wantID, *scope.ID)
			}
		})
	}
}

func TestCanAct(t *testing.T) {
	fx := newAccessFixture(t)
	ctx := context.Background()

	admin := northUser(1, "ADMIN")
	zoneHead := northUser(2, "ZONE_HEAD")
	northAgent := northUser(3, "AGENT")
	southAgent := &domain.User{ID: 4, UserType: "AGENT", AreaID: int64Ptr(5), Active: true}

	ok, err := fx.access.CanAct(ctx, admin, southAgent)
	require.NoError(t, err)
	assert.True(t, ok, "admin may act anywhere")

	ok, err = fx.access.CanAct(ctx, zoneHead, northAgent)
	require.NoError(t, err)
	assert.True(t, ok, "zone head over an agent in their own zone")

	ok, err = fx.access.CanAct(ctx, zoneHead, southAgent)
	require.NoError(t, err)
	assert.False(t, ok, "target outside the actor's zone")

	ok, err = fx.access.CanAct(ctx, northAgent, northUser(5, "FIELD_AGENT"))
	require.NoError(t, err)
	assert.False(t, ok, "equal rank never qualifies")

	ok, err = fx.access.CanAct(ctx, northAgent, zoneHead)
	require.NoError(t, err)
	assert.False(t, ok, "lower rank never qualifies")

	assert.Greater(t, fx.metrics.DenialCount("actor does not outrank target"), int64(0))
}

func TestCanViewCustomerByGeography(t *testing.T) {
	fx := newAccessFixture(t)
	ctx := context.Background()

	circleHead := northUser(2, "CIRCLE_HEAD")

	ok, err := fx.access.CanViewCustomer(ctx, circleHead, fx.inNorth)
	require.NoError(t, err)
	assert.True(t, ok, "customer inside the actor's circle")

	ok, err = fx.access.CanViewCustomer(ctx, circleHead, fx.inSouth)
	require.NoError(t, err)
	assert.False(t, ok, "customer in another circle")

	ok, err = fx.access.CanViewCustomer(ctx, northUser(1, "ADMIN"), fx.inSouth)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanViewCustomerAllocationOverride(t *testing.T) {
	fx := newAccessFixture(t)
	ctx := context.Background()

	agent := northUser(3, "AGENT")

	ok, err := fx.access.CanViewCustomer(ctx, agent, fx.inSouth)
	require.NoError(t, err)
	require.False(t, ok, "no geography match and no allocation")

	// An active allocation grants visibility even outside the actor's
	// geographic scope.
	require.NoError(t, fx.allocations.Create(ctx, &domain.CustomerAllocation{
		CustomerID: fx.inSouth.ID, UserID: agent.ID,
		RoleCode: "AGENT", Status: domain.AllocationStatusActive,
	}))
	ok, err = fx.access.CanViewCustomer(ctx, agent, fx.inSouth)
	require.NoError(t, err)
	assert.True(t, ok)

	// An inactive allocation grants nothing.
	fx.allocations.byID[1].Status = domain.AllocationStatusInactive
	ok, err = fx.access.CanViewCustomer(ctx, agent, fx.inSouth)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAccessibleCustomerIDs(t *testing.T) {
	fx := newAccessFixture(t)
	ctx := context.Background()

	ids, restricted, err := fx.access.AccessibleCustomerIDs(ctx, northUser(1, "ADMIN"))
	require.NoError(t, err)
	assert.False(t, restricted)
	assert.Nil(t, ids)

	ids, restricted, err = fx.access.AccessibleCustomerIDs(ctx, northUser(2, "CIRCLE_HEAD"))
	require.NoError(t, err)
	assert.True(t, restricted)
	assert.ElementsMatch(t, []int64{fx.inNorth.ID}, ids)

	ids, restricted, err = fx.access.AccessibleCustomerIDs(ctx, northUser(3, "AREA_HEAD"))
	require.NoError(t, err)
	assert.True(t, restricted)
	assert.ElementsMatch(t, []int64{fx.inNorth.ID}, ids)

	// Agents see their allocated book, not the area roster.
	agent := northUser(4, "AGENT")
	ids, restricted, err = fx.access.AccessibleCustomerIDs(ctx, agent)
	require.NoError(t, err)
	assert.True(t, restricted)
	assert.Empty(t, ids)

	require.NoError(t, fx.allocations.Create(ctx, &domain.CustomerAllocation{
		CustomerID: fx.inSouth.ID, UserID: agent.ID,
		RoleCode: "AGENT", Status: domain.AllocationStatusActive,
	}))
	ids, restricted, err = fx.access.AccessibleCustomerIDs(ctx, agent)
	require.NoError(t, err)
	assert.True(t, restricted)
	assert.ElementsMatch(t, []int64{fx.inSouth.ID}, ids)

	// An unknown role falls back to the allocation book as well.
	unknown := northUser(5, "INTERN")
	require.NoError(t, fx.allocations.Create(ctx, &domain.CustomerAllocation{
		CustomerID: fx.inNorth.ID, UserID: unknown.ID,
		RoleCode: "INTERN", Status: domain.AllocationStatusActive,
	}))
	ids, restricted, err = fx.access.AccessibleCustomerIDs(ctx, unknown)
	require.NoError(t, err)
	assert.True(t, restricted)
	assert.ElementsMatch(t, []int64{fx.inNorth.ID}, ids)
}
