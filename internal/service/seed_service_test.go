package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ops-hub/internal/auth"
	"github.com/spec-kit/ops-hub/internal/config"
	"github.com/spec-kit/ops-hub/internal/domain"
)

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()

	clusters := &fakeClusterRepo{byID: map[int64]*domain.Cluster{}}
	circles := &fakeCircleRepo{byID: map[int64]*domain.Circle{}}
	zones := &fakeZoneRepo{byID: map[int64]*domain.Zone{}}
	areas := &fakeAreaRepo{byID: map[int64]*domain.Area{}}
	users := &fakeUserRepo{byID: map[int64]*domain.User{}}

	service := NewSeedService(SeedDependencies{
		ClusterRepo: clusters,
		CircleRepo:  circles,
		ZoneRepo:    zones,
		AreaRepo:    areas,
		UserRepo:    users,
		Auth:        config.AuthConfig{BcryptCost: 4},
		Logger:      zap.NewNop(),
	})

	require.NoError(t, service.Seed(ctx))
	require.NoError(t, service.Seed(ctx))

	// A full chain exists exactly once.
	assert.Len(t, clusters.byID, 1)
	assert.Len(t, circles.byID, 1)
	assert.Len(t, zones.byID, 1)
	assert.Len(t, areas.byID, 1)
	assert.Len(t, users.byID, 1)

	area, err := areas.GetByCode(ctx, "NORTH-A1")
	require.NoError(t, err)
	require.NotNil(t, area.ZoneID)

	admin, err := users.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role())
	require.NotNil(t, admin.AreaID)
	assert.Equal(t, area.ID, *admin.AreaID)
	require.NoError(t, auth.ComparePassword(admin.PasswordHash, "ChangeMe123!"))
}
