package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ops-hub/internal/config"
	"github.com/spec-kit/ops-hub/internal/domain"
	"github.com/spec-kit/ops-hub/internal/repository"
	apperrors "github.com/spec-kit/ops-hub/pkg/util"
)

// GeoCache is the lookup cache the resolver consults before walking the
// tree. Get returns (nil, nil) on a miss. persistence.Redis satisfies it.
type GeoCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// HierarchyService resolves a user's or area's position in the geography
// tree. Every hop is an explicit id lookup; a missing link short-circuits
// the remaining levels instead of failing.
type HierarchyService struct {
	clusters repository.ClusterRepository
	circles  repository.CircleRepository
	zones    repository.ZoneRepository
	areas    repository.AreaRepository
	cache    GeoCache
	logger   *zap.Logger
}

// HierarchyDependencies bundles repositories. Cache is optional.
type HierarchyDependencies struct {
	ClusterRepo repository.ClusterRepository
	CircleRepo  repository.CircleRepository
	ZoneRepo    repository.ZoneRepository
	AreaRepo    repository.AreaRepository
	Cache       GeoCache
	Logger      *zap.Logger
}

// NewHierarchyService creates the service.
func NewHierarchyService(deps HierarchyDependencies) *HierarchyService {
	return &HierarchyService{
		clusters: deps.ClusterRepo,
		circles:  deps.CircleRepo,
		zones:    deps.ZoneRepo,
		areas:    deps.AreaRepo,
		cache:    deps.Cache,
		logger:   deps.Logger,
	}
}

// ResolveGeography returns the full geography context for a user. A user
// with no area yields an empty context, not an error; callers decide the
// fallback policy for unscoped actors.
func (s *HierarchyService) ResolveGeography(ctx context.Context, user *domain.User) (domain.GeographyContext, error) {
	if user == nil || user.AreaID == nil {
		return domain.GeographyContext{}, nil
	}
	if cached, ok := s.cacheGet(ctx, *user.AreaID); ok {
		return cached, nil
	}
	geo, err := s.ResolveArea(ctx, *user.AreaID)
	if err != nil {
		return domain.GeographyContext{}, err
	}
	s.cacheSet(ctx, *user.AreaID, geo)
	return geo, nil
}

// ResolveArea walks area -> zone -> circle -> cluster by explicit lookups.
func (s *HierarchyService) ResolveArea(ctx context.Context, areaID int64) (domain.GeographyContext, error) {
	var geo domain.GeographyContext

	area, err := s.areas.GetByID(ctx, areaID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return geo, nil
		}
		return geo, apperrors.MapError(err)
	}
	geo.AreaID = &area.ID
	geo.AreaName = &area.Name
	if area.ZoneID == nil {
		return geo, nil
	}

	zone, err := s.zones.GetByID(ctx, *area.ZoneID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return geo, nil
		}
		return geo, apperrors.MapError(err)
	}
	geo.ZoneID = &zone.ID
	geo.ZoneName = &zone.Name
	if zone.CircleID == nil {
		return geo, nil
	}

	circle, err := s.circles.GetByID(ctx, *zone.CircleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return geo, nil
		}
		return geo, apperrors.MapError(err)
	}
	geo.CircleID = &circle.ID
	geo.CircleName = &circle.Name
	if circle.ClusterID == nil {
		return geo, nil
	}

	cluster, err := s.clusters.GetByID(ctx, *circle.ClusterID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return geo, nil
		}
		return geo, apperrors.MapError(err)
	}
	geo.ClusterID = &cluster.ID
	geo.ClusterName = &cluster.Name
	return geo, nil
}

// CirclesByCluster lists active circles under a cluster.
func (s *HierarchyService) CirclesByCluster(ctx context.Context, clusterID int64) ([]domain.Circle, error) {
	circles, err := s.circles.ListByCluster(ctx, clusterID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return circles, nil
}

// ZonesByCircle lists active zones under a circle.
func (s *HierarchyService) ZonesByCircle(ctx context.Context, circleID int64) ([]domain.Zone, error) {
	zones, err := s.zones.ListByCircle(ctx, circleID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return zones, nil
}

// AreasByZone lists active areas under a zone.
func (s *HierarchyService) AreasByZone(ctx context.Context, zoneID int64) ([]domain.Area, error) {
	areas, err := s.areas.ListByZone(ctx, zoneID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return areas, nil
}

// ActiveClusters lists the roots of the tree.
func (s *HierarchyService) ActiveClusters(ctx context.Context) ([]domain.Cluster, error) {
	clusters, err := s.clusters.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return clusters, nil
}

func geoCacheKey(areaID int64) string {
	return fmt.Sprintf("geo:area:%d", areaID)
}

func (s *HierarchyService) cacheGet(ctx context.Context, areaID int64) (domain.GeographyContext, bool) {
	if s.cache == nil {
		return domain.GeographyContext{}, false
	}
	raw, err := s.cache.Get(ctx, geoCacheKey(areaID))
	if err != nil {
		s.logger.Debug("geo cache read failed", zap.Error(err))
		return domain.GeographyContext{}, false
	}
	if raw == nil {
		return domain.GeographyContext{}, false
	}
	var geo domain.GeographyContext
	if err := json.Unmarshal(raw, &geo); err != nil {
		return domain.GeographyContext{}, false
	}
	return geo, true
}

func (s *HierarchyService) cacheSet(ctx context.Context, areaID int64, geo domain.GeographyContext) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(geo)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, geoCacheKey(areaID), raw, config.GeoCacheTTL); err != nil {
		s.logger.Debug("geo cache write failed", zap.Error(err))
	}
}
