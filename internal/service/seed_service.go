package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ops-hub/internal/auth"
	"github.com/spec-kit/ops-hub/internal/config"
	"github.com/spec-kit/ops-hub/internal/domain"
	"github.com/spec-kit/ops-hub/internal/repository"
)

// SeedService provisions reference data for a fresh deployment: a minimal
// geography tree and an administrator account. Existing codes are left
// untouched, so seeding is safe to re-run.
type SeedService struct {
	clusters repository.ClusterRepository
	circles  repository.CircleRepository
	zones    repository.ZoneRepository
	areas    repository.AreaRepository
	users    repository.UserRepository
	cfg      config.AuthConfig
	logger   *zap.Logger
}

// SeedDependencies bundles repositories.
type SeedDependencies struct {
	ClusterRepo repository.ClusterRepository
	CircleRepo  repository.CircleRepository
	ZoneRepo    repository.ZoneRepository
	AreaRepo    repository.AreaRepository
	UserRepo    repository.UserRepository
	Auth        config.AuthConfig
	Logger      *zap.Logger
}

// NewSeedService creates the service.
func NewSeedService(deps SeedDependencies) *SeedService {
	return &SeedService{
		clusters: deps.ClusterRepo,
		circles:  deps.CircleRepo,
		zones:    deps.ZoneRepo,
		areas:    deps.AreaRepo,
		users:    deps.UserRepo,
		cfg:      deps.Auth,
		logger:   deps.Logger,
	}
}

// Seed creates the default tree NORTH > NORTH-C1 > NORTH-Z1 > NORTH-A1 and
// an admin user when absent.
func (s *SeedService) Seed(ctx context.Context) error {
	cluster, err := s.ensureCluster(ctx, "NORTH", "North Cluster")
	if err != nil {
		return err
	}
	circle, err := s.ensureCircle(ctx, "NORTH-C1", "North Circle 1", cluster.ID)
	if err != nil {
		return err
	}
	zone, err := s.ensureZone(ctx, "NORTH-Z1", "North Zone 1", circle.ID)
	if err != nil {
		return err
	}
	area, err := s.ensureArea(ctx, "NORTH-A1", "North Area 1", zone.ID)
	if err != nil {
		return err
	}
	if err := s.ensureAdmin(ctx, area.ID); err != nil {
		return err
	}
	s.logger.Info("seed complete")
	return nil
}

func (s *SeedService) ensureCluster(ctx context.Context, code, name string) (*domain.Cluster, error) {
	existing, err := s.clusters.GetByCode(ctx, code)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	cluster := &domain.Cluster{Code: code, Name: name, Active: true}
	if err := s.clusters.Create(ctx, cluster); err != nil {
		return nil, err
	}
	s.logger.Info("seeded cluster", zap.String("code", code))
	return cluster, nil
}

func (s *SeedService) ensureCircle(ctx context.Context, code, name string, clusterID int64) (*domain.Circle, error) {
	existing, err := s.circles.GetByCode(ctx, code)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	circle := &domain.Circle{Code: code, Name: name, ClusterID: &clusterID, Active: true}
	if err := s.circles.Create(ctx, circle); err != nil {
		return nil, err
	}
	s.logger.Info("seeded circle", zap.String("code", code))
	return circle, nil
}

func (s *SeedService) ensureZone(ctx context.Context, code, name string, circleID int64) (*domain.Zone, error) {
	existing, err := s.zones.GetByCode(ctx, code)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	zone := &domain.Zone{Code: code, Name: name, CircleID: &circleID, Active: true}
	if err := s.zones.Create(ctx, zone); err != nil {
		return nil, err
	}
	s.logger.Info("seeded zone", zap.String("code", code))
	return zone, nil
}

func (s *SeedService) ensureArea(ctx context.Context, code, name string, zoneID int64) (*domain.Area, error) {
	existing, err := s.areas.GetByCode(ctx, code)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	area := &domain.Area{Code: code, Name: name, ZoneID: &zoneID, Active: true}
	if err := s.areas.Create(ctx, area); err != nil {
		return nil, err
	}
	s.logger.Info("seeded area", zap.String("code", code))
	return area, nil
}

func (s *SeedService) ensureAdmin(ctx context.Context, areaID int64) error {
	_, err := s.users.GetByUsername(ctx, "admin")
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	hashed, err := auth.HashPassword("ChangeMe123!", s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	admin := &domain.User{
		EmployeeID:   "EMP-0001",
		Username:     "admin",
		Email:        "admin@example.com",
		FullName:     "System Administrator",
		PasswordHash: hashed,
		UserType:     string(domain.RoleAdmin),
		AreaID:       &areaID,
		Active:       true,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return err
	}
	s.logger.Info("seeded admin user", zap.String("employee_id", admin.EmployeeID))
	return nil
}
