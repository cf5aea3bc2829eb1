package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ops-hub/internal/domain"
)

// ZoneRepository encapsulates zone persistence.
type ZoneRepository interface {
	Create(ctx context.Context, zone *domain.Zone) error
	GetByID(ctx context.Context, id int64) (*domain.Zone, error)
	GetByCode(ctx context.Context, code string) (*domain.Zone, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	ListByCircle(ctx context.Context, circleID int64) ([]domain.Zone, error)
}

type zoneRepository struct {
	pool *pgxpool.Pool
}

// NewZoneRepository instantiates repository.
func NewZoneRepository(pool *pgxpool.Pool) ZoneRepository {
	return &zoneRepository{pool: pool}
}

func (r *zoneRepository) Create(ctx context.Context, zone *domain.Zone) error {
	const query = `
        INSERT INTO zones (code, name, circle_id, active)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query, zone.Code, zone.Name, zone.CircleID, zone.Active).
		Scan(&zone.ID, &zone.CreatedAt, &zone.UpdatedAt)
}

func (r *zoneRepository) GetByID(ctx context.Context, id int64) (*domain.Zone, error) {
	const query = `
        SELECT id, code, name, circle_id, active, created_at, updated_at
        FROM zones WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *zoneRepository) GetByCode(ctx context.Context, code string) (*domain.Zone, error) {
	const query = `
        SELECT id, code, name, circle_id, active, created_at, updated_at
        FROM zones WHERE code=$1`
	return r.fetchSingle(ctx, query, code)
}

func (r *zoneRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM zones WHERE code=$1)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, code).Scan(&exists)
	return exists, err
}

func (r *zoneRepository) ListByCircle(ctx context.Context, circleID int64) ([]domain.Zone, error) {
	const query = `
        SELECT id, code, name, circle_id, active, created_at, updated_at
        FROM zones WHERE circle_id=$1 AND active ORDER BY name`
	rows, err := r.pool.Query(ctx, query, circleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Zone
	for rows.Next() {
		var zone domain.Zone
		if err := rows.Scan(&zone.ID, &zone.Code, &zone.Name, &zone.CircleID,
			&zone.Active, &zone.CreatedAt, &zone.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, zone)
	}
	return result, rows.Err()
}

func (r *zoneRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Zone, error) {
	var zone domain.Zone
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&zone.ID,
		&zone.Code,
		&zone.Name,
		&zone.CircleID,
		&zone.Active,
		&zone.CreatedAt,
		&zone.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &zone, nil
}
