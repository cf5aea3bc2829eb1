package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ops-hub/internal/domain"
)

// AreaRepository encapsulates area persistence.
type AreaRepository interface {
	Create(ctx context.Context, area *domain.Area) error
	GetByID(ctx context.Context, id int64) (*domain.Area, error)
	GetByCode(ctx context.Context, code string) (*domain.Area, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	ListByZone(ctx context.Context, zoneID int64) ([]domain.Area, error)
}

type areaRepository struct {
	pool *pgxpool.Pool
}

// NewAreaRepository instantiates repository.
func NewAreaRepository(pool *pgxpool.Pool) AreaRepository {
	return &areaRepository{pool: pool}
}

func (r *areaRepository) Create(ctx context.Context, area *domain.Area) error {
	const query = `
        INSERT INTO areas (code, name, zone_id, active)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query, area.Code, area.Name, area.ZoneID, area.Active).
		Scan(&area.ID, &area.CreatedAt, &area.UpdatedAt)
}

func (r *areaRepository) GetByID(ctx context.Context, id int64) (*domain.Area, error) {
	const query = `
        SELECT id, code, name, zone_id, active, created_at, updated_at
        FROM areas WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *areaRepository) GetByCode(ctx context.Context, code string) (*domain.Area, error) {
	const query = `
        SELECT id, code, name, zone_id, active, created_at, updated_at
        FROM areas WHERE code=$1`
	return r.fetchSingle(ctx, query, code)
}

func (r *areaRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM areas WHERE code=$1)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, code).Scan(&exists)
	return exists, err
}

func (r *areaRepository) ListByZone(ctx context.Context, zoneID int64) ([]domain.Area, error) {
	const query = `
        SELECT id, code, name, zone_id, active, created_at, updated_at
        FROM areas WHERE zone_id=$1 AND active ORDER BY name`
	rows, err := r.pool.Query(ctx, query, zoneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Area
	for rows.Next() {
		var area domain.Area
		if err := rows.Scan(&area.ID, &area.Code, &area.Name, &area.ZoneID,
			&area.Active, &area.CreatedAt, &area.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, area)
	}
	return result, rows.Err()
}

func (r *areaRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Area, error) {
	var area domain.Area
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&area.ID,
		&area.Code,
		&area.Name,
		&area.ZoneID,
		&area.Active,
		&area.CreatedAt,
		&area.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &area, nil
}
