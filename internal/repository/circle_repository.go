package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ops-hub/internal/domain"
)

// CircleRepository encapsulates circle persistence.
type CircleRepository interface {
	Create(ctx context.Context, circle *domain.Circle) error
	GetByID(ctx context.Context, id int64) (*domain.Circle, error)
	GetByCode(ctx context.Context, code string) (*domain.Circle, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	ListByCluster(ctx context.Context, clusterID int64) ([]domain.Circle, error)
}

type circleRepository struct {
	pool *pgxpool.Pool
}

// NewCircleRepository instantiates repository.
func NewCircleRepository(pool *pgxpool.Pool) CircleRepository {
	return &circleRepository{pool: pool}
}

func (r *circleRepository) Create(ctx context.Context, circle *domain.Circle) error {
	const query = `
        INSERT INTO circles (code, name, cluster_id, active)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query, circle.Code, circle.Name, circle.ClusterID, circle.Active).
		Scan(&circle.ID, &circle.CreatedAt, &circle.UpdatedAt)
}

func (r *circleRepository) GetByID(ctx context.Context, id int64) (*domain.Circle, error) {
	const query = `
        SELECT id, code, name, cluster_id, active, created_at, updated_at
        FROM circles WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *circleRepository) GetByCode(ctx context.Context, code string) (*domain.Circle, error) {
	const query = `
        SELECT id, code, name, cluster_id, active, created_at, updated_at
        FROM circles WHERE code=$1`
	return r.fetchSingle(ctx, query, code)
}

func (r *circleRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM circles WHERE code=$1)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, code).Scan(&exists)
	return exists, err
}

func (r *circleRepository) ListByCluster(ctx context.Context, clusterID int64) ([]domain.Circle, error) {
	const query = `
        SELECT id, code, name, cluster_id, active, created_at, updated_at
        FROM circles WHERE cluster_id=$1 AND active ORDER BY name`
	rows, err := r.pool.Query(ctx, query, clusterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Circle
	for rows.Next() {
		var circle domain.Circle
		if err := rows.Scan(&circle.ID, &circle.Code, &circle.Name, &circle.ClusterID,
			&circle.Active, &circle.CreatedAt, &circle.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, circle)
	}
	return result, rows.Err()
}

func (r *circleRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Circle, error) {
	var circle domain.Circle
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&circle.ID,
		&circle.Code,
		&circle.Name,
		&circle.ClusterID,
		&circle.Active,
		&circle.CreatedAt,
		&circle.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &circle, nil
}
