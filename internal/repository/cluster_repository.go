package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ops-hub/internal/domain"
)

// ClusterRepository encapsulates cluster persistence.
type ClusterRepository interface {
	Create(ctx context.Context, cluster *domain.Cluster) error
	GetByID(ctx context.Context, id int64) (*domain.Cluster, error)
	GetByCode(ctx context.Context, code string) (*domain.Cluster, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	ListActive(ctx context.Context) ([]domain.Cluster, error)
}

type clusterRepository struct {
	pool *pgxpool.Pool
}

// NewClusterRepository instantiates repository.
func NewClusterRepository(pool *pgxpool.Pool) ClusterRepository {
	return &clusterRepository{pool: pool}
}

func (r *clusterRepository) Create(ctx context.Context, cluster *domain.Cluster) error {
	const query = `
        INSERT INTO clusters (code, name, active)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query, cluster.Code, cluster.Name, cluster.Active).
		Scan(&cluster.ID, &cluster.CreatedAt, &cluster.UpdatedAt)
}

func (r *clusterRepository) GetByID(ctx context.Context, id int64) (*domain.Cluster, error) {
	const query = `
        SELECT id, code, name, active, created_at, updated_at
        FROM clusters WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *clusterRepository) GetByCode(ctx context.Context, code string) (*domain.Cluster, error) {
	const query = `
        SELECT id, code, name, active, created_at, updated_at
        FROM clusters WHERE code=$1`
	return r.fetchSingle(ctx, query, code)
}

func (r *clusterRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM clusters WHERE code=$1)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, code).Scan(&exists)
	return exists, err
}

func (r *clusterRepository) ListActive(ctx context.Context) ([]domain.Cluster, error) {
	const query = `
        SELECT id, code, name, active, created_at, updated_at
        FROM clusters WHERE active ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Cluster
	for rows.Next() {
		var cluster domain.Cluster
		if err := rows.Scan(&cluster.ID, &cluster.Code, &cluster.Name, &cluster.Active,
			&cluster.CreatedAt, &cluster.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, cluster)
	}
	return result, rows.Err()
}

func (r *clusterRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Cluster, error) {
	var cluster domain.Cluster
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&cluster.ID,
		&cluster.Code,
		&cluster.Name,
		&cluster.Active,
		&cluster.CreatedAt,
		&cluster.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &cluster, nil
}
