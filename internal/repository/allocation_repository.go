package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ops-hub/internal/domain"
)

// ErrStaleAllocation signals that the active-allocation state read by the
// caller changed before the transaction could commit. Retryable.
var ErrStaleAllocation = errors.New("active allocation changed concurrently")

// ErrActiveAllocationExists signals the partial unique index on
// (customer_id) WHERE status='ACTIVE' rejected a second active row.
var ErrActiveAllocationExists = errors.New("customer already has an active allocation")

const uniqueViolationCode = "23505"

// ReassignParams bundles the inputs of an atomic reassignment.
// ExpectedActiveIDs is the active-allocation set the caller observed; the
// transaction re-reads it under lock and refuses to proceed on mismatch.
type ReassignParams struct {
	CustomerID        int64
	NewUserID         int64
	RoleCode          string
	AllocationType    domain.AllocationType
	AllocatedByID     *int64
	Reason            string
	Notes             string
	ExpectedActiveIDs []int64
}

// AllocationRepository encapsulates customer-allocation persistence and the
// atomic reassignment primitive.
type AllocationRepository interface {
	Create(ctx context.Context, allocation *domain.CustomerAllocation) error
	GetByID(ctx context.Context, id int64) (*domain.CustomerAllocation, error)
	FindActiveByCustomer(ctx context.Context, customerID int64) ([]domain.CustomerAllocation, error)
	FindActiveByUser(ctx context.Context, userID int64) ([]domain.CustomerAllocation, error)
	FindActiveByCustomerAndUser(ctx context.Context, customerID, userID int64) (*domain.CustomerAllocation, error)
	Reassign(ctx context.Context, params ReassignParams) (*domain.CustomerAllocation, error)
	Deactivate(ctx context.Context, customerID, userID int64, reason string) (*domain.CustomerAllocation, error)
}

type allocationRepository struct {
	pool *pgxpool.Pool
}

// NewAllocationRepository instantiates repository.
func NewAllocationRepository(pool *pgxpool.Pool) AllocationRepository {
	return &allocationRepository{pool: pool}
}

const allocationColumns = `id, customer_id, user_id, role_code, allocation_type, status,
               allocated_by, allocated_at, deallocated_at, deallocation_reason, notes`

func (r *allocationRepository) Create(ctx context.Context, allocation *domain.CustomerAllocation) error {
	const query = `
        INSERT INTO customer_allocations (customer_id, user_id, role_code, allocation_type, status, allocated_by, notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, allocated_at`
	err := r.pool.QueryRow(ctx, query,
		allocation.CustomerID,
		allocation.UserID,
		allocation.RoleCode,
		allocation.AllocationType,
		allocation.Status,
		allocation.AllocatedByID,
		allocation.Notes,
	).Scan(&allocation.ID, &allocation.AllocatedAt)
	if isUniqueViolation(err) {
		return ErrActiveAllocationExists
	}
	return err
}

func (r *allocationRepository) GetByID(ctx context.Context, id int64) (*domain.CustomerAllocation, error) {
	const query = `SELECT ` + allocationColumns + ` FROM customer_allocations WHERE id=$1`
	var allocation domain.CustomerAllocation
	if err := scanAllocation(r.pool.QueryRow(ctx, query, id), &allocation); err != nil {
		return nil, err
	}
	return &allocation, nil
}

func (r *allocationRepository) FindActiveByCustomer(ctx context.Context, customerID int64) ([]domain.CustomerAllocation, error) {
	const query = `SELECT ` + allocationColumns + `
        FROM customer_allocations WHERE customer_id=$1 AND status='ACTIVE'`
	return r.list(ctx, query, customerID)
}

func (r *allocationRepository) FindActiveByUser(ctx context.Context, userID int64) ([]domain.CustomerAllocation, error) {
	const query = `SELECT ` + allocationColumns + `
        FROM customer_allocations WHERE user_id=$1 AND status='ACTIVE'`
	return r.list(ctx, query, userID)
}

func (r *allocationRepository) FindActiveByCustomerAndUser(ctx context.Context, customerID, userID int64) (*domain.CustomerAllocation, error) {
	const query = `SELECT ` + allocationColumns + `
        FROM customer_allocations WHERE customer_id=$1 AND user_id=$2 AND status='ACTIVE'`
	var allocation domain.CustomerAllocation
	if err := scanAllocation(r.pool.QueryRow(ctx, query, customerID, userID), &allocation); err != nil {
		return nil, err
	}
	return &allocation, nil
}

// Reassign deactivates the customer's current active allocations and
// activates the new one inside a single transaction. The active rows are
// locked FOR UPDATE and compared against the set the caller observed; any
// drift aborts with ErrStaleAllocation so nothing is partially applied.
func (r *allocationRepository) Reassign(ctx context.Context, params ReassignParams) (*domain.CustomerAllocation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const lockQuery = `
        SELECT id FROM customer_allocations
        WHERE customer_id=$1 AND status='ACTIVE'
        ORDER BY id
        FOR UPDATE`
	rows, err := tx.Query(ctx, lockQuery, params.CustomerID)
	if err != nil {
		return nil, err
	}
	var activeIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		activeIDs = append(activeIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !sameIDSet(activeIDs, params.ExpectedActiveIDs) {
		return nil, ErrStaleAllocation
	}

	if len(activeIDs) > 0 {
		const deactivateQuery = `
            UPDATE customer_allocations
            SET status='INACTIVE', deallocated_at=$1, deallocation_reason=$2
            WHERE id = ANY($3)`
		if _, err := tx.Exec(ctx, deactivateQuery, time.Now(), params.Reason, activeIDs); err != nil {
			return nil, err
		}
	}

	allocation := &domain.CustomerAllocation{
		CustomerID:     params.CustomerID,
		UserID:         params.NewUserID,
		RoleCode:       params.RoleCode,
		AllocationType: params.AllocationType,
		Status:         domain.AllocationStatusActive,
		AllocatedByID:  params.AllocatedByID,
		Notes:          params.Notes,
	}
	const insertQuery = `
        INSERT INTO customer_allocations (customer_id, user_id, role_code, allocation_type, status, allocated_by, notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, allocated_at`
	err = tx.QueryRow(ctx, insertQuery,
		allocation.CustomerID,
		allocation.UserID,
		allocation.RoleCode,
		allocation.AllocationType,
		allocation.Status,
		allocation.AllocatedByID,
		allocation.Notes,
	).Scan(&allocation.ID, &allocation.AllocatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrStaleAllocation
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return allocation, nil
}

func (r *allocationRepository) Deactivate(ctx context.Context, customerID, userID int64, reason string) (*domain.CustomerAllocation, error) {
	const query = `
        UPDATE customer_allocations
        SET status='INACTIVE', deallocated_at=NOW(), deallocation_reason=$1
        WHERE customer_id=$2 AND user_id=$3 AND status='ACTIVE'
        RETURNING ` + allocationColumns
	var allocation domain.CustomerAllocation
	if err := scanAllocation(r.pool.QueryRow(ctx, query, reason, customerID, userID), &allocation); err != nil {
		return nil, err
	}
	return &allocation, nil
}

func (r *allocationRepository) list(ctx context.Context, query string, arg any) ([]domain.CustomerAllocation, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CustomerAllocation
	for rows.Next() {
		var allocation domain.CustomerAllocation
		if err := scanAllocation(rows, &allocation); err != nil {
			return nil, err
		}
		result = append(result, allocation)
	}
	return result, rows.Err()
}

func scanAllocation(row pgx.Row, allocation *domain.CustomerAllocation) error {
	return row.Scan(
		&allocation.ID,
		&allocation.CustomerID,
		&allocation.UserID,
		&allocation.RoleCode,
		&allocation.AllocationType,
		&allocation.Status,
		&allocation.AllocatedByID,
		&allocation.AllocatedAt,
		&allocation.DeallocatedAt,
		&allocation.DeallocationReason,
		&allocation.Notes,
	)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

func sameIDSet(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[int64]struct{}, len(a))
	for _, id := range a {
		seen[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := seen[id]; !ok {
			return false
		}
	}
	return true
}
