package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/ops-hub/internal/domain"
)

// CustomerRepository encapsulates customer persistence. Hierarchy-scoped
// lists join up the geography tree so callers never depend on preloaded
// associations.
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	Update(ctx context.Context, customer *domain.Customer) error
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)
	GetByCode(ctx context.Context, code string) (*domain.Customer, error)
	ExistsByPhoneEncrypted(ctx context.Context, phoneEncrypted string) (bool, error)
	ListByArea(ctx context.Context, areaID int64) ([]domain.Customer, error)
	ListByZone(ctx context.Context, zoneID int64) ([]domain.Customer, error)
	ListByCircle(ctx context.Context, circleID int64) ([]domain.Customer, error)
	ListByCluster(ctx context.Context, clusterID int64) ([]domain.Customer, error)
	ListByIDs(ctx context.Context, ids []int64) ([]domain.Customer, error)
	SumPendingAmount(ctx context.Context, ids []int64) (decimal.Decimal, error)
	SumPendingAmountAll(ctx context.Context) (decimal.Decimal, error)
	CountByStatus(ctx context.Context, ids []int64) (map[domain.CustomerStatus]int64, error)
	CountByStatusAll(ctx context.Context) (map[domain.CustomerStatus]int64, error)
}

type customerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository instantiates repository.
func NewCustomerRepository(pool *pgxpool.Pool) CustomerRepository {
	return &customerRepository{pool: pool}
}

const customerColumns = `c.id, c.customer_code, c.first_name, c.middle_name, c.last_name,
               c.area_id, c.status, c.pending_amount, c.phone_encrypted, c.email_encrypted,
               c.notes, c.created_by, c.created_at, c.updated_at`

func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	const query = `
        INSERT INTO customers (customer_code, first_name, middle_name, last_name, area_id,
            status, pending_amount, phone_encrypted, email_encrypted, notes, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		customer.CustomerCode,
		customer.FirstName,
		customer.MiddleName,
		customer.LastName,
		customer.AreaID,
		customer.Status,
		customer.PendingAmount,
		customer.PhoneEncrypted,
		customer.EmailEncrypted,
		customer.Notes,
		customer.CreatedByID,
	).Scan(&customer.ID, &customer.CreatedAt, &customer.UpdatedAt)
}

func (r *customerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	const query = `
        UPDATE customers SET first_name=$1, middle_name=$2, last_name=$3, area_id=$4,
            status=$5, pending_amount=$6, phone_encrypted=$7, email_encrypted=$8,
            notes=$9, updated_at=NOW()
        WHERE id=$10`
	cmd, err := r.pool.Exec(ctx, query,
		customer.FirstName,
		customer.MiddleName,
		customer.LastName,
		customer.AreaID,
		customer.Status,
		customer.PendingAmount,
		customer.PhoneEncrypted,
		customer.EmailEncrypted,
		customer.Notes,
		customer.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *customerRepository) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	const query = `SELECT ` + customerColumns + ` FROM customers c WHERE c.id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *customerRepository) GetByCode(ctx context.Context, code string) (*domain.Customer, error) {
	const query = `SELECT ` + customerColumns + ` FROM customers c WHERE c.customer_code=$1`
	return r.fetchSingle(ctx, query, code)
}

// ExistsByPhoneEncrypted relies on the cipher being deterministic: the same
// plaintext always maps to the same stored ciphertext.
func (r *customerRepository) ExistsByPhoneEncrypted(ctx context.Context, phoneEncrypted string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM customers WHERE phone_encrypted=$1)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, phoneEncrypted).Scan(&exists)
	return exists, err
}

func (r *customerRepository) ListByArea(ctx context.Context, areaID int64) ([]domain.Customer, error) {
	const query = `SELECT ` + customerColumns + ` FROM customers c WHERE c.area_id=$1`
	return r.list(ctx, query, areaID)
}

func (r *customerRepository) ListByZone(ctx context.Context, zoneID int64) ([]domain.Customer, error) {
	const query = `
        SELECT ` + customerColumns + `
        FROM customers c
        JOIN areas a ON a.id = c.area_id
        WHERE a.zone_id=$1`
	return r.list(ctx, query, zoneID)
}

func (r *customerRepository) ListByCircle(ctx context.Context, circleID int64) ([]domain.Customer, error) {
	const query = `
        SELECT ` + customerColumns + `
        FROM customers c
        JOIN areas a ON a.id = c.area_id
        JOIN zones z ON z.id = a.zone_id
        WHERE z.circle_id=$1`
	return r.list(ctx, query, circleID)
}

func (r *customerRepository) ListByCluster(ctx context.Context, clusterID int64) ([]domain.Customer, error) {
	const query = `
        SELECT ` + customerColumns + `
        FROM customers c
        JOIN areas a ON a.id = c.area_id
        JOIN zones z ON z.id = a.zone_id
        JOIN circles ci ON ci.id = z.circle_id
        WHERE ci.cluster_id=$1`
	return r.list(ctx, query, clusterID)
}

func (r *customerRepository) ListByIDs(ctx context.Context, ids []int64) ([]domain.Customer, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT ` + customerColumns + ` FROM customers c WHERE c.id = ANY($1)`
	return r.list(ctx, query, ids)
}

func (r *customerRepository) SumPendingAmount(ctx context.Context, ids []int64) (decimal.Decimal, error) {
	if len(ids) == 0 {
		return decimal.Zero, nil
	}
	const query = `SELECT COALESCE(SUM(pending_amount), 0) FROM customers WHERE id = ANY($1)`
	var sum decimal.Decimal
	if err := r.pool.QueryRow(ctx, query, ids).Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

func (r *customerRepository) SumPendingAmountAll(ctx context.Context) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(pending_amount), 0) FROM customers`
	var sum decimal.Decimal
	if err := r.pool.QueryRow(ctx, query).Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

func (r *customerRepository) CountByStatus(ctx context.Context, ids []int64) (map[domain.CustomerStatus]int64, error) {
	if len(ids) == 0 {
		return make(map[domain.CustomerStatus]int64), nil
	}
	const query = `SELECT status, COUNT(*) FROM customers WHERE id = ANY($1) GROUP BY status`
	return r.countByStatus(ctx, query, ids)
}

func (r *customerRepository) CountByStatusAll(ctx context.Context) (map[domain.CustomerStatus]int64, error) {
	const query = `SELECT status, COUNT(*) FROM customers GROUP BY status`
	return r.countByStatus(ctx, query)
}

func (r *customerRepository) countByStatus(ctx context.Context, query string, args ...any) (map[domain.CustomerStatus]int64, error) {
	counts := make(map[domain.CustomerStatus]int64)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status domain.CustomerStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *customerRepository) list(ctx context.Context, query string, arg any) ([]domain.Customer, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCustomers(rows)
}

func (r *customerRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Customer, error) {
	var customer domain.Customer
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&customer.ID,
		&customer.CustomerCode,
		&customer.FirstName,
		&customer.MiddleName,
		&customer.LastName,
		&customer.AreaID,
		&customer.Status,
		&customer.PendingAmount,
		&customer.PhoneEncrypted,
		&customer.EmailEncrypted,
		&customer.Notes,
		&customer.CreatedByID,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &customer, nil
}

func scanCustomers(rows pgx.Rows) ([]domain.Customer, error) {
	var result []domain.Customer
	for rows.Next() {
		var customer domain.Customer
		if err := rows.Scan(
			&customer.ID,
			&customer.CustomerCode,
			&customer.FirstName,
			&customer.MiddleName,
			&customer.LastName,
			&customer.AreaID,
			&customer.Status,
			&customer.PendingAmount,
			&customer.PhoneEncrypted,
			&customer.EmailEncrypted,
			&customer.Notes,
			&customer.CreatedByID,
			&customer.CreatedAt,
			&customer.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, customer)
	}
	return result, rows.Err()
}
