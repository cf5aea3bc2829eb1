package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/ops-hub/internal/domain"
	"github.com/spec-kit/ops-hub/internal/repository"
)

// In-memory repository fakes backing the service tests.

type fakeClusterRepo struct {
	byID   map[int64]*domain.Cluster
	nextID int64
}

func (f *fakeClusterRepo) Create(_ context.Context, cluster *domain.Cluster) error {
	if cluster.ID == 0 {
		f.nextID++
		cluster.ID = f.nextID
	}
	f.byID[cluster.ID] = cluster
	return nil
}

func (f *fakeClusterRepo) GetByID(_ context.Context, id int64) (*domain.Cluster, error) {
	if cluster, ok := f.byID[id]; ok {
		return cluster, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeClusterRepo) GetByCode(_ context.Context, code string) (*domain.Cluster, error) {
	for _, cluster := range f.byID {
		if cluster.Code == code {
			return cluster, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeClusterRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	_, err := f.GetByCode(ctx, code)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (f *fakeClusterRepo) ListActive(_ context.Context) ([]domain.Cluster, error) {
	var result []domain.Cluster
	for _, cluster := range f.byID {
		if cluster.Active {
			result = append(result, *cluster)
		}
	}
	return result, nil
}

type fakeCircleRepo struct {
	byID   map[int64]*domain.Circle
	nextID int64
}

func (f *fakeCircleRepo) Create(_ context.Context, circle *domain.Circle) error {
	if circle.ID == 0 {
		f.nextID++
		circle.ID = f.nextID
	}
	f.byID[circle.ID] = circle
	return nil
}

func (f *fakeCircleRepo) GetByID(_ context.Context, id int64) (*domain.Circle, error) {
	if circle, ok := f.byID[id]; ok {
		return circle, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeCircleRepo) GetByCode(_ context.Context, code string) (*domain.Circle, error) {
	for _, circle := range f.byID {
		if circle.Code == code {
			return circle, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeCircleRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	_, err := f.GetByCode(ctx, code)
	return err == nil, nil
}

func (f *fakeCircleRepo) ListByCluster(_ context.Context, clusterID int64) ([]domain.Circle, error) {
	var result []domain.Circle
	for _, circle := range f.byID {
		if circle.ClusterID != nil && *circle.ClusterID == clusterID && circle.Active {
			result = append(result, *circle)
		}
	}
	return result, nil
}

type fakeZoneRepo struct {
	byID   map[int64]*domain.Zone
	nextID int64
}

func (f *fakeZoneRepo) Create(_ context.Context, zone *domain.Zone) error {
	if zone.ID == 0 {
		f.nextID++
		zone.ID = f.nextID
	}
	f.byID[zone.ID] = zone
	return nil
}

func (f *fakeZoneRepo) GetByID(_ context.Context, id int64) (*domain.Zone, error) {
	if zone, ok := f.byID[id]; ok {
		return zone, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeZoneRepo) GetByCode(_ context.Context, code string) (*domain.Zone, error) {
	for _, zone := range f.byID {
		if zone.Code == code {
			return zone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeZoneRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	_, err := f.GetByCode(ctx, code)
	return err == nil, nil
}

func (f *fakeZoneRepo) ListByCircle(_ context.Context, circleID int64) ([]domain.Zone, error) {
	var result []domain.Zone
	for _, zone := range f.byID {
		if zone.CircleID != nil && *zone.CircleID == circleID && zone.Active {
			result = append(result, *zone)
		}
	}
	return result, nil
}

type fakeAreaRepo struct {
	byID   map[int64]*domain.Area
	nextID int64
}

func (f *fakeAreaRepo) Create(_ context.Context, area *domain.Area) error {
	if area.ID == 0 {
		f.nextID++
		area.ID = f.nextID
	}
	f.byID[area.ID] = area
	return nil
}

func (f *fakeAreaRepo) GetByID(_ context.Context, id int64) (*domain.Area, error) {
	if area, ok := f.byID[id]; ok {
		return area, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAreaRepo) GetByCode(_ context.Context, code string) (*domain.Area, error) {
	for _, area := range f.byID {
		if area.Code == code {
			return area, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAreaRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	_, err := f.GetByCode(ctx, code)
	return err == nil, nil
}

func (f *fakeAreaRepo) ListByZone(_ context.Context, zoneID int64) ([]domain.Area, error) {
	var result []domain.Area
	for _, area := range f.byID {
		if area.ZoneID != nil && *area.ZoneID == zoneID && area.Active {
			result = append(result, *area)
		}
	}
	return result, nil
}

type fakeUserRepo struct {
	byID   map[int64]*domain.User
	nextID int64
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	f.nextID++
	user.ID = f.nextID
	f.byID[user.ID] = user
	return nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := f.byID[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	f.byID[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	if user, ok := f.byID[id]; ok {
		return user, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) GetByEmployeeID(_ context.Context, employeeID string) (*domain.User, error) {
	for _, user := range f.byID {
		if user.EmployeeID == employeeID {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, user := range f.byID {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, user := range f.byID {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) ListByArea(_ context.Context, areaID int64) ([]domain.User, error) {
	var result []domain.User
	for _, user := range f.byID {
		if user.AreaID != nil && *user.AreaID == areaID && user.Active {
			result = append(result, *user)
		}
	}
	return result, nil
}

// geoChain lets the customer fake answer hierarchy-scoped lists without a
// SQL join.
type geoChain struct {
	ZoneID    *int64
	CircleID  *int64
	ClusterID *int64
}

type fakeCustomerRepo struct {
	byID   map[int64]*domain.Customer
	chains map[int64]geoChain
	nextID int64
}

func (f *fakeCustomerRepo) Create(_ context.Context, customer *domain.Customer) error {
	f.nextID++
	customer.ID = f.nextID
	f.byID[customer.ID] = customer
	return nil
}

func (f *fakeCustomerRepo) Update(_ context.Context, customer *domain.Customer) error {
	if _, ok := f.byID[customer.ID]; !ok {
		return pgx.ErrNoRows
	}
	f.byID[customer.ID] = customer
	return nil
}

func (f *fakeCustomerRepo) GetByID(_ context.Context, id int64) (*domain.Customer, error) {
	if customer, ok := f.byID[id]; ok {
		return customer, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeCustomerRepo) GetByCode(_ context.Context, code string) (*domain.Customer, error) {
	for _, customer := range f.byID {
		if customer.CustomerCode == code {
			return customer, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeCustomerRepo) ExistsByPhoneEncrypted(_ context.Context, phoneEncrypted string) (bool, error) {
	for _, customer := range f.byID {
		if customer.PhoneEncrypted == phoneEncrypted {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCustomerRepo) ListByArea(_ context.Context, areaID int64) ([]domain.Customer, error) {
	return f.filter(func(c *domain.Customer, _ geoChain) bool {
		return c.AreaID != nil && *c.AreaID == areaID
	}), nil
}

func (f *fakeCustomerRepo) ListByZone(_ context.Context, zoneID int64) ([]domain.Customer, error) {
	return f.filter(func(_ *domain.Customer, chain geoChain) bool {
		return chain.ZoneID != nil && *chain.ZoneID == zoneID
	}), nil
}

func (f *fakeCustomerRepo) ListByCircle(_ context.Context, circleID int64) ([]domain.Customer, error) {
	return f.filter(func(_ *domain.Customer, chain geoChain) bool {
		return chain.CircleID != nil && *chain.CircleID == circleID
	}), nil
}

func (f *fakeCustomerRepo) ListByCluster(_ context.Context, clusterID int64) ([]domain.Customer, error) {
	return f.filter(func(_ *domain.Customer, chain geoChain) bool {
		return chain.ClusterID != nil && *chain.ClusterID == clusterID
	}), nil
}

func (f *fakeCustomerRepo) ListByIDs(_ context.Context, ids []int64) ([]domain.Customer, error) {
	var result []domain.Customer
	for _, id := range ids {
		if customer, ok := f.byID[id]; ok {
			result = append(result, *customer)
		}
	}
	return result, nil
}

func (f *fakeCustomerRepo) SumPendingAmount(_ context.Context, ids []int64) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, id := range ids {
		if customer, ok := f.byID[id]; ok {
			sum = sum.Add(customer.PendingAmount)
		}
	}
	return sum, nil
}

func (f *fakeCustomerRepo) SumPendingAmountAll(_ context.Context) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, customer := range f.byID {
		sum = sum.Add(customer.PendingAmount)
	}
	return sum, nil
}

func (f *fakeCustomerRepo) CountByStatus(_ context.Context, ids []int64) (map[domain.CustomerStatus]int64, error) {
	counts := make(map[domain.CustomerStatus]int64)
	for _, id := range ids {
		if customer, ok := f.byID[id]; ok {
			counts[customer.Status]++
		}
	}
	return counts, nil
}

func (f *fakeCustomerRepo) CountByStatusAll(_ context.Context) (map[domain.CustomerStatus]int64, error) {
	counts := make(map[domain.CustomerStatus]int64)
	for _, customer := range f.byID {
		counts[customer.Status]++
	}
	return counts, nil
}

func (f *fakeCustomerRepo) filter(match func(*domain.Customer, geoChain) bool) []domain.Customer {
	var result []domain.Customer
	for _, customer := range f.byID {
		var chain geoChain
		if customer.AreaID != nil {
			chain = f.chains[*customer.AreaID]
		}
		if match(customer, chain) {
			result = append(result, *customer)
		}
	}
	return result
}

type fakeAllocationRepo struct {
	byID   map[int64]*domain.CustomerAllocation
	nextID int64
}

func (f *fakeAllocationRepo) Create(_ context.Context, allocation *domain.CustomerAllocation) error {
	if allocation.Status == domain.AllocationStatusActive {
		for _, existing := range f.byID {
			if existing.CustomerID == allocation.CustomerID && existing.Status == domain.AllocationStatusActive {
				return repository.ErrActiveAllocationExists
			}
		}
	}
	f.nextID++
	allocation.ID = f.nextID
	f.byID[allocation.ID] = allocation
	return nil
}

func (f *fakeAllocationRepo) GetByID(_ context.Context, id int64) (*domain.CustomerAllocation, error) {
	if allocation, ok := f.byID[id]; ok {
		return allocation, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAllocationRepo) FindActiveByCustomer(_ context.Context, customerID int64) ([]domain.CustomerAllocation, error) {
	var result []domain.CustomerAllocation
	for _, allocation := range f.byID {
		if allocation.CustomerID == customerID && allocation.Status == domain.AllocationStatusActive {
			result = append(result, *allocation)
		}
	}
	return result, nil
}

func (f *fakeAllocationRepo) FindActiveByUser(_ context.Context, userID int64) ([]domain.CustomerAllocation, error) {
	var result []domain.CustomerAllocation
	for _, allocation := range f.byID {
		if allocation.UserID == userID && allocation.Status == domain.AllocationStatusActive {
			result = append(result, *allocation)
		}
	}
	return result, nil
}

func (f *fakeAllocationRepo) FindActiveByCustomerAndUser(_ context.Context, customerID, userID int64) (*domain.CustomerAllocation, error) {
	for _, allocation := range f.byID {
		if allocation.CustomerID == customerID && allocation.UserID == userID &&
			allocation.Status == domain.AllocationStatusActive {
			return allocation, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAllocationRepo) Reassign(ctx context.Context, params repository.ReassignParams) (*domain.CustomerAllocation, error) {
	active, _ := f.FindActiveByCustomer(ctx, params.CustomerID)
	activeIDs := make(map[int64]struct{}, len(active))
	for _, allocation := range active {
		activeIDs[allocation.ID] = struct{}{}
	}
	if len(active) != len(params.ExpectedActiveIDs) {
		return nil, repository.ErrStaleAllocation
	}
	for _, id := range params.ExpectedActiveIDs {
		if _, ok := activeIDs[id]; !ok {
			return nil, repository.ErrStaleAllocation
		}
	}

	for _, allocation := range active {
		stored := f.byID[allocation.ID]
		stored.Status = domain.AllocationStatusInactive
		reason := params.Reason
		stored.DeallocationReason = &reason
	}

	created := &domain.CustomerAllocation{
		CustomerID:     params.CustomerID,
		UserID:         params.NewUserID,
		RoleCode:       params.RoleCode,
		AllocationType: params.AllocationType,
		Status:         domain.AllocationStatusActive,
		AllocatedByID:  params.AllocatedByID,
		Notes:          params.Notes,
	}
	if err := f.Create(ctx, created); err != nil {
		return nil, repository.ErrStaleAllocation
	}
	return created, nil
}

func (f *fakeAllocationRepo) Deactivate(_ context.Context, customerID, userID int64, reason string) (*domain.CustomerAllocation, error) {
	for _, allocation := range f.byID {
		if allocation.CustomerID == customerID && allocation.UserID == userID &&
			allocation.Status == domain.AllocationStatusActive {
			allocation.Status = domain.AllocationStatusInactive
			allocation.DeallocationReason = &reason
			return allocation, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeAuditRepo struct {
	entries []domain.AuditLog
}

func (f *fakeAuditRepo) Create(_ context.Context, entry *domain.AuditLog) error {
	entry.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) ListByEntity(_ context.Context, entityType string, entityID int64) ([]domain.AuditLog, error) {
	var result []domain.AuditLog
	for _, entry := range f.entries {
		if entry.EntityType == entityType && entry.EntityID == entityID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func int64Ptr(v int64) *int64 {
	return &v
}
