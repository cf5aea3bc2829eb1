package domain

import "time"

// AllocationStatus enumerates allocation lifecycle states. Rows are never
// physically deleted; closure flips the status.
type AllocationStatus string

const (
	AllocationStatusActive   AllocationStatus = "ACTIVE"
	AllocationStatusInactive AllocationStatus = "INACTIVE"
)

// AllocationType differentiates assignment kinds.
type AllocationType string

const (
	AllocationTypePrimary   AllocationType = "PRIMARY"
	AllocationTypeSecondary AllocationType = "SECONDARY"
	AllocationTypeTemporary AllocationType = "TEMPORARY"
)

// CustomerAllocation links a customer to a field user. At most one ACTIVE
// row may exist per customer.
type CustomerAllocation struct {
	ID                 int64
	CustomerID         int64
	UserID             int64
	RoleCode           string
	AllocationType     AllocationType
	Status             AllocationStatus
	AllocatedByID      *int64
	AllocatedAt        time.Time
	DeallocatedAt      *time.Time
	DeallocationReason *string
	Notes              string
}
