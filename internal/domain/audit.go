package domain

import "time"

// AuditAction captures what kind of change an audit entry records.
type AuditAction string

const (
	AuditActionCreate       AuditAction = "CREATE"
	AuditActionReassign     AuditAction = "REASSIGN"
	AuditActionDeallocate   AuditAction = "DEALLOCATE"
	AuditActionAccessDenied AuditAction = "ACCESS_DENIED"
)

// AuditLog is an immutable trail entry for allocation-status changes and
// access-denial decisions.
type AuditLog struct {
	ID         int64
	ActorID    *int64
	Action     AuditAction
	EntityType string
	EntityID   int64
	OldValues  map[string]any
	NewValues  map[string]any
	CreatedAt  time.Time
}
