package events

import (
	"time"

	"github.com/spec-kit/ops-hub/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAllocationCreated     EventType = "allocation_created"
	EventAllocationReassigned  EventType = "allocation_reassigned"
	EventAllocationDeallocated EventType = "allocation_deallocated"
	EventAccessDenied          EventType = "access_denied"
)

// Event represents a domain event emitted by services. Delivery and storage
// are the subscribers' concern.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ActorID   *int64      `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// AllocationCreatedPayload payload.
type AllocationCreatedPayload struct {
	AllocationID   int64                 `json:"allocation_id"`
	CustomerID     int64                 `json:"customer_id"`
	CustomerCode   string                `json:"customer_code"`
	UserID         int64                 `json:"user_id"`
	RoleCode       string                `json:"role_code"`
	AllocationType domain.AllocationType `json:"allocation_type"`
}

// AllocationReassignedPayload payload.
type AllocationReassignedPayload struct {
	AllocationID    int64   `json:"allocation_id"`
	CustomerID      int64   `json:"customer_id"`
	CustomerCode    string  `json:"customer_code"`
	PreviousUserIDs []int64 `json:"previous_user_ids"`
	NewUserID       int64   `json:"new_user_id"`
	Reason          string  `json:"reason,omitempty"`
}

// AllocationDeallocatedPayload payload.
type AllocationDeallocatedPayload struct {
	AllocationID int64  `json:"allocation_id"`
	CustomerID   int64  `json:"customer_id"`
	UserID       int64  `json:"user_id"`
	Reason       string `json:"reason,omitempty"`
}

// AccessDeniedPayload payload.
type AccessDeniedPayload struct {
	TargetType string `json:"target_type"`
	TargetID   int64  `json:"target_id"`
	Reason     string `json:"reason"`
}
