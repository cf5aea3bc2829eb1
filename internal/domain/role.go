package domain

import "strings"

// Role is an organizational rank label after normalization. Unrecognized
// labels survive normalization as-is (trimmed, upper-cased) and always rank
// below every known role.
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleClusterHead Role = "CLUSTER_HEAD"
	RoleCircleHead  Role = "CIRCLE_HEAD"
	RoleZoneHead    Role = "ZONE_HEAD"
	RoleAreaHead    Role = "AREA_HEAD"
	RoleStoreHead   Role = "STORE_HEAD"
	RoleAgent       Role = "AGENT"
)

// RankUnknown is the rank of empty or unrecognized roles.
const RankUnknown = -1

// NormalizeRole maps a free-form user-type label onto a canonical Role.
// Empty or all-whitespace input normalizes to the empty Role, never to a
// known one.
func NormalizeRole(raw string) Role {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	switch normalized {
	case "CLUSTER_HEAD", "CLUSTER_LEAD":
		return RoleClusterHead
	case "CIRCLE_HEAD", "CIRCLE_LEAD":
		return RoleCircleHead
	case "ZONE_HEAD", "ZONE_LEAD":
		return RoleZoneHead
	case "AREA_HEAD", "AREA_LEAD":
		return RoleAreaHead
	case "STORE_LEAD", "STORE", "STORE_HEAD":
		return RoleStoreHead
	case "ANALYST", "FIELD_AGENT", "AGENT":
		return RoleAgent
	default:
		return Role(normalized)
	}
}

// Rank returns the role's position in the organizational order. Unknown
// roles rank strictly below AGENT.
func (r Role) Rank() int {
	switch r {
	case RoleAdmin:
		return 6
	case RoleClusterHead:
		return 5
	case RoleCircleHead:
		return 4
	case RoleZoneHead:
		return 3
	case RoleAreaHead:
		return 2
	case RoleStoreHead:
		return 1
	case RoleAgent:
		return 0
	default:
		return RankUnknown
	}
}

// Known reports whether the role is one of the seven canonical ranks.
func (r Role) Known() bool {
	return r.Rank() > RankUnknown
}

// IsAbove reports whether an actor with the first label strictly outranks
// the second. Equal rank is never above.
func IsAbove(actorType, targetType string) bool {
	return NormalizeRole(actorType).Rank() > NormalizeRole(targetType).Rank()
}
