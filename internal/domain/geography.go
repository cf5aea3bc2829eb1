package domain

import "time"

// Cluster is the root of the organizational tree.
type Cluster struct {
	ID        int64
	Code      string
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Circle belongs to at most one Cluster; a nil parent leaves the chain
// unassigned above this level.
type Circle struct {
	ID        int64
	Code      string
	Name      string
	ClusterID *int64
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Zone belongs to at most one Circle.
type Zone struct {
	ID        int64
	Code      string
	Name      string
	CircleID  *int64
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Area is the leaf of the tree; users and customers attach here.
type Area struct {
	ID        int64
	Code      string
	Name      string
	ZoneID    *int64
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GeographyContext is a user's resolved position in the tree. A missing
// link leaves the remaining fields nil rather than failing; a user with no
// area yields an entirely empty context.
type GeographyContext struct {
	AreaID      *int64
	AreaName    *string
	ZoneID      *int64
	ZoneName    *string
	CircleID    *int64
	CircleName  *string
	ClusterID   *int64
	ClusterName *string
}

// Empty reports whether no level of the tree could be resolved.
func (g GeographyContext) Empty() bool {
	return g.AreaID == nil
}
