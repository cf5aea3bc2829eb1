package domain

import "time"

// User is a field-operations employee placed at some level of the tree.
// Rank is derived from UserType via NormalizeRole, never stored.
type User struct {
	ID           int64
	EmployeeID   string
	Username     string
	Email        string
	FullName     string
	Phone        string
	PasswordHash string
	UserType     string
	AreaID       *int64
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Role returns the user's normalized role.
func (u *User) Role() Role {
	if u == nil {
		return NormalizeRole("")
	}
	return NormalizeRole(u.UserType)
}
