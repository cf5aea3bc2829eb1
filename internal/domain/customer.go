package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerStatus enumerates customer lifecycle states.
type CustomerStatus string

const (
	CustomerStatusActive    CustomerStatus = "ACTIVE"
	CustomerStatusInactive  CustomerStatus = "INACTIVE"
	CustomerStatusSuspended CustomerStatus = "SUSPENDED"
)

// Customer is a collections account attached to an Area. Phone and email are
// persisted only in encrypted form; plaintext never reaches storage.
type Customer struct {
	ID             int64
	CustomerCode   string
	FirstName      string
	MiddleName     string
	LastName       string
	AreaID         *int64
	Status         CustomerStatus
	PendingAmount  decimal.Decimal
	PhoneEncrypted string
	EmailEncrypted string
	Notes          string
	CreatedByID    *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DisplayName joins the name parts, falling back to the customer code.
func (c *Customer) DisplayName() string {
	name := c.FirstName
	if c.MiddleName != "" {
		if name != "" {
			name += " "
		}
		name += c.MiddleName
	}
	if c.LastName != "" {
		if name != "" {
			name += " "
		}
		name += c.LastName
	}
	if name == "" {
		return c.CustomerCode
	}
	return name
}
