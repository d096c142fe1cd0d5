package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ContractStatusActive = "active"
	ContractStatusEnded  = "ended"
)

// Contract binds a tenant to a room with a monthly rent and a set of
// attached services. The billing engine only ever reads contracts; they
// are owned by the contract directory.
type Contract struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	RoomID      uint              `gorm:"not null;index" json:"room_id"`
	TenantID    uint              `gorm:"not null;index" json:"tenant_id"`
	MonthlyRent decimal.Decimal   `gorm:"type:decimal(14,2);not null" json:"monthly_rent"`
	Status      string            `gorm:"not null;default:'active'" json:"status"`
	Services    []ContractService `gorm:"foreignKey:ContractID" json:"services,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// IsActive reports whether invoices may be generated for the contract.
func (c *Contract) IsActive() bool { return c.Status == ContractStatusActive }

// ContractService attaches a billable service to a contract at an agreed
// price. Quantity is nil for metered services and defaults to 1 for
// flat quantity services when unset.
type ContractService struct {
	ID         uint               `gorm:"primaryKey" json:"id"`
	ContractID uint               `gorm:"not null;index" json:"contract_id"`
	ServiceID  uint               `gorm:"not null" json:"service_id"`
	Service    *ServiceDefinition `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
	Price      decimal.Decimal    `gorm:"type:decimal(14,2);not null" json:"price"`
	Quantity   *int               `json:"quantity,omitempty"`
}
