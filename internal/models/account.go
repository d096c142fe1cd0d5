package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a cash/bank account whose balance is adjusted by every
// linked transaction creation or removal.
type Account struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Name           string          `gorm:"not null" json:"name"`
	CurrentBalance decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"current_balance"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
