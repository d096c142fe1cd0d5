package services

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nhatroapp/billing/internal/models"
)

// Collaborators the billing engine consumes. The engine owns invoices,
// line items and transactions; contracts, meter readings and accounts
// belong to the surrounding application and are reached through these
// contracts.

// ContractDirectory resolves contracts with their attached services.
type ContractDirectory interface {
	// Get returns the contract with Services (and their definitions)
	// loaded, or ErrNotFound.
	Get(ctx context.Context, id uint) (*models.Contract, error)
}

// MeterReadingStore resolves the reading of one metered service in one
// room for one period.
type MeterReadingStore interface {
	// Find returns (nil, nil) when no reading exists for the period.
	Find(ctx context.Context, roomID, serviceID uint, month, year int) (*models.MeterReading, error)
}

// AccountLedger adjusts account balances. Both operations run inside
// the caller's transaction so a payment and its balance effect commit
// or roll back together.
type AccountLedger interface {
	Credit(tx *gorm.DB, accountID uint, amount decimal.Decimal) error
	Debit(tx *gorm.DB, accountID uint, amount decimal.Decimal) error
}
