package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionTypeIncome  = "income"
	TransactionTypeExpense = "expense"
)

// Transaction is a money movement against an account, optionally linked
// to an invoice. Invoice payments are income transactions; InvoiceID is
// nil for movements that do not touch an invoice.
type Transaction struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Reference string          `gorm:"not null;uniqueIndex" json:"reference"`
	InvoiceID *uint           `gorm:"index" json:"invoice_id,omitempty"`
	AccountID uint            `gorm:"not null;index" json:"account_id"`
	Type      string          `gorm:"not null" json:"type"`
	Method    string          `json:"method"` // cash, transfer...
	Amount    decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	Date      time.Time       `gorm:"not null" json:"date"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
