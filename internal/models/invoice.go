package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is always derived from the stored amounts and the due
// date; it is never updated independently of them.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPartial InvoiceStatus = "partial"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

func (s InvoiceStatus) String() string { return string(s) }

// IsValid reports whether s is one of the known statuses.
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPartial, InvoiceStatusPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

// Invoice is the aggregate root of the billing engine: one contract,
// one period, rent plus service lines plus the unpaid remainder carried
// forward from earlier periods.
//
// Invariants: TotalAmount = RentAmount + ServiceAmount + PreviousDebt,
// fixed at creation; RemainingAmount = TotalAmount - PaidAmount and
// PaidAmount = sum of linked transaction amounts, recomputed on every
// payment mutation. The composite unique index keeps at most one
// invoice per (contract, period).
type Invoice struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	ContractID      uint              `gorm:"not null;uniqueIndex:uq_invoices_contract_period" json:"contract_id"`
	PeriodMonth     int               `gorm:"not null;uniqueIndex:uq_invoices_contract_period" json:"period_month"`
	PeriodYear      int               `gorm:"not null;uniqueIndex:uq_invoices_contract_period" json:"period_year"`
	InvoiceDate     time.Time         `gorm:"not null" json:"invoice_date"`
	DueDate         time.Time         `gorm:"not null" json:"due_date"`
	RentAmount      decimal.Decimal   `gorm:"type:decimal(14,2);not null" json:"rent_amount"`
	ServiceAmount   decimal.Decimal   `gorm:"type:decimal(14,2);not null" json:"service_amount"`
	PreviousDebt    decimal.Decimal   `gorm:"type:decimal(14,2);not null" json:"previous_debt"`
	TotalAmount     decimal.Decimal   `gorm:"type:decimal(14,2);not null" json:"total_amount"`
	PaidAmount      decimal.Decimal   `gorm:"type:decimal(14,2);not null" json:"paid_amount"`
	RemainingAmount decimal.Decimal   `gorm:"type:decimal(14,2);not null" json:"remaining_amount"`
	Status          InvoiceStatus     `gorm:"not null" json:"status"`
	Version         int               `gorm:"not null;default:1" json:"-"` // optimistic lock for aggregate recompute
	Items           []InvoiceLineItem `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
	Transactions    []Transaction     `gorm:"foreignKey:InvoiceID" json:"transactions,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// InvoiceLineItem is one charged service on an invoice. Meter lines
// carry Usage (= meter_end - meter_start) and Amount = Usage * Price;
// quantity lines carry Quantity and Amount = Price * Quantity.
type InvoiceLineItem struct {
	ID         uint               `gorm:"primaryKey" json:"id"`
	InvoiceID  uint               `gorm:"not null;index" json:"invoice_id"`
	ServiceID  uint               `gorm:"not null" json:"service_id"`
	Service    *ServiceDefinition `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
	Unit       string             `gorm:"not null" json:"unit"`
	Price      decimal.Decimal    `gorm:"type:decimal(14,2);not null" json:"price"`
	Quantity   *int               `json:"quantity,omitempty"`
	Usage      *int64             `json:"usage,omitempty"`
	MeterStart *int64             `json:"meter_start,omitempty"`
	MeterEnd   *int64             `json:"meter_end,omitempty"`
	Amount     decimal.Decimal    `gorm:"type:decimal(14,2);not null" json:"amount"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}
