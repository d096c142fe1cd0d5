package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/nhatroapp/billing/internal/models"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestDeriveStatus(t *testing.T) {
	today := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)
	yesterday := today.AddDate(0, 0, -1)

	tests := []struct {
		name  string
		total decimal.Decimal
		paid  decimal.Decimal
		due   time.Time
		want  models.InvoiceStatus
	}{
		{"unpaid before due date", d(3_000_000), d(0), tomorrow, models.InvoiceStatusPending},
		{"unpaid on due date", d(3_000_000), d(0), today, models.InvoiceStatusPending},
		{"unpaid past due date", d(3_000_000), d(0), yesterday, models.InvoiceStatusOverdue},
		{"partial before due date", d(3_000_000), d(1_000_000), tomorrow, models.InvoiceStatusPartial},
		{"partial past due date becomes overdue", d(3_000_000), d(1_000_000), yesterday, models.InvoiceStatusOverdue},
		{"exact payment", d(3_000_000), d(3_000_000), tomorrow, models.InvoiceStatusPaid},
		{"overpayment", d(3_000_000), d(3_200_000), tomorrow, models.InvoiceStatusPaid},
		{"paid wins even past due date", d(3_000_000), d(3_000_000), yesterday, models.InvoiceStatusPaid},
		{"zero total is paid", d(0), d(0), tomorrow, models.InvoiceStatusPaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveStatus(tt.total, tt.paid, tt.due, today)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeriveStatusIgnoresTimeOfDay(t *testing.T) {
	// Due at 23:59 today, checked at 00:01 today: same calendar day,
	// so not overdue yet.
	due := time.Date(2026, 2, 10, 23, 59, 0, 0, time.UTC)
	now := time.Date(2026, 2, 10, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, models.InvoiceStatusPending, DeriveStatus(d(100), d(0), due, now))
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "validation_failed", ErrorCode(ErrValidation))
	assert.Equal(t, "not_found", ErrorCode(ErrNotFound))
	assert.Equal(t, "invalid_contract", ErrorCode(ErrInvalidContract))
	assert.Equal(t, "duplicate_period", ErrorCode(ErrDuplicatePeriod))
	assert.Equal(t, "concurrency_conflict", ErrorCode(ErrConcurrencyConflict))
	assert.Equal(t, "invalid_operation", ErrorCode(ErrInvalidOperation))
	assert.Equal(t, "internal_error", ErrorCode(assert.AnError))
}
