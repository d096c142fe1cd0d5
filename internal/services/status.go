package services

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nhatroapp/billing/internal/models"
)

// DeriveStatus computes the invoice status from its amounts and due
// date. Paid wins over everything (covers exact payment and
// overpayment); overdue overrides partial and pending once the due date
// has passed. The due date itself is not yet overdue.
func DeriveStatus(total, paid decimal.Decimal, dueDate, today time.Time) models.InvoiceStatus {
	remaining := total.Sub(paid)
	if remaining.LessThanOrEqual(decimal.Zero) {
		return models.InvoiceStatusPaid
	}
	if dateOf(dueDate).Before(dateOf(today)) {
		return models.InvoiceStatusOverdue
	}
	if paid.GreaterThan(decimal.Zero) {
		return models.InvoiceStatusPartial
	}
	return models.InvoiceStatusPending
}

// dateOf truncates a timestamp to its calendar day so that due-date
// comparison ignores the time of day.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
