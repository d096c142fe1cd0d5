package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nhatroapp/billing/internal/models"
)

// errStaleInvoice signals that another writer bumped the invoice
// version between our read and our aggregate update.
var errStaleInvoice = errors.New("stale invoice version")

// retryOnStale runs fn, retrying once with fresh reads when the
// invoice version check failed mid-flight. A second failure surfaces
// as ErrConcurrencyConflict.
func retryOnStale(fn func() error) error {
	err := fn()
	if !errors.Is(err, errStaleInvoice) {
		return err
	}
	err = fn()
	if errors.Is(err, errStaleInvoice) {
		return fmt.Errorf("invoice aggregates changed concurrently: %w", ErrConcurrencyConflict)
	}
	return err
}

// PaymentService records and reverses transactions against invoices,
// keeping paid_amount, remaining_amount and status consistent with the
// linked transaction set. paid_amount is always re-derived from that
// set inside the transaction, never adjusted incrementally, so
// concurrent or removed payments cannot make it drift.
type PaymentService struct {
	db     *gorm.DB
	ledger AccountLedger
	log    *zap.Logger

	// Now supplies "today" for status derivation; tests override it.
	Now func() time.Time
}

func NewPaymentService(db *gorm.DB, ledger AccountLedger, log *zap.Logger) *PaymentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PaymentService{db: db, ledger: ledger, log: log, Now: time.Now}
}

// AddPaymentInput records one payment against an invoice.
type AddPaymentInput struct {
	InvoiceID uint
	AccountID uint
	Amount    decimal.Decimal
	Method    string
	Date      time.Time
	Note      string
}

func (in AddPaymentInput) validate() error {
	if in.InvoiceID == 0 || in.AccountID == 0 {
		return fmt.Errorf("%w: invoice_id and account_id are required", ErrValidation)
	}
	if in.Amount.IsZero() {
		return fmt.Errorf("%w: amount must not be zero", ErrValidation)
	}
	return nil
}

// AddPayment creates an income transaction linked to the invoice,
// credits the account, and recomputes the invoice aggregates, all in
// one transaction. Negative amounts are accepted as corrections.
func (s *PaymentService) AddPayment(ctx context.Context, in AddPaymentInput) (*models.Transaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	date := in.Date
	if date.IsZero() {
		date = s.Now()
	}

	var created *models.Transaction
	err := retryOnStale(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var inv models.Invoice
			if err := tx.First(&inv, in.InvoiceID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("invoice %d: %w", in.InvoiceID, ErrNotFound)
				}
				return err
			}

			t := &models.Transaction{
				Reference: uuid.NewString(),
				InvoiceID: &inv.ID,
				AccountID: in.AccountID,
				Type:      models.TransactionTypeIncome,
				Method:    in.Method,
				Amount:    in.Amount,
				Date:      date,
				Note:      in.Note,
			}
			if err := tx.Create(t).Error; err != nil {
				return err
			}
			if err := s.ledger.Credit(tx, in.AccountID, in.Amount); err != nil {
				return err
			}
			if err := s.recomputeAggregates(tx, &inv); err != nil {
				return err
			}
			created = t
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("payment recorded",
		zap.Uint("invoice_id", in.InvoiceID),
		zap.Uint("transaction_id", created.ID),
		zap.String("amount", in.Amount.String()))
	return created, nil
}

// RemovePayment reverses the account effect of a linked transaction,
// deletes it, and recomputes the invoice aggregates from the remaining
// linked set.
func (s *PaymentService) RemovePayment(ctx context.Context, transactionID uint) error {
	if transactionID == 0 {
		return fmt.Errorf("%w: transaction_id is required", ErrValidation)
	}
	err := retryOnStale(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var t models.Transaction
			if err := tx.First(&t, transactionID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("transaction %d: %w", transactionID, ErrNotFound)
				}
				return err
			}
			if t.InvoiceID == nil {
				return fmt.Errorf("transaction %d is not linked to an invoice: %w", transactionID, ErrInvalidOperation)
			}
			var inv models.Invoice
			if err := tx.First(&inv, *t.InvoiceID).Error; err != nil {
				return err
			}

			if t.Type == models.TransactionTypeIncome {
				if err := s.ledger.Debit(tx, t.AccountID, t.Amount); err != nil {
					return err
				}
			} else {
				if err := s.ledger.Credit(tx, t.AccountID, t.Amount); err != nil {
					return err
				}
			}
			if err := tx.Delete(&models.Transaction{}, t.ID).Error; err != nil {
				return err
			}
			return s.recomputeAggregates(tx, &inv)
		})
	})
	if err != nil {
		return err
	}
	s.log.Info("payment removed", zap.Uint("transaction_id", transactionID))
	return nil
}

// recomputeAggregates re-derives paid_amount from the full linked
// transaction set and writes the three aggregate fields behind a
// version check, so two interleaved payment operations on the same
// invoice cannot both apply against a stale sum.
func (s *PaymentService) recomputeAggregates(tx *gorm.DB, inv *models.Invoice) error {
	var linked []models.Transaction
	if err := tx.Where("invoice_id = ?", inv.ID).Find(&linked).Error; err != nil {
		return err
	}
	paid := decimal.Zero
	for _, t := range linked {
		paid = paid.Add(t.Amount)
	}
	remaining := inv.TotalAmount.Sub(paid)
	status := DeriveStatus(inv.TotalAmount, paid, inv.DueDate, s.Now())

	res := tx.Model(&models.Invoice{}).
		Where("id = ? AND version = ?", inv.ID, inv.Version).
		Updates(map[string]any{
			"paid_amount":      paid,
			"remaining_amount": remaining,
			"status":           status,
			"version":          inv.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errStaleInvoice
	}
	inv.PaidAmount = paid
	inv.RemainingAmount = remaining
	inv.Status = status
	inv.Version++
	return nil
}
