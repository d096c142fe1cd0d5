package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/nhatroapp/billing/internal/models"
)

const defaultBulkConcurrency = 4

// InvoiceService builds and manages period invoices for rental
// contracts: rent + service usage + debt carried forward from earlier
// periods.
type InvoiceService struct {
	db        *gorm.DB
	contracts ContractDirectory
	readings  MeterReadingStore
	ledger    AccountLedger
	log       *zap.Logger

	// Now supplies "today" for status derivation; tests override it.
	Now func() time.Time
	// BulkConcurrency caps how many contracts CreateBulk processes in
	// parallel. One contract is never parallelized internally.
	BulkConcurrency int
}

func NewInvoiceService(db *gorm.DB, contracts ContractDirectory, readings MeterReadingStore, ledger AccountLedger, log *zap.Logger) *InvoiceService {
	if log == nil {
		log = zap.NewNop()
	}
	return &InvoiceService{
		db:              db,
		contracts:       contracts,
		readings:        readings,
		ledger:          ledger,
		log:             log,
		Now:             time.Now,
		BulkConcurrency: defaultBulkConcurrency,
	}
}

// CreateInvoiceInput identifies one contract and the billing period to
// invoice it for.
type CreateInvoiceInput struct {
	ContractID  uint
	InvoiceDate time.Time
	DueDate     time.Time
	PeriodMonth int
	PeriodYear  int
}

func (in CreateInvoiceInput) validate() error {
	if in.ContractID == 0 {
		return fmt.Errorf("%w: contract_id is required", ErrValidation)
	}
	if in.PeriodMonth < 1 || in.PeriodMonth > 12 {
		return fmt.Errorf("%w: period_month must be between 1 and 12", ErrValidation)
	}
	if in.PeriodYear < 2000 {
		return fmt.Errorf("%w: period_year is out of range", ErrValidation)
	}
	if in.InvoiceDate.IsZero() || in.DueDate.IsZero() {
		return fmt.Errorf("%w: invoice_date and due_date are required", ErrValidation)
	}
	return nil
}

// BuildResult is a freshly created invoice plus the soft warnings
// recorded while assembling its line items.
type BuildResult struct {
	Invoice  *models.Invoice `json:"invoice"`
	Warnings []Warning       `json:"warnings,omitempty"`
}

// Create builds and persists the invoice for one contract and period.
//
// Meter lines without a reading for the period are omitted with a
// warning; the invoice still builds. The header and its line items are
// inserted in one transaction, and the unique (contract, period) index
// makes the insert a compare-and-insert: a concurrent duplicate attempt
// fails with ErrDuplicatePeriod instead of double-billing the period.
func (s *InvoiceService) Create(ctx context.Context, in CreateInvoiceInput) (*BuildResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	contract, err := s.contracts.Get(ctx, in.ContractID)
	if err != nil {
		return nil, err
	}
	if !contract.IsActive() {
		return nil, fmt.Errorf("contract %d has status %q: %w", contract.ID, contract.Status, ErrInvalidContract)
	}

	items, warnings, err := s.buildLineItems(ctx, contract, in.PeriodMonth, in.PeriodYear)
	if err != nil {
		return nil, err
	}
	serviceAmount := decimal.Zero
	for _, it := range items {
		serviceAmount = serviceAmount.Add(it.Amount)
	}

	inv := &models.Invoice{
		ContractID:    contract.ID,
		PeriodMonth:   in.PeriodMonth,
		PeriodYear:    in.PeriodYear,
		InvoiceDate:   in.InvoiceDate,
		DueDate:       in.DueDate,
		RentAmount:    contract.MonthlyRent,
		ServiceAmount: serviceAmount,
		PaidAmount:    decimal.Zero,
		Items:         items,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		debt, err := previousDebt(tx, contract.ID, in.PeriodMonth, in.PeriodYear)
		if err != nil {
			return err
		}
		inv.PreviousDebt = debt
		inv.TotalAmount = inv.RentAmount.Add(inv.ServiceAmount).Add(debt)
		inv.RemainingAmount = inv.TotalAmount
		inv.Status = DeriveStatus(inv.TotalAmount, decimal.Zero, in.DueDate, s.Now())

		if err := tx.Create(inv).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("contract %d already invoiced for %d-%02d: %w",
					contract.ID, in.PeriodYear, in.PeriodMonth, ErrDuplicatePeriod)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, w := range warnings {
		s.log.Warn("invoice line omitted",
			zap.Uint("invoice_id", inv.ID),
			zap.Uint("service_id", w.ServiceID),
			zap.String("reason", w.Code))
	}
	return &BuildResult{Invoice: inv, Warnings: warnings}, nil
}

// buildLineItems prices every service attached to the contract.
func (s *InvoiceService) buildLineItems(ctx context.Context, contract *models.Contract, month, year int) ([]models.InvoiceLineItem, []Warning, error) {
	var (
		items    []models.InvoiceLineItem
		warnings []Warning
	)
	for _, cs := range contract.Services {
		if cs.Service == nil {
			return nil, nil, fmt.Errorf("service %d on contract %d: %w", cs.ServiceID, contract.ID, ErrNotFound)
		}
		item := models.InvoiceLineItem{
			ServiceID: cs.ServiceID,
			Unit:      cs.Service.Unit,
			Price:     cs.Price,
		}
		switch cs.Service.Unit {
		case models.UnitMeter:
			reading, err := s.readings.Find(ctx, contract.RoomID, cs.ServiceID, month, year)
			if err != nil {
				return nil, nil, err
			}
			if reading == nil {
				warnings = append(warnings, Warning{
					ServiceID: cs.ServiceID,
					Code:      WarnMeterReadingMissing,
					Message: fmt.Sprintf("no meter reading for service %q in room %d, period %d-%02d",
						cs.Service.Name, contract.RoomID, year, month),
				})
				continue
			}
			usage := reading.Usage()
			if usage < 0 {
				// the SQL schema forbids this, but AutoMigrate does not
				warnings = append(warnings, Warning{
					ServiceID: cs.ServiceID,
					Code:      WarnMeterReadingInvalid,
					Message: fmt.Sprintf("reading for service %q in room %d runs backwards (%d -> %d)",
						cs.Service.Name, contract.RoomID, reading.MeterStart, reading.MeterEnd),
				})
				continue
			}
			item.Usage = &usage
			item.MeterStart = &reading.MeterStart
			item.MeterEnd = &reading.MeterEnd
			item.Amount = cs.Price.Mul(decimal.NewFromInt(usage))
		default:
			qty := 1
			if cs.Quantity != nil {
				qty = *cs.Quantity
			}
			item.Quantity = &qty
			item.Amount = cs.Price.Mul(decimal.NewFromInt(int64(qty)))
		}
		items = append(items, item)
	}
	return items, warnings, nil
}

// previousDebt sums the unpaid remainder of the contract's invoices
// from periods strictly earlier than (month, year). Selection is by
// period, not by id or creation time, so backfilling an older period
// after a newer one exists still carries debt chronologically.
func previousDebt(tx *gorm.DB, contractID uint, month, year int) (decimal.Decimal, error) {
	var rows []models.Invoice
	err := tx.Select("remaining_amount").
		Where("contract_id = ?", contractID).
		Where("period_year < ? OR (period_year = ? AND period_month < ?)", year, year, month).
		Find(&rows).Error
	if err != nil {
		return decimal.Zero, err
	}
	debt := decimal.Zero
	for _, inv := range rows {
		if inv.RemainingAmount.GreaterThan(decimal.Zero) {
			debt = debt.Add(inv.RemainingAmount)
		}
	}
	return debt, nil
}

// BulkCreateInput bills many contracts for one shared period.
type BulkCreateInput struct {
	ContractIDs []uint
	InvoiceDate time.Time
	DueDate     time.Time
	PeriodMonth int
	PeriodYear  int
}

// BulkError reports the failure of a single contract inside a batch.
type BulkError struct {
	ContractID uint   `json:"contract_id"`
	Code       string `json:"error"`
	Message    string `json:"message"`
}

// BulkResult is a partial-success report: every contract either shows
// up under Created or under Errors.
type BulkResult struct {
	Created []*BuildResult `json:"created"`
	Errors  []BulkError    `json:"errors"`
}

// CreateBulk invokes Create once per contract, independently. One
// contract failing (duplicate period, ended contract, missing data)
// never aborts or rolls back the others, so re-running a batch is
// idempotent: already-billed contracts report duplicate_period while
// the rest still succeed. Distinct contracts run concurrently.
func (s *InvoiceService) CreateBulk(ctx context.Context, in BulkCreateInput) (*BulkResult, error) {
	if len(in.ContractIDs) == 0 {
		return nil, fmt.Errorf("%w: contract_ids is required", ErrValidation)
	}

	type outcome struct {
		res *BuildResult
		err error
	}
	outcomes := make([]outcome, len(in.ContractIDs))

	var g errgroup.Group
	limit := s.BulkConcurrency
	if limit <= 0 {
		limit = defaultBulkConcurrency
	}
	g.SetLimit(limit)
	for i, contractID := range in.ContractIDs {
		i, contractID := i, contractID
		g.Go(func() error {
			res, err := s.Create(ctx, CreateInvoiceInput{
				ContractID:  contractID,
				InvoiceDate: in.InvoiceDate,
				DueDate:     in.DueDate,
				PeriodMonth: in.PeriodMonth,
				PeriodYear:  in.PeriodYear,
			})
			outcomes[i] = outcome{res: res, err: err}
			return nil
		})
	}
	_ = g.Wait() // goroutines report through outcomes, never through the group

	result := &BulkResult{Created: []*BuildResult{}, Errors: []BulkError{}}
	for i, o := range outcomes {
		if o.err != nil {
			result.Errors = append(result.Errors, BulkError{
				ContractID: in.ContractIDs[i],
				Code:       ErrorCode(o.err),
				Message:    o.err.Error(),
			})
			continue
		}
		result.Created = append(result.Created, o.res)
	}
	s.log.Info("bulk invoice generation finished",
		zap.Int("period_month", in.PeriodMonth),
		zap.Int("period_year", in.PeriodYear),
		zap.Int("created", len(result.Created)),
		zap.Int("failed", len(result.Errors)))
	return result, nil
}

// Get loads one invoice with its line items and linked transactions.
func (s *InvoiceService) Get(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Items.Service").
		Preload("Transactions").
		First(&inv, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("invoice %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &inv, nil
}

// ListInvoicesInput filters and paginates the invoice list.
type ListInvoicesInput struct {
	ContractID uint
	Status     models.InvoiceStatus
	Limit      int
	Offset     int
}

// List returns a page of invoices, newest period first.
func (s *InvoiceService) List(ctx context.Context, in ListInvoicesInput) ([]models.Invoice, int64, error) {
	limit := in.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Model(&models.Invoice{})
	if in.ContractID != 0 {
		q = q.Where("contract_id = ?", in.ContractID)
	}
	if in.Status != "" {
		if !in.Status.IsValid() {
			return nil, 0, fmt.Errorf("%w: unknown status %q", ErrValidation, in.Status)
		}
		q = q.Where("status = ?", in.Status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var invs []models.Invoice
	err := q.Preload("Items").
		Order("period_year desc, period_month desc, id desc").
		Limit(limit).Offset(in.Offset).
		Find(&invs).Error
	if err != nil {
		return nil, 0, err
	}
	return invs, total, nil
}

// Delete removes an invoice explicitly. Every linked transaction is
// reversed against its account and detached first, so deletion never
// leaves balances or transactions pointing at a dead invoice.
func (s *InvoiceService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.Preload("Transactions").First(&inv, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("invoice %d: %w", id, ErrNotFound)
			}
			return err
		}
		for _, t := range inv.Transactions {
			if t.Type == models.TransactionTypeIncome {
				if err := s.ledger.Debit(tx, t.AccountID, t.Amount); err != nil {
					return err
				}
			} else {
				if err := s.ledger.Credit(tx, t.AccountID, t.Amount); err != nil {
					return err
				}
			}
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&models.Transaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceLineItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Invoice{}, id).Error
	})
}

// UpdateLineItemInput edits the price and/or quantity of one line item.
type UpdateLineItemInput struct {
	InvoiceID uint
	ItemID    uint
	Price     *decimal.Decimal
	Quantity  *int
}

// UpdateLineItem edits a line item while the invoice is not fully paid,
// recomputing service_amount, total, remaining and status in the same
// transaction. A fully paid invoice rejects the edit. PreviousDebt and
// PaidAmount are never touched by an edit.
func (s *InvoiceService) UpdateLineItem(ctx context.Context, in UpdateLineItemInput) (*models.Invoice, error) {
	if in.InvoiceID == 0 || in.ItemID == 0 {
		return nil, fmt.Errorf("%w: invoice_id and item_id are required", ErrValidation)
	}
	if in.Price == nil && in.Quantity == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}

	var updated *models.Invoice
	err := retryOnStale(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var inv models.Invoice
			if err := tx.Preload("Items").First(&inv, in.InvoiceID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("invoice %d: %w", in.InvoiceID, ErrNotFound)
				}
				return err
			}
			if inv.RemainingAmount.LessThanOrEqual(decimal.Zero) {
				return fmt.Errorf("invoice %d is fully paid: %w", inv.ID, ErrInvalidOperation)
			}

			var item *models.InvoiceLineItem
			for i := range inv.Items {
				if inv.Items[i].ID == in.ItemID {
					item = &inv.Items[i]
					break
				}
			}
			if item == nil {
				return fmt.Errorf("line item %d on invoice %d: %w", in.ItemID, in.InvoiceID, ErrNotFound)
			}
			if in.Quantity != nil && item.Unit == models.UnitMeter {
				return fmt.Errorf("%w: quantity of a meter line is derived from readings", ErrValidation)
			}

			if in.Price != nil {
				item.Price = *in.Price
			}
			if in.Quantity != nil {
				item.Quantity = in.Quantity
			}
			switch item.Unit {
			case models.UnitMeter:
				item.Amount = item.Price.Mul(decimal.NewFromInt(*item.Usage))
			default:
				qty := 1
				if item.Quantity != nil {
					qty = *item.Quantity
				}
				item.Amount = item.Price.Mul(decimal.NewFromInt(int64(qty)))
			}
			if err := tx.Model(&models.InvoiceLineItem{}).Where("id = ?", item.ID).
				Updates(map[string]any{
					"price":    item.Price,
					"quantity": item.Quantity,
					"amount":   item.Amount,
				}).Error; err != nil {
				return err
			}

			serviceAmount := decimal.Zero
			for _, it := range inv.Items {
				serviceAmount = serviceAmount.Add(it.Amount)
			}
			total := inv.RentAmount.Add(serviceAmount).Add(inv.PreviousDebt)
			remaining := total.Sub(inv.PaidAmount)
			status := DeriveStatus(total, inv.PaidAmount, inv.DueDate, s.Now())

			res := tx.Model(&models.Invoice{}).
				Where("id = ? AND version = ?", inv.ID, inv.Version).
				Updates(map[string]any{
					"service_amount":   serviceAmount,
					"total_amount":     total,
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
			inv.ServiceAmount = serviceAmount
			inv.TotalAmount = total
			inv.RemainingAmount = remaining
			inv.Status = status
			inv.Version++
			updated = &inv
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
