package stores

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nhatroapp/billing/internal/models"
	"github.com/nhatroapp/billing/internal/services"
)

// Accounts is the gorm-backed account ledger. Balance adjustments are
// single atomic UPDATEs so concurrent movements never lose increments.
type Accounts struct {
	DB *gorm.DB
}

func NewAccounts(db *gorm.DB) *Accounts { return &Accounts{DB: db} }

func (s *Accounts) Credit(tx *gorm.DB, accountID uint, amount decimal.Decimal) error {
	return s.adjust(tx, accountID, amount)
}

func (s *Accounts) Debit(tx *gorm.DB, accountID uint, amount decimal.Decimal) error {
	return s.adjust(tx, accountID, amount.Neg())
}

func (s *Accounts) adjust(tx *gorm.DB, accountID uint, delta decimal.Decimal) error {
	res := tx.Model(&models.Account{}).
		Where("id = ?", accountID).
		Update("current_balance", gorm.Expr("current_balance + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("account %d: %w", accountID, services.ErrNotFound)
	}
	return nil
}
