package stores

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/nhatroapp/billing/internal/models"
	"github.com/nhatroapp/billing/internal/services"
)

// Contracts is the gorm-backed contract directory.
type Contracts struct {
	DB *gorm.DB
}

func NewContracts(db *gorm.DB) *Contracts { return &Contracts{DB: db} }

func (s *Contracts) Get(ctx context.Context, id uint) (*models.Contract, error) {
	var c models.Contract
	err := s.DB.WithContext(ctx).Preload("Services.Service").First(&c, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("contract %d: %w", id, services.ErrNotFound)
		}
		return nil, err
	}
	return &c, nil
}
