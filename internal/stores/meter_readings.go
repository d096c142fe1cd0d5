package stores

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/nhatroapp/billing/internal/models"
)

// MeterReadings is the gorm-backed meter reading store.
type MeterReadings struct {
	DB *gorm.DB
}

func NewMeterReadings(db *gorm.DB) *MeterReadings { return &MeterReadings{DB: db} }

// Find returns the reading for (room, service, period), or nil when the
// period has not been read yet.
func (s *MeterReadings) Find(ctx context.Context, roomID, serviceID uint, month, year int) (*models.MeterReading, error) {
	var r models.MeterReading
	err := s.DB.WithContext(ctx).
		Where("room_id = ? AND service_id = ? AND period_month = ? AND period_year = ?", roomID, serviceID, month, year).
		First(&r).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}
