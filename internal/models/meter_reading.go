package models

import "time"

// MeterReading holds the start and end reading of one metered service in
// one room for one billing period. At most one reading exists per
// (room, service, period); it is captured before the period is invoiced.
type MeterReading struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RoomID      uint      `gorm:"not null;uniqueIndex:uq_meter_readings_period" json:"room_id"`
	ServiceID   uint      `gorm:"not null;uniqueIndex:uq_meter_readings_period" json:"service_id"`
	PeriodMonth int       `gorm:"not null;uniqueIndex:uq_meter_readings_period" json:"period_month"`
	PeriodYear  int       `gorm:"not null;uniqueIndex:uq_meter_readings_period" json:"period_year"`
	MeterStart  int64     `gorm:"not null" json:"meter_start"`
	MeterEnd    int64     `gorm:"not null" json:"meter_end"` // meter_end >= meter_start
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Usage is the consumption delta charged for the period.
func (m *MeterReading) Usage() int64 {
	return m.MeterEnd - m.MeterStart
}
