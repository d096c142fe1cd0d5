package models

import "time"

// Billable service units. A quantity service is charged at a fixed
// price * quantity; a meter service is charged on the consumption delta
// between two readings.
const (
	UnitQuantity = "quantity"
	UnitMeter    = "meter"
)

// ServiceDefinition is immutable reference data for a billable service
// (electricity, water, garbage, internet...).
type ServiceDefinition struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Unit      string    `gorm:"not null" json:"unit"`
	UnitName  string    `json:"unit_name"` // kWh, m3, ...
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
