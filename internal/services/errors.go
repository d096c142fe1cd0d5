package services

import "errors"

// Sentinel errors of the billing engine. Callers match with errors.Is;
// handlers translate them to HTTP statuses via ErrorCode.
var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrInvalidContract     = errors.New("contract is not active")
	ErrDuplicatePeriod     = errors.New("invoice already exists for this period")
	ErrConcurrencyConflict = errors.New("concurrent update detected")
	ErrInvalidOperation    = errors.New("operation not allowed")
)

// ErrorCode maps an engine error to a stable machine-readable code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation_failed"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidContract):
		return "invalid_contract"
	case errors.Is(err, ErrDuplicatePeriod):
		return "duplicate_period"
	case errors.Is(err, ErrConcurrencyConflict):
		return "concurrency_conflict"
	case errors.Is(err, ErrInvalidOperation):
		return "invalid_operation"
	}
	return "internal_error"
}

// Warning codes attached to an invoice build result. Warnings are
// non-fatal: the invoice still builds without the affected line.
const (
	WarnMeterReadingMissing = "meter_reading_missing"
	WarnMeterReadingInvalid = "meter_reading_invalid"
)

// Warning records a soft problem encountered while building an invoice.
type Warning struct {
	ServiceID uint   `json:"service_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}
