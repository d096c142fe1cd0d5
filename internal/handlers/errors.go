package handlers

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nhatroapp/billing/internal/httpx"
	"github.com/nhatroapp/billing/internal/services"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report field names by json tag so error details match the wire format
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// writeValidationError reports per-field problems for a bad request body.
func writeValidationError(w http.ResponseWriter, err error) {
	details := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
	}
	httpx.JSONErrorDetails(w, http.StatusBadRequest, "validation_failed", details)
}

// writeServiceError maps engine errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrInvalidContract):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrDuplicatePeriod),
		errors.Is(err, services.ErrConcurrencyConflict),
		errors.Is(err, services.ErrInvalidOperation):
		status = http.StatusConflict
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "" // never leak internals
	}
	httpx.JSONError(w, status, services.ErrorCode(err), msg)
}
