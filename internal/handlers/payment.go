package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nhatroapp/billing/internal/httpx"
	"github.com/nhatroapp/billing/internal/services"
)

// PaymentHandler exposes the payment allocator.
type PaymentHandler struct {
	Svc *services.PaymentService
}

func NewPaymentHandler(svc *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{Svc: svc}
}

type addPaymentRequest struct {
	InvoiceID uint            `json:"invoice_id" validate:"required"`
	AccountID uint            `json:"account_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method" validate:"required"`
	Date      string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Note      string          `json:"note"`
}

// Create: POST /payments
func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req addPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}
	var date time.Time
	if req.Date != "" {
		d, ok := parseDate(w, "date", req.Date)
		if !ok {
			return
		}
		date = d
	}
	t, err := h.Svc.AddPayment(r.Context(), services.AddPaymentInput{
		InvoiceID: req.InvoiceID,
		AccountID: req.AccountID,
		Amount:    req.Amount,
		Method:    req.Method,
		Date:      date,
		Note:      req.Note,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

// Remove: POST /payments/remove?id=
func (h *PaymentHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.Svc.RemovePayment(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusNoContent, nil)
}
