package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nhatroapp/billing/internal/httpx"
	"github.com/nhatroapp/billing/internal/models"
	"github.com/nhatroapp/billing/internal/services"
)

const dateLayout = "2006-01-02"

// parseDate converts a validated date string, reporting a field-level
// validation error on failure.
func parseDate(w http.ResponseWriter, field, value string) (time.Time, bool) {
	d, err := time.Parse(dateLayout, value)
	if err != nil {
		httpx.JSONErrorDetails(w, http.StatusBadRequest, "validation_failed",
			map[string]string{field: "datetime"})
		return time.Time{}, false
	}
	return d, true
}

// InvoiceHandler exposes invoice generation and the invoice ledger.
type InvoiceHandler struct {
	Svc *services.InvoiceService
}

func NewInvoiceHandler(svc *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{Svc: svc}
}

type createInvoiceRequest struct {
	ContractID  uint   `json:"contract_id" validate:"required"`
	InvoiceDate string `json:"invoice_date" validate:"required,datetime=2006-01-02"`
	DueDate     string `json:"due_date" validate:"required,datetime=2006-01-02"`
	PeriodMonth int    `json:"period_month" validate:"required,min=1,max=12"`
	PeriodYear  int    `json:"period_year" validate:"required,min=2000"`
}

// Create: POST /invoices
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}
	invoiceDate, ok := parseDate(w, "invoice_date", req.InvoiceDate)
	if !ok {
		return
	}
	dueDate, ok := parseDate(w, "due_date", req.DueDate)
	if !ok {
		return
	}

	res, err := h.Svc.Create(r.Context(), services.CreateInvoiceInput{
		ContractID:  req.ContractID,
		InvoiceDate: invoiceDate,
		DueDate:     dueDate,
		PeriodMonth: req.PeriodMonth,
		PeriodYear:  req.PeriodYear,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

type bulkCreateRequest struct {
	ContractIDs []uint `json:"contract_ids" validate:"required,min=1"`
	InvoiceDate string `json:"invoice_date" validate:"required,datetime=2006-01-02"`
	DueDate     string `json:"due_date" validate:"required,datetime=2006-01-02"`
	PeriodMonth int    `json:"period_month" validate:"required,min=1,max=12"`
	PeriodYear  int    `json:"period_year" validate:"required,min=2000"`
}

// CreateBulk: POST /invoices/bulk – always a partial-success report.
func (h *InvoiceHandler) CreateBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}
	invoiceDate, ok := parseDate(w, "invoice_date", req.InvoiceDate)
	if !ok {
		return
	}
	dueDate, ok := parseDate(w, "due_date", req.DueDate)
	if !ok {
		return
	}

	res, err := h.Svc.CreateBulk(r.Context(), services.BulkCreateInput{
		ContractIDs: req.ContractIDs,
		InvoiceDate: invoiceDate,
		DueDate:     dueDate,
		PeriodMonth: req.PeriodMonth,
		PeriodYear:  req.PeriodYear,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

// Get: GET /invoices/get?id=
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	inv, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// List: GET /invoices?limit=&page=&status=&contract_id=
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	var contractID uint
	if v := r.URL.Query().Get("contract_id"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			contractID = uint(n)
		}
	}
	invs, total, err := h.Svc.List(r.Context(), services.ListInvoicesInput{
		ContractID: contractID,
		Status:     models.InvoiceStatus(r.URL.Query().Get("status")),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items": invs, "total": total, "limit": limit, "offset": offset,
	})
}

// Delete: POST /invoices/delete?id=
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusNoContent, nil)
}

type updateLineItemRequest struct {
	InvoiceID uint             `json:"invoice_id" validate:"required"`
	ItemID    uint             `json:"item_id" validate:"required"`
	Price     *decimal.Decimal `json:"price"`
	Quantity  *int             `json:"quantity"`
}

// UpdateItem: POST /invoices/items/update
func (h *InvoiceHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateLineItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}
	inv, err := h.Svc.UpdateLineItem(r.Context(), services.UpdateLineItemInput{
		InvoiceID: req.InvoiceID,
		ItemID:    req.ItemID,
		Price:     req.Price,
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// idParam reads a positive ?id= query parameter.
func idParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	idStr := r.URL.Query().Get("id")
	if idStr == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", "")
		return 0, false
	}
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", "")
		return 0, false
	}
	return uint(id), true
}
