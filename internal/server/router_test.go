package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nhatroapp/billing/internal/db"
	"github.com/nhatroapp/billing/internal/models"
	"github.com/nhatroapp/billing/internal/server"
)

func setupServer(t *testing.T) (*gorm.DB, http.Handler) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:srv_"+t.Name()+"?mode=memory&cache=shared"),
		&gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn, server.New(conn, nil, zap.NewNop())
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealthEndpoints(t *testing.T) {
	_, h := setupServer(t)
	for _, path := range []string{"/health", "/healthz"} {
		rec := doJSON(t, h, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200", path, rec.Code)
		}
	}
}

func TestInvoiceLifecycleHTTP(t *testing.T) {
	conn, h := setupServer(t)

	electric := models.ServiceDefinition{Name: "Điện", Unit: models.UnitMeter}
	if err := conn.Create(&electric).Error; err != nil {
		t.Fatalf("seed service: %v", err)
	}
	contract := models.Contract{
		RoomID: 301, TenantID: 301,
		MonthlyRent: decimal.NewFromInt(3_000_000),
		Status:      models.ContractStatusActive,
		Services: []models.ContractService{
			{ServiceID: electric.ID, Price: decimal.NewFromInt(3500)},
		},
	}
	if err := conn.Create(&contract).Error; err != nil {
		t.Fatalf("seed contract: %v", err)
	}
	reading := models.MeterReading{
		RoomID: 301, ServiceID: electric.ID,
		PeriodMonth: 2, PeriodYear: 2099,
		MeterStart: 1200, MeterEnd: 1216,
	}
	if err := conn.Create(&reading).Error; err != nil {
		t.Fatalf("seed reading: %v", err)
	}
	account := models.Account{Name: "Tiền mặt", CurrentBalance: decimal.Zero}
	if err := conn.Create(&account).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}

	// create the invoice; the far-future due date keeps it pending
	rec := doJSON(t, h, http.MethodPost, "/invoices", map[string]any{
		"contract_id":  contract.ID,
		"invoice_date": "2099-02-01",
		"due_date":     "2099-02-15",
		"period_month": 2,
		"period_year":  2099,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	created := decodeBody(t, rec)
	inv := created["invoice"].(map[string]any)
	invoiceID := uint(inv["id"].(float64))
	if inv["total_amount"] != "3056000" {
		t.Fatalf("total_amount = %v, want 3056000", inv["total_amount"])
	}
	if inv["status"] != "pending" {
		t.Fatalf("status = %v, want pending", inv["status"])
	}

	// a second create for the same period conflicts
	rec = doJSON(t, h, http.MethodPost, "/invoices", map[string]any{
		"contract_id":  contract.ID,
		"invoice_date": "2099-02-01",
		"due_date":     "2099-02-15",
		"period_month": 2,
		"period_year":  2099,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: status = %d, want 409", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "duplicate_period" {
		t.Fatalf("duplicate: error = %v", body["error"])
	}

	// pay part of it
	rec = doJSON(t, h, http.MethodPost, "/payments", map[string]any{
		"invoice_id": invoiceID,
		"account_id": account.ID,
		"amount":     "1000000",
		"method":     "cash",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("payment: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	payment := decodeBody(t, rec)
	txID := uint(payment["id"].(float64))

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/invoices/get?id=%d", invoiceID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status = %d", rec.Code)
	}
	got := decodeBody(t, rec)
	if got["status"] != "partial" {
		t.Fatalf("status after payment = %v, want partial", got["status"])
	}
	if got["remaining_amount"] != "2056000" {
		t.Fatalf("remaining = %v, want 2056000", got["remaining_amount"])
	}

	// listing shows it
	rec = doJSON(t, h, http.MethodGet, "/invoices?status=partial", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}
	list := decodeBody(t, rec)
	if list["total"].(float64) != 1 {
		t.Fatalf("list total = %v, want 1", list["total"])
	}

	// remove the payment, then delete the invoice
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/payments/remove?id=%d", txID), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("remove payment: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/invoices/delete?id=%d", invoiceID), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/invoices/get?id=%d", invoiceID), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: status = %d, want 404", rec.Code)
	}

	var acc models.Account
	if err := conn.First(&acc, account.ID).Error; err != nil {
		t.Fatalf("reload account: %v", err)
	}
	if !acc.CurrentBalance.IsZero() {
		t.Fatalf("balance = %s, want 0", acc.CurrentBalance)
	}
}

func TestCreateInvoiceValidationHTTP(t *testing.T) {
	_, h := setupServer(t)

	rec := doJSON(t, h, http.MethodPost, "/invoices", map[string]any{
		"contract_id":  1,
		"invoice_date": "2099-02-01",
		"due_date":     "2099-02-15",
		"period_month": 13,
		"period_year":  2099,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "validation_failed" {
		t.Fatalf("error = %v, want validation_failed", body["error"])
	}
	details := body["details"].(map[string]any)
	if details["period_month"] != "max" {
		t.Fatalf("details = %v, want period_month max violation", details)
	}
}

func TestCreateInvoiceBadDateHTTP(t *testing.T) {
	_, h := setupServer(t)

	rec := doJSON(t, h, http.MethodPost, "/invoices", map[string]any{
		"contract_id":  1,
		"invoice_date": "2099-02-01",
		"due_date":     "2099-2-1", // not the canonical layout
		"period_month": 2,
		"period_year":  2099,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "validation_failed" {
		t.Fatalf("error = %v, want validation_failed", body["error"])
	}
	if details := body["details"].(map[string]any); details["due_date"] == nil {
		t.Fatalf("details = %v, want due_date violation", details)
	}
}

func TestBulkEndpointHTTP(t *testing.T) {
	conn, h := setupServer(t)

	active := models.Contract{RoomID: 310, TenantID: 310, MonthlyRent: decimal.NewFromInt(2_000_000), Status: models.ContractStatusActive}
	ended := models.Contract{RoomID: 311, TenantID: 311, MonthlyRent: decimal.NewFromInt(2_000_000), Status: models.ContractStatusEnded}
	for _, c := range []*models.Contract{&active, &ended} {
		if err := conn.Create(c).Error; err != nil {
			t.Fatalf("seed contract: %v", err)
		}
	}

	rec := doJSON(t, h, http.MethodPost, "/invoices/bulk", map[string]any{
		"contract_ids": []uint{active.ID, ended.ID},
		"invoice_date": "2099-02-01",
		"due_date":     "2099-02-15",
		"period_month": 2,
		"period_year":  2099,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if n := len(body["created"].([]any)); n != 1 {
		t.Fatalf("created = %d, want 1", n)
	}
	errs := body["errors"].([]any)
	if len(errs) != 1 {
		t.Fatalf("errors = %d, want 1", len(errs))
	}
	if e := errs[0].(map[string]any); e["error"] != "invalid_contract" {
		t.Fatalf("bulk error = %v, want invalid_contract", e["error"])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, h := setupServer(t)
	rec := doJSON(t, h, http.MethodDelete, "/invoices", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != "GET,POST" {
		t.Fatalf("Allow = %q, want GET,POST", allow)
	}
}

func TestAccountsEndpoint(t *testing.T) {
	conn, h := setupServer(t)
	if err := conn.Create(&models.Account{Name: "Ngân hàng", CurrentBalance: decimal.NewFromInt(500_000)}).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	rec := doJSON(t, h, http.MethodGet, "/accounts", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if n := len(body["items"].([]any)); n != 1 {
		t.Fatalf("items = %d, want 1", n)
	}
}
