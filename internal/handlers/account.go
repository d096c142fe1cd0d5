package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/nhatroapp/billing/internal/httpx"
	"github.com/nhatroapp/billing/internal/models"
)

// AccountHandler exposes account balances for the payment UI.
type AccountHandler struct {
	DB *gorm.DB
}

func NewAccountHandler(db *gorm.DB) *AccountHandler {
	return &AccountHandler{DB: db}
}

// List: GET /accounts
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	var accounts []models.Account
	if err := h.DB.WithContext(r.Context()).Order("id").Find(&accounts).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_accounts", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": accounts})
}
