package server

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nhatroapp/billing/internal/config"
	"github.com/nhatroapp/billing/internal/handlers"
	"github.com/nhatroapp/billing/internal/httpx"
	"github.com/nhatroapp/billing/internal/services"
	"github.com/nhatroapp/billing/internal/stores"
)

// New constructs the root http.Handler with all routes and middlewares
// applied.
func New(db *gorm.DB, cfg *config.Config, log *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	// --- Health endpoints ---
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	ledger := stores.NewAccounts(db)
	invSvc := services.NewInvoiceService(db, stores.NewContracts(db), stores.NewMeterReadings(db), ledger, log)
	if cfg != nil && cfg.Billing.BulkConcurrency > 0 {
		invSvc.BulkConcurrency = cfg.Billing.BulkConcurrency
	}
	paySvc := services.NewPaymentService(db, ledger, log)

	ih := handlers.NewInvoiceHandler(invSvc)
	mux.HandleFunc("/invoices", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			ih.List(w, r)
		case http.MethodPost:
			ih.Create(w, r)
		default:
			httpx.MethodNotAllowed(w, "GET,POST")
		}
	})
	mux.HandleFunc("/invoices/bulk", postOnly(ih.CreateBulk))
	mux.HandleFunc("/invoices/get", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httpx.MethodNotAllowed(w, "GET")
			return
		}
		ih.Get(w, r)
	})
	mux.HandleFunc("/invoices/delete", postOnly(ih.Delete))
	mux.HandleFunc("/invoices/items/update", postOnly(ih.UpdateItem))

	ph := handlers.NewPaymentHandler(paySvc)
	mux.HandleFunc("/payments", postOnly(ph.Create))
	mux.HandleFunc("/payments/remove", postOnly(ph.Remove))

	ah := handlers.NewAccountHandler(db)
	mux.HandleFunc("/accounts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httpx.MethodNotAllowed(w, "GET")
			return
		}
		ah.List(w, r)
	})

	return withRecover(withLogging(mux, log), log)
}

func postOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httpx.MethodNotAllowed(w, "POST")
			return
		}
		next(w, r)
	}
}

// statusRecorder captures the response code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withLogging(next http.Handler, log *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

func withRecover(next http.Handler, log *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic recovered", zap.Any("panic", rec), zap.String("path", r.URL.Path))
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", "")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
