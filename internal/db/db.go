package db

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nhatroapp/billing/internal/config"
	"github.com/nhatroapp/billing/internal/models"
)

const connectRetries = 10

// Connect opens the database, verifies connectivity and brings the
// schema up to date. TranslateError is on so unique-index violations
// surface as gorm.ErrDuplicatedKey regardless of driver; the billing
// engine relies on that for duplicate-period detection.
func Connect(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	dsn := NormalizeDSN(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is empty")
	}

	gormCfg := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	}

	var (
		conn *gorm.DB
		err  error
	)
	for i := 0; i < connectRetries; i++ {
		conn, err = open(cfg.Driver, dsn, gormCfg)
		if err == nil {
			break
		}
		log.Warn("database connection failed, retrying", zap.Error(err))
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connect database after retries: %w", err)
	}
	if err := conn.Exec("SELECT 1").Error; err != nil {
		return nil, fmt.Errorf("database ping: %w", err)
	}

	if cfg.Migrations && cfg.Driver == "postgres" {
		if err := runSQLMigrations(dsn, cfg.MigrationsDir); err != nil {
			return nil, fmt.Errorf("sql migrations: %w", err)
		}
	} else {
		if err := AutoMigrate(conn); err != nil {
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
	}
	log.Info("database ready", zap.String("driver", cfg.Driver))
	return conn, nil
}

func open(driver, dsn string, cfg *gorm.Config) (*gorm.DB, error) {
	switch driver {
	case "sqlite":
		return gorm.Open(sqlite.Open(dsn), cfg)
	default:
		return gorm.Open(postgres.Open(dsn), cfg)
	}
}

// AutoMigrate creates/updates the schema for every billing model. The
// SQL migration path is preferred in production; this keeps local
// development and tests friction-free.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&models.ServiceDefinition{},
		&models.MeterReading{},
		&models.Contract{},
		&models.ContractService{},
		&models.Account{},
		&models.Invoice{},
		&models.InvoiceLineItem{},
		&models.Transaction{},
	)
}

// NormalizeDSN trims quotes/whitespace and, for key=value form,
// guarantees an sslmode so lib/pq style strings work unchanged.
func NormalizeDSN(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"'")
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return s
	}
	if strings.Contains(s, "=") && !strings.Contains(lower, "sslmode=") {
		s = strings.Join(strings.Fields(s), " ") + " sslmode=disable"
	}
	return s
}
