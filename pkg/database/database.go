package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/oncolab/leukoflow/internal/config"
	"github.com/oncolab/leukoflow/internal/domain"
	"github.com/oncolab/leukoflow/internal/domain/patient"
	"github.com/oncolab/leukoflow/internal/domain/report"
	"github.com/oncolab/leukoflow/internal/domain/submission"
)

func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		PrepareStmt:                              true,
		DisableForeignKeyConstraintWhenMigrating: false,
		DisableAutomaticPing:                     false,
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: false,
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	schemas := []string{"clinical", "auth"} // logical namespace
	for _, schema := range schemas {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}

	models := []any{
		&domain.User{},
		&domain.DoctorPatient{},
		&domain.Notification{},
		&patient.Patient{},
		&report.Report{},
		&submission.Submission{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []struct {
		name  string
		query string
	}{
		// Spillover lookup: latest report for an exact (patient, doctor) pair
		{
			name:  "idx_reports_pair_date",
			query: `CREATE INDEX IF NOT EXISTS idx_reports_pair_date ON clinical.reports (patient_id, doctor_id, date DESC) WHERE deleted_at IS NULL`,
		},
		{
			name:  "idx_reports_status",
			query: `CREATE INDEX IF NOT EXISTS idx_reports_status ON clinical.reports (status) WHERE deleted_at IS NULL`,
		},
		// Patient search: case-insensitive name/email lookup
		{
			name:  "idx_patients_name_search",
			query: `CREATE INDEX IF NOT EXISTS idx_patients_name_trgm ON clinical.patients USING gin ((name || ' ' || email) gin_trgm_ops) WHERE deleted_at IS NULL`,
		},
		{
			name:  "idx_submissions_pair",
			query: `CREATE INDEX IF NOT EXISTS idx_submissions_pair ON clinical.pathology_submissions (patient_id, doctor_id, date DESC)`,
		},
	}

	for _, idx := range indexes {
		_ = db.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm").Error

		if err := db.Exec(idx.query).Error; err != nil {
			_ = err
		}
	}

	return nil
}
