package database

import (
	"fmt"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"po-tracking/config"
	"po-tracking/database/seeders"
	"po-tracking/logger"
	"po-tracking/models/clientconfig"
	"po-tracking/models/notification"
	"po-tracking/models/purchaseorder"
	"po-tracking/models/reservation"
	"po-tracking/models/syslog"
)

var DB *gorm.DB

// InitDB initializes the database connection with auto migration and indexing
func InitDB(settings *config.Settings) (*gorm.DB, error) {
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	database := os.Getenv("DB_DATABASE")
	user := os.Getenv("DB_USERNAME")
	password := os.Getenv("DB_PASSWORD")
	sslmode := os.Getenv("DB_SSLMODE")

	if sslmode == "" {
		sslmode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, database, sslmode)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Error("Failed to connect to the database", err)
		return nil, err
	}
	logger.Success("Successfully connected to the database")

	if err := Migrate(DB); err != nil {
		logger.Error("Failed to run migrations", err)
		return nil, err
	}
	logger.Success("All migrations completed successfully")

	seeders.SeedAgencyClients(DB, settings)

	return DB, nil
}

// Migrate runs auto migration for all models plus the raw-SQL indexes
// AutoMigrate cannot express.
func Migrate(db *gorm.DB) error {
	// Stage 1: tables without foreign keys
	stage1Models := []interface{}{
		&reservation.Reservation{},
		&clientconfig.ClientConfig{},
		&syslog.Entry{},
	}

	for _, model := range stage1Models {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	// Stage 2: tables referencing reservations
	stage2Models := []interface{}{
		&notification.Record{},
		&purchaseorder.Record{},
	}

	for _, model := range stage2Models {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	return createIndexes(db)
}

// createIndexes creates additional indexes for better performance and
// the at-most-once guarantees the scheduler relies on.
func createIndexes(db *gorm.DB) error {
	// One SENT notice per (reservation, kind). The scheduler also checks
	// before dispatching; this closes the crash-between-send-and-commit
	// window. Retries and manual resends update the existing row.
	if err := db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_notification_sent_once " +
			"ON notification_records(reservation_id, kind) WHERE status = 'sent'",
	).Error; err != nil {
		return fmt.Errorf("failed to create sent-once index: %w", err)
	}

	if err := db.Exec(
		"CREATE INDEX IF NOT EXISTS idx_notification_status ON notification_records(status)",
	).Error; err != nil {
		return fmt.Errorf("failed to create notification status index: %w", err)
	}

	if err := db.Exec(
		"CREATE INDEX IF NOT EXISTS idx_reservations_status_requires " +
			"ON reservations(po_status, requires_po)",
	).Error; err != nil {
		return fmt.Errorf("failed to create reservation status index: %w", err)
	}

	return nil
}
