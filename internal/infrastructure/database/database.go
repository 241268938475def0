package database

import (
	"leadslot-backend/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open opens a GORM DB from DSN (Postgres pooler URL).
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") behind connection poolers (e.g. PgBouncer).
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{TranslateError: true})
}

// Models lists every table owned by the service, in migration order.
func Models() []interface{} {
	return []interface{}{
		&domain.Agent{},
		&domain.Wallet{},
		&domain.WalletTransaction{},
		&domain.Lead{},
		&domain.Contact{},
		&domain.Referral{},
		&domain.Report{},
		&domain.Payment{},
		&domain.NotificationEvent{},
	}
}

// AutoMigrate creates or updates all service tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
