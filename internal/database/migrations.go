package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationNormalizePermissionEmails = "2026-06-08_normalize_permission_emails"
	migrationLowercaseDealStatus       = "2026-07-21_lowercase_deal_status"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationNormalizePermissionEmails, apply: normalizePermissionEmails},
		{name: migrationLowercaseDealStatus, apply: lowercaseDealStatus},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// Entries written before normalization was enforced at the service boundary
// may carry mixed case or stray whitespace.
func normalizePermissionEmails(db *gorm.DB) error {
	return db.Exec("UPDATE permission_entries SET email = lower(trim(email));").Error
}

func lowercaseDealStatus(db *gorm.DB) error {
	return db.Exec("UPDATE deals SET status = lower(status);").Error
}
