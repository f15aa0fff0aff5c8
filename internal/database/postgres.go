package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/noah-isme/presensi-api/internal/models"
)

// ConnectPostgres establishes a connection to the PostgreSQL database using
// the provided DSN. Driver error translation is enabled so duplicate-key
// violations surface as gorm.ErrDuplicatedKey at the repository layer.
func ConnectPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn must not be empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return db, nil
}

// Migrate applies the schema for all attendance entities. The partial unique
// index over currently-bound manual codes cannot be expressed through struct
// tags, so it is created explicitly after AutoMigrate.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Student{},
		&models.Teacher{},
		&models.Subject{},
		&models.SchoolClass{},
		&models.Timetable{},
		&models.AttendanceSession{},
		&models.Attendance{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if db.Dialector.Name() == "postgres" {
		if err := db.Exec(
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_active_manual_code
			 ON attendance_sessions (manual_code)
			 WHERE manual_code <> '' AND is_active`,
		).Error; err != nil {
			return fmt.Errorf("failed to create manual code index: %w", err)
		}
	}

	return nil
}
