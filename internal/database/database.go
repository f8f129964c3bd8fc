package database

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/config"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/department"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Connect(cfg *config.Config) error {
	var err error
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	slog.Info("database connected")
	return nil
}

// Models lists every engine table in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Department{},
		&models.Complaint{},
		&models.StatusChange{},
		&models.Notification{},
		&models.DailySequence{},
	}
}

// Migrate runs AutoMigrate for the engine tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// MigrateLogs creates the system log table used by the database log sink.
func MigrateLogs(db *gorm.DB) error {
	return db.AutoMigrate(&models.SystemLog{})
}

// SeedDepartments creates ledger rows for registry departments that do
// not exist yet. Existing counters are left untouched.
func SeedDepartments(db *gorm.DB, registry *department.Registry) (int, error) {
	created := 0
	for _, info := range registry.All() {
		var existing models.Department
		err := db.Where("name = ?", info.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, fmt.Errorf("failed to look up department %s: %w", info.Name, err)
		}

		dept := models.Department{
			Name:        info.Name,
			Description: info.Description,
			Email:       info.Email,
		}
		if err := db.Create(&dept).Error; err != nil {
			return created, fmt.Errorf("failed to seed department %s: %w", info.Name, err)
		}
		created++
	}
	return created, nil
}

// SeedUsers inserts directory users keyed by email. Users whose email is
// already present keep their row and id; name, role, department and
// student id are refreshed.
func SeedUsers(db *gorm.DB, users []models.User) (created, updated int, err error) {
	for _, u := range users {
		if u.Email == "" {
			return created, updated, fmt.Errorf("user %q has no email", u.Name)
		}
		if u.Role == models.RoleDepartment && u.Department == "" {
			return created, updated, fmt.Errorf("department user %s has no department", u.Email)
		}

		var existing models.User
		err := db.Where("email = ?", u.Email).First(&existing).Error
		switch {
		case err == nil:
			if err := db.Model(&existing).Updates(map[string]interface{}{
				"name":       u.Name,
				"role":       u.Role,
				"department": u.Department,
				"student_id": u.StudentID,
			}).Error; err != nil {
				return created, updated, fmt.Errorf("failed to update user %s: %w", u.Email, err)
			}
			updated++
		case errors.Is(err, gorm.ErrRecordNotFound):
			user := u
			if err := db.Create(&user).Error; err != nil {
				return created, updated, fmt.Errorf("failed to create user %s: %w", u.Email, err)
			}
			created++
		default:
			return created, updated, fmt.Errorf("failed to look up user %s: %w", u.Email, err)
		}
	}
	return created, updated, nil
}

func Ping() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
