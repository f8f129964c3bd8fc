// Package testutil holds shared fixtures for package tests: an in-memory
// SQLite database migrated with the engine schema, and seeded directory
// users.
package testutil

import (
	"testing"

	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/database"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/department"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/models"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory database with the engine schema and the
// default departments. A single connection serializes all statements, so
// concurrent callers queue rather than fail with "database is locked".
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=1"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := database.SeedDepartments(db, department.Default()); err != nil {
		t.Fatalf("seed departments: %v", err)
	}
	return db
}

// CreateUser inserts a directory user and returns it.
func CreateUser(t testing.TB, db *gorm.DB, name, role, dept string) models.User {
	t.Helper()

	user := models.User{
		Name:       name,
		Email:      uuid.NewString() + "@example.edu",
		Role:       role,
		Department: dept,
	}
	if role == models.RoleStudent {
		user.StudentID = "S-" + uuid.NewString()[:8]
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return user
}

// Department loads the ledger row for name.
func Department(t testing.TB, db *gorm.DB, name string) models.Department {
	t.Helper()

	var dept models.Department
	if err := db.Where("name = ?", name).First(&dept).Error; err != nil {
		t.Fatalf("load department %s: %v", name, err)
	}
	return dept
}
