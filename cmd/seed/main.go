// seed loads departments and directory users into the complaints
// database from a YAML or JSON file.
//
// Departments come from the file when it lists any, otherwise from
// DEPARTMENTS_CONFIG_PATH or the built-in set. Users are upserted by
// email, so the command can be re-run after editing the file.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/config"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/database"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/department"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/identity"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/logging"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/models"
	"github.com/spf13/pflag"
)

type seedUser struct {
	Name       string `json:"name" yaml:"name"`
	Email      string `json:"email" yaml:"email"`
	Role       string `json:"role" yaml:"role"`
	Department string `json:"department" yaml:"department"`
	StudentID  string `json:"student_id" yaml:"student_id"`
}

type seedFile struct {
	Departments []department.Info `json:"departments" yaml:"departments"`
	Users       []seedUser        `json:"users" yaml:"users"`
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var filePath string
	var departmentsOnly bool
	var skipMigrate bool

	flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flagSet.StringVarP(&filePath, "file", "f", "", "seed file (.yaml, .yml or .json)")
	flagSet.BoolVar(&departmentsOnly, "departments-only", false, "seed departments and skip users")
	flagSet.BoolVar(&skipMigrate, "skip-migrate", false, "do not run schema migrations first")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	logging.Setup()
	cfg := config.Load()

	var file seedFile
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read seed file: %w", err)
		}
		if err := department.Decode(filePath, data, &file); err != nil {
			return fmt.Errorf("failed to parse seed file %s: %w", filePath, err)
		}
	}

	registry, err := registryFor(cfg, file)
	if err != nil {
		return err
	}

	users, err := toUsers(file.Users, registry)
	if err != nil {
		return err
	}

	if err := database.Connect(cfg); err != nil {
		return err
	}
	if sqlDB, err := database.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	if !skipMigrate {
		if err := database.Migrate(database.DB); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	seeded, err := database.SeedDepartments(database.DB, registry)
	if err != nil {
		return err
	}
	slog.Info("departments seeded", "created", seeded, "total", len(registry.All()))

	if departmentsOnly {
		return nil
	}

	created, updated, err := database.SeedUsers(database.DB, users)
	if err != nil {
		return err
	}
	slog.Info("users seeded", "created", created, "updated", updated)
	return nil
}

func registryFor(cfg *config.Config, file seedFile) (*department.Registry, error) {
	if len(file.Departments) > 0 {
		return department.NewRegistry(file.Departments...), nil
	}
	registry, err := department.Load(cfg.DepartmentsConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load departments: %w", err)
	}
	return registry, nil
}

func toUsers(in []seedUser, registry *department.Registry) ([]models.User, error) {
	users := make([]models.User, 0, len(in))
	for _, u := range in {
		role := identity.Role(u.Role)
		if u.Role == "" {
			role = identity.RoleStudent
		}
		if !role.Valid() {
			return nil, fmt.Errorf("user %s: unknown role %q", u.Email, u.Role)
		}
		if role == identity.RoleDepartment && !registry.Exists(u.Department) {
			return nil, fmt.Errorf("user %s: unknown department %q", u.Email, u.Department)
		}
		users = append(users, models.User{
			Name:       u.Name,
			Email:      u.Email,
			Role:       string(role),
			Department: u.Department,
			StudentID:  u.StudentID,
		})
	}
	return users, nil
}
