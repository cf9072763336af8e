package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	flagdomain "github.com/smallbiznis/beacon/internal/flag/domain"
	groupdomain "github.com/smallbiznis/beacon/internal/group/domain"
	ruledomain "github.com/smallbiznis/beacon/internal/rule/domain"
	"gorm.io/gorm"
)

// RunMigrations applies the embedded SQL migrations so Beacon is usable out
// of the box on Postgres without external tooling.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate covers the non-Postgres dialects, mainly SQLite in local
// development and tests, where the embedded SQL is Postgres-specific.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&flagdomain.Flag{},
		&ruledomain.Rule{},
		&groupdomain.Group{},
	)
}
