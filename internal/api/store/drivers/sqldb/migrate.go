package sqldb

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/clinic/internal/api/store/drivers/sqldb/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ApplyMigrations applies any pending migrations for the store's dialect
// from the embedded migration files.
//
// The migrate instance is not closed: closing it would close the shared
// *sql.DB underneath the store.
func (s *Store) ApplyMigrations() error {
	// 1. Create the migration driver for the dialect
	var (
		driver database.Driver
		err    error
	)
	switch s.dialect {
	case DialectSQLite:
		driver, err = migratesqlite.WithInstance(s.db.DB, &migratesqlite.Config{})
	case DialectPostgres:
		driver, err = migratepg.WithInstance(s.db.DB, &migratepg.Config{})
	default:
		err = fmt.Errorf("sqldb: no migrations for dialect %q", s.dialect)
	}
	if err != nil {
		return err
	}

	// 2. Create the iofs (embedded filesystem) source driver
	migrationsFilesystem, err := iofs.New(migrations.FS, string(s.dialect))
	if err != nil {
		return err
	}

	// 3. Create the migrate instance to run migrations
	instance, err := migrate.NewWithInstance("iofs", migrationsFilesystem, string(s.dialect), driver)
	if err != nil {
		return err
	}

	// 4. Apply all up migrations
	err = instance.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}
