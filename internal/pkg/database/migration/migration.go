package migration

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

const pgDriverName = "postgres"

//go:embed sql/*.sql
var migrations embed.FS

// Migrate applies all up migrations. An empty folderPath uses the
// migrations compiled into the binary.
func Migrate(dsn, folderPath string) error {
	db, err := sql.Open(pgDriverName, dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}

	var m *migrate.Migrate
	if folderPath == "" {
		src, err := iofs.New(migrations, "sql")
		if err != nil {
			return err
		}
		m, err = migrate.NewWithInstance("iofs", src, pgDriverName, driver)
		if err != nil {
			return err
		}
	} else {
		m, err = migrate.NewWithDatabaseInstance("file://"+folderPath, pgDriverName, driver)
		if err != nil {
			return err
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
