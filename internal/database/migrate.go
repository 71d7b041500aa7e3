package database

import (
	"embed"

	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies every pending versioned migration once. Applied versions are
// tracked in the schema_migrations table.
func Migrate(db *sqlx.DB, dialect Dialect) error {
	src, err := iofs.New(migrationsFS, "migrations/"+string(dialect))
	if err != nil {
		return errors.Wrap(err, "load migrations")
	}

	var m *migrate.Migrate
	switch dialect {
	case SQLite:
		driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
		if err != nil {
			return errors.Wrap(err, "sqlite migration driver")
		}
		m, err = migrate.NewWithInstance("iofs", src, "sqlite", driver)
		if err != nil {
			return errors.Wrap(err, "init migrations")
		}
	case MySQL:
		driver, err := migratemysql.WithInstance(db.DB, &migratemysql.Config{})
		if err != nil {
			return errors.Wrap(err, "mysql migration driver")
		}
		m, err = migrate.NewWithInstance("iofs", src, "mysql", driver)
		if err != nil {
			return errors.Wrap(err, "init migrations")
		}
	default:
		return errors.Errorf("no migrations for dialect %q", dialect)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "apply migrations")
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return errors.Wrap(err, "read schema version")
	}
	log.WithFields(log.Fields{"version": version, "dirty": dirty}).Info("database schema up to date")
	return nil
}
