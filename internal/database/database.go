package database

import (
	"context"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Open creates the shared *sqlx.DB for the given driver and DSN and verifies it.
// Idle connection caching is left to Pool, so database/sql keeps no idle
// connections of its own.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, Dialect, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, "", err
	}

	if dialect == MySQL {
		if dsn, err = mysqlDSN(dsn); err != nil {
			return nil, "", err
		}
	}

	db, err := sqlx.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, "", errors.Wrap(err, "open database")
	}

	db.SetMaxOpenConns(0)
	db.SetMaxIdleConns(0)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, "", errors.Wrap(err, "ping database")
	}

	log.WithField("driver", dialect).Info("database connection established")
	return db, dialect, nil
}

// mysqlDSN forces the options the store relies on: DATETIME columns scan into
// time.Time, and UPDATE reports matched rather than changed rows so
// compare-and-set statements can tell a no-op from a lost race.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", errors.Wrap(err, "parse mysql dsn")
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}
