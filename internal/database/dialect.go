package database

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect names a supported SQL backend.
type Dialect string

const (
	SQLite Dialect = "sqlite"
	MySQL  Dialect = "mysql"
)

func ParseDialect(s string) (Dialect, error) {
	switch Dialect(strings.ToLower(s)) {
	case SQLite:
		return SQLite, nil
	case MySQL:
		return MySQL, nil
	}
	return "", errors.Errorf("unsupported database driver %q", s)
}

func (d Dialect) DriverName() string { return string(d) }

// SessionSettings are applied once to every freshly opened connection.
func (d Dialect) SessionSettings(lockTimeout time.Duration) []string {
	switch d {
	case SQLite:
		return []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA synchronous=NORMAL",
			"PRAGMA temp_store=MEMORY",
			"PRAGMA foreign_keys=ON",
			fmt.Sprintf("PRAGMA busy_timeout=%d", lockTimeout.Milliseconds()),
		}
	case MySQL:
		seconds := int(lockTimeout.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		return []string{fmt.Sprintf("SET SESSION innodb_lock_wait_timeout = %d", seconds)}
	}
	return nil
}

// IsUniqueViolation reports whether err is a unique/primary key conflict.
func (d Dialect) IsUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// IsTransient reports whether err is a lock timeout or a lost connection,
// i.e. an error the caller may retry.
func (d Dialect) IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		primary := sqliteErr.Code() & 0xff
		return primary == sqlite3.SQLITE_BUSY || primary == sqlite3.SQLITE_LOCKED
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		// 1205: lock wait timeout, 1213: deadlock.
		return mysqlErr.Number == 1205 || mysqlErr.Number == 1213
	}
	return false
}
