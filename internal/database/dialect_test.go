package database_test

import (
	"context"
	"database/sql/driver"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01moynul/pawshop-golang/internal/database"
)

func TestSQLiteBusyIsTransient(t *testing.T) {
	ctx := context.Background()
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_pragma=busy_timeout(0)", filepath.Join(t.TempDir(), "busy.db"))
	db, dialect, err := database.Open(ctx, "sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.ExecContext(ctx, `CREATE TABLE t (id INTEGER PRIMARY KEY)`)
	require.NoError(t, err)

	holder, err := db.Conn(ctx)
	require.NoError(t, err)
	defer holder.Close()
	waiter, err := db.Conn(ctx)
	require.NoError(t, err)
	defer waiter.Close()

	tx, err := holder.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = waiter.BeginTx(ctx, nil)
	require.Error(t, err)
	assert.True(t, dialect.IsTransient(err), err.Error())
	assert.True(t, dialect.IsTransient(errors.Wrap(err, "begin")))
	assert.False(t, dialect.IsUniqueViolation(err))
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"bad conn", driver.ErrBadConn, true},
		{"wrapped bad conn", errors.Wrap(driver.ErrBadConn, "query"), true},
		{"invalid mysql conn", mysql.ErrInvalidConn, true},
		{"lock wait timeout", &mysql.MySQLError{Number: 1205}, true},
		{"deadlock", &mysql.MySQLError{Number: 1213}, true},
		{"duplicate key", &mysql.MySQLError{Number: 1062}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, database.MySQL.IsTransient(tc.err))
		})
	}
	assert.True(t, database.MySQL.IsUniqueViolation(&mysql.MySQLError{Number: 1062}))
}
