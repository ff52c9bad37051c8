package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	driver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/iliyamo/seating-chart/internal/store"
	"github.com/iliyamo/seating-chart/internal/store/storetest"
)

// sqliteDialect runs the adapter's statements on an embedded engine so the
// SQL is exercised without a MySQL server.
var sqliteDialect = Dialect{
	CreateTable: `CREATE TABLE IF NOT EXISTS kv_items (
	                pk TEXT NOT NULL,
	                sk TEXT NOT NULL,
	                value BLOB NOT NULL,
	                PRIMARY KEY (pk, sk)
	              )`,
	IsDuplicate: func(err error) bool {
		return strings.Contains(err.Error(), "UNIQUE constraint failed")
	},
}

func newSQLiteStore(t *testing.T) store.Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	s := New(db, WithDialect(sqliteDialect))
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, newSQLiteStore)
}

func TestStore_SwapToSameValue(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	k := store.Key{Partition: "owner#1", Sort: "a"}
	require.NoError(t, s.Put(ctx, k, []byte("x")))
	assert.NoError(t, s.CompareAndSwap(ctx, k, []byte("x"), []byte("x")))
}

func TestMySQLDialect_IsDuplicate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"duplicate entry", &driver.MySQLError{Number: 1062, Message: "Duplicate entry"}, true},
		{"wrapped duplicate", errors.Join(errors.New("insert"), &driver.MySQLError{Number: 1062}), true},
		{"other server error", &driver.MySQLError{Number: 1213, Message: "Deadlock found"}, false},
		{"plain error", errors.New("1062"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MySQL.IsDuplicate(tt.err))
		})
	}
}
