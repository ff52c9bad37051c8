// Package mysql implements store.Store on a single MySQL table.  The
// composite primary key (pk, sk) gives insert-if-absent semantics: a
// duplicate insert fails with error 1062 which the adapter reports as
// store.ErrConditionFailed.  Conditional updates and deletes compare the
// stored value inside the WHERE clause so each one is a single atomic
// statement.
package mysql

import (
	"bytes"
	"context"
	"database/sql"
	"errors"

	driver "github.com/go-sql-driver/mysql"

	"github.com/iliyamo/seating-chart/internal/store"
)

var _ store.Store = (*Store)(nil)

// Dialect captures the statements that differ between SQL engines.  The
// default is MySQL; tests supply another engine through WithDialect.
type Dialect struct {
	// CreateTable is the DDL for the items table.
	CreateTable string
	// IsDuplicate reports whether err is a primary key violation.
	IsDuplicate func(err error) bool
}

// MySQL is the production dialect.  Sort keys use a binary collation so
// range queries order them byte by byte.
var MySQL = Dialect{
	CreateTable: `CREATE TABLE IF NOT EXISTS kv_items (
	                pk VARCHAR(191) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
	                sk VARCHAR(191) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
	                value MEDIUMBLOB NOT NULL,
	                PRIMARY KEY (pk, sk)
	              ) ENGINE=InnoDB`,
	IsDuplicate: func(err error) bool {
		var me *driver.MySQLError
		return errors.As(err, &me) && me.Number == 1062
	},
}

// Store persists items in the kv_items table.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Option configures a Store.
type Option func(*Store)

// WithDialect overrides the SQL dialect.
func WithDialect(d Dialect) Option {
	return func(s *Store) { s.dialect = d }
}

// New wraps an open database handle.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, dialect: MySQL}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Migrate creates the items table when it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, s.dialect.CreateTable)
	return err
}

func (s *Store) Get(ctx context.Context, key store.Key) ([]byte, error) {
	const q = `SELECT value FROM kv_items WHERE pk = ? AND sk = ?`
	var v []byte
	err := s.db.QueryRowContext(ctx, q, key.Partition, key.Sort).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

// Put uses REPLACE so the write is a single statement on both MySQL and
// the test engine.
func (s *Store) Put(ctx context.Context, key store.Key, value []byte) error {
	const q = `REPLACE INTO kv_items (pk, sk, value) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, key.Partition, key.Sort, nonNil(value))
	return err
}

func (s *Store) PutIfAbsent(ctx context.Context, key store.Key, value []byte) error {
	const q = `INSERT INTO kv_items (pk, sk, value) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, key.Partition, key.Sort, nonNil(value)); err != nil {
		if s.dialect.IsDuplicate(err) {
			return store.ErrConditionFailed
		}
		return err
	}
	return nil
}

func (s *Store) CompareAndSwap(ctx context.Context, key store.Key, expected, value []byte) error {
	const q = `UPDATE kv_items SET value = ? WHERE pk = ? AND sk = ? AND value = ?`
	res, err := s.db.ExecContext(ctx, q, nonNil(value), key.Partition, key.Sort, nonNil(expected))
	if err != nil {
		return err
	}
	return s.explainMiss(ctx, res, key, expected, bytes.Equal(expected, value))
}

func (s *Store) Delete(ctx context.Context, key store.Key) error {
	const q = `DELETE FROM kv_items WHERE pk = ? AND sk = ?`
	_, err := s.db.ExecContext(ctx, q, key.Partition, key.Sort)
	return err
}

func (s *Store) DeleteIf(ctx context.Context, key store.Key, expected []byte) error {
	const q = `DELETE FROM kv_items WHERE pk = ? AND sk = ? AND value = ?`
	res, err := s.db.ExecContext(ctx, q, key.Partition, key.Sort, nonNil(expected))
	if err != nil {
		return err
	}
	return s.explainMiss(ctx, res, key, expected, false)
}

// Query filters on the primary key range first and re-checks the prefix
// with SUBSTR so the statement stays portable across engines.
func (s *Store) Query(ctx context.Context, q store.Query) ([]store.Item, error) {
	const base = `SELECT sk, value FROM kv_items
	              WHERE pk = ? AND sk >= ? AND sk > ? AND SUBSTR(sk, 1, ?) = ?
	              ORDER BY sk`
	args := []interface{}{q.Partition, q.Prefix, q.After, len([]rune(q.Prefix)), q.Prefix}
	query := base
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Item
	for rows.Next() {
		var it store.Item
		if err := rows.Scan(&it.Key.Sort, &it.Value); err != nil {
			return nil, err
		}
		it.Key.Partition = q.Partition
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// explainMiss turns a zero row conditional statement into ErrNotFound or
// ErrConditionFailed.  MySQL reports zero affected rows when an UPDATE
// writes an identical value, so for swaps an equal current value counts as
// success.
func (s *Store) explainMiss(ctx context.Context, res sql.Result, key store.Key, expected []byte, sameOK bool) error {
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	cur, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if sameOK && bytes.Equal(cur, expected) {
		return nil
	}
	return store.ErrConditionFailed
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
