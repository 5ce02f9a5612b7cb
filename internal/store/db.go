package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// dbOps is the query surface shared by *sqlx.DB and *sqlx.Tx, so every
// repository method runs unchanged inside or outside a transaction.
type dbOps interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

type DB struct {
	dbOps
	root *sqlx.DB
}

func NewSQLiteDB(path string) (*DB, error) {
	db, err := sqlx.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	// SQLite has a single writer; one connection keeps transactions from
	// tripping over each other and makes :memory: databases usable.
	db.SetMaxOpenConns(1)

	// Set pragmas for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{dbOps: db, root: db}, nil
}

// dsn adds the driver options we rely on: timestamps written in a sortable
// format and write-locking transactions.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_time_format=sqlite&_txlock=immediate"
}

// RunInTx runs fn against a transaction-bound copy of db, committing when fn
// returns nil and rolling back otherwise.
func (db *DB) RunInTx(ctx context.Context, fn func(txDB *DB) error) error {
	tx, err := db.root.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	txDB := &DB{
		dbOps: tx,
		root:  db.root,
	}

	if err := fn(txDB); err != nil {
		return err
	}
	return tx.Commit()
}

func (db *DB) Close() error {
	return db.root.Close()
}
