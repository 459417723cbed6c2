package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQLite string

//go:embed schema_mysql.sql
var schemaMySQL string

type Dialect string

const (
	DialectSQLite Dialect = "sqlite"
	DialectMySQL  Dialect = "mysql"
)

type DB struct {
	*sql.DB
	Dialect Dialect
}

// Tx is a transaction carrying the dialect of the database it was opened on.
type Tx struct {
	*sql.Tx
	dialect Dialect
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens a MySQL database when dsn looks like user:pass@tcp(host)/db and a
// SQLite file otherwise, then applies the embedded schema.
func New(dsn string) (*DB, error) {
	var (
		conn    *sql.DB
		err     error
		dialect Dialect
	)

	if strings.Contains(dsn, "@") {
		dialect = DialectMySQL
		conn, err = sql.Open("mysql", dsn)
	} else {
		dialect = DialectSQLite
		if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}

		// modernc.org/sqlite applies _pragma parameters on every new connection.
		pragmas := []string{
			"_pragma=foreign_keys(1)",
			"_pragma=journal_mode(WAL)",
			"_pragma=busy_timeout(30000)",
			"_pragma=synchronous(NORMAL)",
			"_pragma=cache_size(-20000)",
			"_pragma=temp_store(MEMORY)",
		}
		conn, err = sql.Open("sqlite", appendParam(dsn, strings.Join(pragmas, "&")))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if dialect == DialectSQLite {
		conn.SetMaxOpenConns(25)
	} else {
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := initSchema(conn, dialect); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{DB: conn, Dialect: dialect}, nil
}

// Wrap adopts an already opened connection without touching the schema.
// Tests use it with sqlmock.
func Wrap(conn *sql.DB, dialect Dialect) *DB {
	return &DB{DB: conn, Dialect: dialect}
}

func appendParam(dsn, param string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + param
	}
	return dsn + "?" + param
}

func initSchema(conn *sql.DB, dialect Dialect) error {
	schema := schemaSQLite
	if dialect == DialectMySQL {
		schema = schemaMySQL
	}

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("%w (statement: %.60s)", err, stmt)
		}
	}
	return nil
}

// WithTx runs fn inside a transaction, committing only when fn succeeds.
func (db *DB) WithTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&Tx{Tx: tx, dialect: db.Dialect}); err != nil {
		return err
	}

	return tx.Commit()
}

// insertIgnore returns the dialect's INSERT that skips duplicate keys.
func insertIgnore(d Dialect) string {
	if d == DialectMySQL {
		return "INSERT IGNORE INTO"
	}
	return "INSERT OR IGNORE INTO"
}

// IsUniqueViolation reports whether err comes from a UNIQUE or PRIMARY KEY
// constraint on either driver.
func IsUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		// SQLITE_CONSTRAINT_UNIQUE, SQLITE_CONSTRAINT_PRIMARYKEY
		switch sqliteErr.Code() {
		case 2067, 1555:
			return true
		case 19:
			return strings.Contains(sqliteErr.Error(), "UNIQUE")
		}
		return false
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// IsForeignKeyViolation reports whether err comes from a foreign key check.
func IsForeignKeyViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		// SQLITE_CONSTRAINT_FOREIGNKEY
		return sqliteErr.Code() == 787 ||
			(sqliteErr.Code() == 19 && strings.Contains(sqliteErr.Error(), "FOREIGN KEY"))
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1452
	}
	return false
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
