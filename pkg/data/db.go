package data

import (
	"database/sql"
	"embed"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const (
	DataFileName = "thermopulse.db"

	driverSQLite   = "sqlite"
	driverPostgres = "postgres"

	postgresPrefix = "postgres://"
)

var (
	//go:embed sql/*
	f embed.FS

	errDBNotInitialized = errors.New("database not initialized")
)

// DB wraps a SQL connection with the driver it was opened through, so
// statements written with ? placeholders can be rebound for Postgres.
type DB struct {
	*sql.DB
	driver string
}

// Open connects to the store named by dsn. A dsn starting with
// postgres:// goes through lib/pq; anything else is treated as a SQLite
// file path.
func Open(dsn string) (*DB, error) {
	if dsn == "" {
		return nil, errors.New("dsn not specified")
	}

	driver := driverSQLite
	if strings.HasPrefix(dsn, postgresPrefix) {
		driver = driverPostgres
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", dsn)
	}
	return &DB{DB: conn, driver: driver}, nil
}

// Init applies the embedded schema. The DDL is idempotent, so calling it
// on an already initialized store is a no-op.
func (d *DB) Init() error {
	if d == nil || d.DB == nil {
		return errDBNotInitialized
	}

	b, err := f.ReadFile("sql/ddl.sql")
	if err != nil {
		return errors.Wrap(err, "failed to read the schema creation file")
	}
	if _, err := d.Exec(string(b)); err != nil {
		return errors.Wrap(err, "failed to create database schema")
	}
	return nil
}

// rebind rewrites ? placeholders to $1..$N when the underlying driver is
// Postgres. SQLite statements pass through untouched.
func (d *DB) rebind(query string) string {
	if d.driver != driverPostgres {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&sb, "$%d", n)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
