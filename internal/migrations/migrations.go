// Package migrations embeds the SQL schema for the SQL-backed stores and
// runs it with goose.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

// goose keeps the base FS, dialect and logger in package globals.
var mu sync.Mutex

// SetLogger routes goose output to l; nil silences it.
func SetLogger(l goose.Logger) {
	if l == nil {
		l = goose.NopLogger()
	}
	mu.Lock()
	defer mu.Unlock()
	goose.SetLogger(l)
}

type target struct {
	dir     string
	dialect string
}

var targets = map[string]target{
	"postgres": {dir: "postgres", dialect: "postgres"},
	"sqlite":   {dir: "sqlite", dialect: "sqlite3"},
}

// Supported reports whether driver has an SQL schema to migrate.
func Supported(driver string) bool {
	_, ok := targets[driver]
	return ok
}

func run(driver string, fn func(dir string) error) error {
	t, ok := targets[driver]
	if !ok {
		return fmt.Errorf("no migrations for store driver %q", driver)
	}
	mu.Lock()
	defer mu.Unlock()
	goose.SetBaseFS(FS)
	if err := goose.SetDialect(t.dialect); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	return fn(t.dir)
}

// Up applies all pending migrations.
func Up(db *sql.DB, driver string) error {
	return run(driver, func(dir string) error {
		if err := goose.Up(db, dir); err != nil {
			return fmt.Errorf("goose up: %w", err)
		}
		return nil
	})
}

// Down rolls back the most recent migration.
func Down(db *sql.DB, driver string) error {
	return run(driver, func(dir string) error {
		if err := goose.Down(db, dir); err != nil {
			return fmt.Errorf("goose down: %w", err)
		}
		return nil
	})
}

// Status prints the applied state of every migration through goose's logger.
func Status(db *sql.DB, driver string) error {
	return run(driver, func(dir string) error {
		if err := goose.Status(db, dir); err != nil {
			return fmt.Errorf("goose status: %w", err)
		}
		return nil
	})
}

// Version returns the current schema version.
func Version(db *sql.DB, driver string) (int64, error) {
	var v int64
	err := run(driver, func(string) error {
		var err error
		v, err = goose.GetDBVersion(db)
		return err
	})
	return v, err
}
