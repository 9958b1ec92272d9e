// Package db wraps the DuckDB connection used to query tabular and spatial
// data into map features.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-logr/logr"
	_ "github.com/marcboeker/go-duckdb"
)

var (
	instance *sql.DB
	once     sync.Once
	initErr  error
)

// Config holds database configuration. An empty DBName opens an in-memory
// database.
type Config struct {
	DataDir    string
	DBName     string
	Extensions []string
	Log        logr.Logger
}

// DefaultExtensions are loaded into every connection when available.
var DefaultExtensions = []string{"spatial", "json"}

// Open opens a new connection.
func Open(cfg Config) (*sql.DB, error) {
	dsn := ""
	if cfg.DBName != "" {
		duckdbDir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(duckdbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create duckdb directory: %w", err)
		}
		dsn = filepath.Join(duckdbDir, cfg.DBName+".duckdb")
	}

	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	log := cfg.Log
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	exts := cfg.Extensions
	if exts == nil {
		exts = DefaultExtensions
	}
	for _, ext := range exts {
		if _, err := conn.Exec(fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
			// Offline hosts cannot install; queries needing the extension fail later.
			log.V(1).Info("duckdb extension unavailable", "extension", ext, "error", err.Error())
		}
	}
	return conn, nil
}

// Get returns the process-wide connection, opening it on first use.
func Get(cfg Config) (*sql.DB, error) {
	once.Do(func() {
		instance, initErr = Open(cfg)
	})
	return instance, initErr
}

// Close closes the process-wide connection.
func Close() error {
	if instance != nil {
		return instance.Close()
	}
	return nil
}

// Tables lists the tables in the main schema.
func Tables(ctx context.Context, conn *sql.DB) ([]string, error) {
	rows, err := conn.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// Result is a generic query result.
type Result struct {
	Columns []string
	Rows    []map[string]any
}

// Query runs query and collects every row keyed by column name.
func Query(ctx context.Context, conn *sql.DB, query string, args ...any) (Result, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return Result{}, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return Result{}, err
	}

	res := Result{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Result{}, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		res.Rows = append(res.Rows, row)
	}
	return res, rows.Err()
}
