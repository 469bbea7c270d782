// Package duckdb persists per-sample statistics in DuckDB (queryable,
// replace-per-sample).
package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"

	goduckdb "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for sample statistics.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS samples (
			sample VARCHAR PRIMARY KEY,
			source_path VARCHAR,
			source_size BIGINT,
			source_mtime TIMESTAMP,
			sequencing_tech VARCHAR,
			min_base_quality BIGINT,
			min_mapping_quality BIGINT,
			genome_length BIGINT,
			min_coverage BIGINT,
			min_frequency DOUBLE,
			mean_coverage DOUBLE,
			richness BIGINT,
			complexity DOUBLE,
			distance DOUBLE,
			pi DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS position_stats (
			sample VARCHAR,
			position BIGINT,
			coverage BIGINT,
			max_frequency DOUBLE,
			minor_frequency DOUBLE,
			entropy DOUBLE,
			minor_variant BOOLEAN,
			PRIMARY KEY (sample, position)
		)`,
		`CREATE TABLE IF NOT EXISTS variant_calls (
			sample VARCHAR,
			virus VARCHAR,
			position BIGINT,
			base VARCHAR,
			dominant_base VARCHAR,
			frequency DOUBLE,
			coverage BIGINT,
			gene VARCHAR,
			old_aa VARCHAR,
			new_aa VARCHAR,
			non_synonymous BOOLEAN,
			codon_position BIGINT,
			codon_change VARCHAR,
			consequence VARCHAR,
			impact VARCHAR,
			PRIMARY KEY (sample, virus, position, base)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// appendRows deletes the sample's existing rows from table and appends the
// rows produced by fill using the Appender API.
func (s *Store) appendRows(table, sample string, fill func(a *goduckdb.Appender) error) error {
	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "DELETE FROM "+table+" WHERE sample=?", sample); err != nil {
		return fmt.Errorf("clear %s for %s: %w", table, sample, err)
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	if err := fill(appender); err != nil {
		return err
	}
	return appender.Flush()
}

// DeleteSample removes every row stored for sample.
func (s *Store) DeleteSample(sample string) error {
	for _, table := range []string{"samples", "position_stats", "variant_calls"} {
		if _, err := s.db.Exec("DELETE FROM "+table+" WHERE sample=?", sample); err != nil {
			return fmt.Errorf("delete %s from %s: %w", sample, table, err)
		}
	}
	return nil
}
