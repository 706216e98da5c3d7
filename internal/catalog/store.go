// Package catalog records curation runs in DuckDB: input fingerprints, cohort
// counts and the sample membership of every persisted cohort.
package catalog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for the curation catalog.
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
			return nil, fmt.Errorf("create catalog directory: %w", err)
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
		`CREATE TABLE IF NOT EXISTS curation_runs (
			run_id BIGINT PRIMARY KEY,
			started_at TIMESTAMP,
			duration_ms BIGINT,
			clinical_path VARCHAR,
			clinical_size BIGINT,
			clinical_modtime VARCHAR,
			expression_path VARCHAR,
			expression_size BIGINT,
			expression_modtime VARCHAR,
			clinical_samples INTEGER,
			genes INTEGER,
			expression_samples INTEGER,
			storage_driver VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS cohort_counts (
			run_id BIGINT,
			cohort VARCHAR,
			selected INTEGER,
			found INTEGER,
			location VARCHAR,
			PRIMARY KEY (run_id, cohort)
		)`,
		`CREATE TABLE IF NOT EXISTS cohort_samples (
			run_id BIGINT,
			cohort VARCHAR,
			sample_id VARCHAR,
			in_expression BOOLEAN
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
