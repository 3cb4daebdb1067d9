// Package duckdb stores candidate transcripts and picked loci in DuckDB.
// Candidates are read from the candidates table; finalized loci are written
// to picked_transcripts, locus_scores and score_components.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for candidate input and picked output.
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

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path, empty for an in-memory database.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS candidates (
			tid VARCHAR,
			locus_id VARCHAR,
			chrom VARCHAR,
			strand VARCHAR,
			score DOUBLE,
			is_reference BOOLEAN,
			is_primary BOOLEAN,
			exons VARCHAR,
			orfs VARCHAR,
			verified_introns VARCHAR,
			PRIMARY KEY (locus_id, tid)
		)`,
		`CREATE TABLE IF NOT EXISTS picked_transcripts (
			locus_id VARCHAR,
			tid VARCHAR,
			alias VARCHAR,
			chrom VARCHAR,
			strand VARCHAR,
			start BIGINT,
			"end" BIGINT,
			kind VARCHAR,
			feature VARCHAR,
			is_primary BOOLEAN,
			score DOUBLE,
			ccode VARCHAR,
			padded BOOLEAN,
			exons VARCHAR,
			orfs VARCHAR,
			PRIMARY KEY (locus_id, tid)
		)`,
		`CREATE TABLE IF NOT EXISTS locus_scores (
			tid VARCHAR,
			alias VARCHAR,
			parent VARCHAR,
			score DOUBLE,
			passing BOOLEAN,
			PRIMARY KEY (parent, tid)
		)`,
		`CREATE TABLE IF NOT EXISTS score_components (
			parent VARCHAR,
			tid VARCHAR,
			metric VARCHAR,
			value DOUBLE
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
