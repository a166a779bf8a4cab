package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Run records one completed preprocess run.
type Run struct {
	ID                  string
	StartedAt           time.Time
	FinishedAt          time.Time
	OutputDir           string
	LongRows            int
	SubdomainGroups     int
	DomainGroups        int
	UnresolvedQuestions int
	OverrideVersion     int
	Inputs              []RunInput
}

// RunInput is one input file of a run, identified by its role in the
// pipeline (mapping, items, subdomains, responses) and content digest.
type RunInput struct {
	Role   string
	Path   string
	SHA256 string
}

// InsertRun stores a run and its inputs atomically.
func (db *DB) InsertRun(r *Run) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin insert run: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO runs (id, started_at, finished_at, output_dir, long_rows,
		   subdomain_groups, domain_groups, unresolved_questions, override_version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UTC().Format(time.RFC3339), r.FinishedAt.UTC().Format(time.RFC3339),
		r.OutputDir, r.LongRows, r.SubdomainGroups, r.DomainGroups,
		r.UnresolvedQuestions, r.OverrideVersion,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("inserting run: %w", err)
	}

	for _, in := range r.Inputs {
		if _, err := tx.Exec(
			`INSERT INTO run_inputs (run_id, role, path, sha256) VALUES (?, ?, ?, ?)`,
			r.ID, in.Role, in.Path, in.SHA256,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting run input %s: %w", in.Role, err)
		}
	}

	return tx.Commit()
}

// LatestRun returns the most recently finished run, or nil if none exist.
func (db *DB) LatestRun() (*Run, error) {
	row := db.conn.QueryRow(
		`SELECT id, started_at, finished_at, output_dir, long_rows,
		   subdomain_groups, domain_groups, unresolved_questions, override_version
		 FROM runs ORDER BY finished_at DESC LIMIT 1`)

	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	inputs, err := db.runInputs(r.ID)
	if err != nil {
		return nil, err
	}
	r.Inputs = inputs
	return r, nil
}

// ListRuns returns the most recent runs, newest first, without inputs.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	rows, err := db.conn.Query(
		`SELECT id, started_at, finished_at, output_dir, long_rows,
		   subdomain_groups, domain_groups, unresolved_questions, override_version
		 FROM runs ORDER BY finished_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// CountRuns returns the total number of recorded runs.
func (db *DB) CountRuns() (int, error) {
	var n int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM runs").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting runs: %w", err)
	}
	return n, nil
}

func (db *DB) runInputs(runID string) ([]RunInput, error) {
	rows, err := db.conn.Query(
		"SELECT role, path, sha256 FROM run_inputs WHERE run_id = ? ORDER BY role", runID)
	if err != nil {
		return nil, fmt.Errorf("loading run inputs: %w", err)
	}
	defer rows.Close()

	var inputs []RunInput
	for rows.Next() {
		var in RunInput
		if err := rows.Scan(&in.Role, &in.Path, &in.SHA256); err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var r Run
	var started, finished string
	err := row.Scan(&r.ID, &started, &finished, &r.OutputDir, &r.LongRows,
		&r.SubdomainGroups, &r.DomainGroups, &r.UnresolvedQuestions, &r.OverrideVersion)
	if err != nil {
		return nil, err
	}
	if r.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if r.FinishedAt, err = time.Parse(time.RFC3339, finished); err != nil {
		return nil, fmt.Errorf("parsing finished_at: %w", err)
	}
	return &r, nil
}
