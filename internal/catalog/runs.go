package catalog

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/tnbc-explorer/internal/cohort"
)

// CohortCount holds one cohort's counts in a run.
type CohortCount struct {
	Name     string
	Selected int
	Found    int
	Location string
}

// Run is a recorded curation run.
type Run struct {
	ID                int64
	StartedAt         time.Time
	Duration          time.Duration
	Clinical          FileFingerprint
	Expression        FileFingerprint
	ClinicalSamples   int
	Genes             int
	ExpressionSamples int
	StorageDriver     string
	Cohorts           []CohortCount
}

// RecordRun stores a curation report and returns the new run ID.
func (s *Store) RecordRun(report *cohort.Report, clinical, expression FileFingerprint, storageDriver string) (int64, error) {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var runID int64
	if err := tx.QueryRow(`SELECT COALESCE(MAX(run_id), 0) + 1 FROM curation_runs`).Scan(&runID); err != nil {
		return 0, fmt.Errorf("next run id: %w", err)
	}

	if _, err := tx.Exec(`INSERT INTO curation_runs VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, report.StartedAt, report.Duration.Milliseconds(),
		clinical.Path, clinical.Size, clinical.modTimeKey(),
		expression.Path, expression.Size, expression.modTimeKey(),
		report.ClinicalSamples, report.Genes, report.ExpressionSamples,
		storageDriver,
	); err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	for i, co := range report.Cohorts {
		var location string
		if i < len(report.Artifacts) {
			location = report.Artifacts[i].Location
		}
		if _, err := tx.Exec(`INSERT INTO cohort_counts VALUES (?, ?, ?, ?, ?)`,
			runID, co.Name, len(co.Selected), len(co.Samples), location); err != nil {
			return 0, fmt.Errorf("insert cohort counts: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	// The appender runs outside the transaction, so a failed append
	// removes the committed run rather than leaving it without samples.
	if err := s.writeCohortSamples(ctx, runID, report.Cohorts); err != nil {
		if rerr := s.removeRun(ctx, runID); rerr != nil {
			return 0, errors.Join(err, fmt.Errorf("remove run %d: %w", runID, rerr))
		}
		return 0, err
	}
	return runID, nil
}

func (s *Store) removeRun(ctx context.Context, runID int64) error {
	var errs []error
	for _, table := range []string{"cohort_samples", "cohort_counts", "curation_runs"} {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id=?`, runID); err != nil {
			errs = append(errs, fmt.Errorf("delete from %s: %w", table, err))
		}
	}
	return errors.Join(errs...)
}

// writeCohortSamples batch-inserts cohort membership using the Appender API.
func (s *Store) writeCohortSamples(ctx context.Context, runID int64, cohorts []*cohort.Cohort) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "cohort_samples")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, co := range cohorts {
		found := make(map[string]bool, len(co.Samples))
		for _, id := range co.Samples {
			found[id] = true
		}
		for _, id := range co.Selected {
			if err := appender.AppendRow(runID, co.Name, id, found[id]); err != nil {
				return fmt.Errorf("append cohort sample: %w", err)
			}
		}
	}

	return appender.Flush()
}

// Runs returns the most recent runs, newest first. A limit of 0 returns all.
func (s *Store) Runs(limit int) ([]Run, error) {
	query := `SELECT run_id, started_at, duration_ms,
		clinical_path, clinical_size, clinical_modtime,
		expression_path, expression_size, expression_modtime,
		clinical_samples, genes, expression_samples, storage_driver
		FROM curation_runs ORDER BY run_id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var durationMS int64
		var clinicalMod, expressionMod string
		if err := rows.Scan(&r.ID, &r.StartedAt, &durationMS,
			&r.Clinical.Path, &r.Clinical.Size, &clinicalMod,
			&r.Expression.Path, &r.Expression.Size, &expressionMod,
			&r.ClinicalSamples, &r.Genes, &r.ExpressionSamples, &r.StorageDriver,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		r.Clinical.ModTime, _ = time.Parse(time.RFC3339Nano, clinicalMod)
		r.Expression.ModTime, _ = time.Parse(time.RFC3339Nano, expressionMod)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range runs {
		counts, err := s.cohortCounts(runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Cohorts = counts
	}
	return runs, nil
}

// LatestRun returns the newest run, or nil if none is recorded.
func (s *Store) LatestRun() (*Run, error) {
	runs, err := s.Runs(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// Unchanged reports whether the latest run was curated from inputs with the
// same paths, sizes and modification times.
func (s *Store) Unchanged(clinical, expression FileFingerprint) (*Run, bool, error) {
	latest, err := s.LatestRun()
	if err != nil || latest == nil {
		return nil, false, err
	}
	same := func(a, b FileFingerprint) bool {
		return a.Path == b.Path && a.Size == b.Size && a.modTimeKey() == b.modTimeKey()
	}
	return latest, same(latest.Clinical, clinical) && same(latest.Expression, expression), nil
}

func (s *Store) cohortCounts(runID int64) ([]CohortCount, error) {
	rows, err := s.db.Query(`SELECT cohort, selected, found, location
		FROM cohort_counts WHERE run_id=? ORDER BY cohort DESC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query cohort counts: %w", err)
	}
	defer rows.Close()

	var counts []CohortCount
	for rows.Next() {
		var c CohortCount
		var location sql.NullString
		if err := rows.Scan(&c.Name, &c.Selected, &c.Found, &location); err != nil {
			return nil, fmt.Errorf("scan cohort counts: %w", err)
		}
		c.Location = location.String
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// CohortSamples returns the samples of a cohort in a run. With foundOnly set,
// only samples present in the expression matrix are returned.
func (s *Store) CohortSamples(runID int64, cohortName string, foundOnly bool) ([]string, error) {
	query := `SELECT sample_id FROM cohort_samples WHERE run_id=? AND cohort=?`
	if foundOnly {
		query += ` AND in_expression`
	}
	query += ` ORDER BY sample_id`

	rows, err := s.db.Query(query, runID, cohortName)
	if err != nil {
		return nil, fmt.Errorf("query cohort samples: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan cohort sample: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cohort samples: %w", err)
	}
	return ids, nil
}
