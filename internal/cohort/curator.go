package cohort

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"go.uber.org/zap"

	"github.com/inodb/tnbc-explorer/internal/clinical"
	"github.com/inodb/tnbc-explorer/internal/expression"
	"github.com/inodb/tnbc-explorer/internal/storage"
	"github.com/inodb/tnbc-explorer/internal/table"
)

// ErrMissingInputFile is returned when a source table cannot be opened.
var ErrMissingInputFile = errors.New("missing input file")

// Report summarizes a curation run.
type Report struct {
	ClinicalPath      string
	ExpressionPath    string
	ClinicalSamples   int
	Genes             int
	ExpressionSamples int
	Cohorts           []*Cohort
	Artifacts         []storage.Info
	StartedAt         time.Time
	Duration          time.Duration
}

// Cohort returns the named cohort, or nil.
func (r *Report) Cohort(name string) *Cohort {
	for _, c := range r.Cohorts {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Curator turns the raw clinical and expression tables into curated matrices.
type Curator struct {
	clinicalPath   string
	expressionPath string
	store          storage.Store
	logger         *zap.Logger
}

// NewCurator creates a curator reading the given source tables and writing
// to store.
func NewCurator(clinicalPath, expressionPath string, store storage.Store) *Curator {
	return &Curator{
		clinicalPath:   clinicalPath,
		expressionPath: expressionPath,
		store:          store,
		logger:         zap.NewNop(),
	}
}

// SetLogger sets the logger for progress messages.
func (c *Curator) SetLogger(l *zap.Logger) {
	c.logger = l
}

// Curate loads both source tables, builds the cohorts and persists one
// curated matrix per cohort. Nothing is written unless both tables load and
// both cohorts build.
func (c *Curator) Curate(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{
		ClinicalPath:   c.clinicalPath,
		ExpressionPath: c.expressionPath,
		StartedAt:      start.UTC(),
	}

	clin, err := clinical.Load(c.clinicalPath)
	if err != nil {
		return nil, inputError("clinical table", c.clinicalPath, err)
	}
	report.ClinicalSamples = clin.Len()
	c.logger.Info("loaded clinical table",
		zap.String("path", c.clinicalPath),
		zap.Int("samples", clin.Len()))

	matrix, err := expression.Load(c.expressionPath)
	if err != nil {
		return nil, inputError("expression matrix", c.expressionPath, err)
	}
	report.Genes = matrix.NumGenes()
	report.ExpressionSamples = matrix.NumSamples()
	c.logger.Info("loaded expression matrix",
		zap.String("path", c.expressionPath),
		zap.Int("genes", matrix.NumGenes()),
		zap.Int("samples", matrix.NumSamples()))

	restricted := make([]*expression.Matrix, 0, 2)
	for _, d := range Definitions() {
		co, err := Build(clin, matrix, d)
		if err != nil {
			return nil, fmt.Errorf("select %s cohort: %w", d.Name, err)
		}
		c.logger.Info("built cohort",
			zap.String("cohort", co.Name),
			zap.Int("selected", len(co.Selected)),
			zap.Int("in_expression", len(co.Samples)))

		m, err := matrix.Restrict(co.Samples)
		if err != nil {
			return nil, fmt.Errorf("restrict %s matrix: %w", d.Name, err)
		}
		report.Cohorts = append(report.Cohorts, co)
		restricted = append(restricted, m)
	}

	for i, co := range report.Cohorts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := writeMatrix(ctx, c.store, co.Artifact, restricted[i])
		if err != nil {
			return nil, err
		}
		c.logger.Debug("wrote curated matrix",
			zap.String("cohort", co.Name),
			zap.String("location", info.Location),
			zap.Int64("bytes", info.Size))
		report.Artifacts = append(report.Artifacts, info)
	}

	report.Duration = time.Since(start)
	return report, nil
}

func writeMatrix(ctx context.Context, store storage.Store, key string, m *expression.Matrix) (storage.Info, error) {
	var buf bytes.Buffer
	if err := m.WriteCSV(&buf); err != nil {
		return storage.Info{}, fmt.Errorf("encode %s: %w", key, err)
	}
	info, err := store.Put(ctx, key, &buf)
	if err != nil {
		return storage.Info{}, fmt.Errorf("persist %s: %w", key, err)
	}
	return info, nil
}

// inputError classifies open failures as ErrMissingInputFile; parse errors
// are passed through.
func inputError(what, path string, err error) error {
	var oerr *table.OpenError
	if errors.As(err, &oerr) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %s %s: %w", ErrMissingInputFile, what, path, err)
	}
	return fmt.Errorf("load %s %s: %w", what, path, err)
}
