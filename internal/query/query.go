// Package query answers single-gene questions against the curated Normal and
// TNBC matrices.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/inodb/tnbc-explorer/internal/cohort"
	"github.com/inodb/tnbc-explorer/internal/expression"
	"github.com/inodb/tnbc-explorer/internal/storage"
)

var (
	// ErrMissingCuratedData is returned when a curated matrix is absent,
	// meaning curation has not been run.
	ErrMissingCuratedData = errors.New("curated data not found")
	// ErrUnknownGene is returned when the gene symbol is not a row key.
	ErrUnknownGene = errors.New("unknown gene")
)

// Snapshot is an immutable pair of curated matrices.
type Snapshot struct {
	Normal   *expression.Matrix
	TNBC     *expression.Matrix
	LoadedAt time.Time
}

// LoadSnapshot reads both curated matrices from store.
func LoadSnapshot(ctx context.Context, store storage.Store) (*Snapshot, error) {
	normal, err := loadMatrix(ctx, store, cohort.NormalArtifact)
	if err != nil {
		return nil, err
	}
	tnbc, err := loadMatrix(ctx, store, cohort.TNBCArtifact)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Normal: normal, TNBC: tnbc, LoadedAt: time.Now().UTC()}, nil
}

func loadMatrix(ctx context.Context, store storage.Store, key string) (*expression.Matrix, error) {
	rc, err := store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMissingCuratedData, store.Location(key))
		}
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	defer rc.Close()

	m, err := expression.ReadCSV(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return m, nil
}

// Result is the per-gene comparison of the TNBC and Normal cohorts.
type Result struct {
	Gene           string
	TNBC           Summary
	Normal         Summary
	Log2FoldChange float64 // TNBC mean - Normal mean
	GeneType       string  // optional cancer gene classification
}

// Engine computes query results from a snapshot.
type Engine struct {
	snap     *Snapshot
	geneType func(gene string) string
	logger   *zap.Logger
}

// NewEngine creates an engine over the given snapshot.
func NewEngine(snap *Snapshot) *Engine {
	return &Engine{snap: snap, logger: zap.NewNop()}
}

// SetLogger sets the logger for warning messages.
func (e *Engine) SetLogger(l *zap.Logger) {
	e.logger = l
}

// SetGeneTypes configures a lookup used to fill Result.GeneType.
func (e *Engine) SetGeneTypes(lookup func(gene string) string) {
	e.geneType = lookup
}

// Query computes the statistics for gene. The symbol must match a TNBC
// matrix row key exactly.
func (e *Engine) Query(gene string) (*Result, error) {
	tnbcRow, ok := e.snap.TNBC.Row(gene)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGene, gene)
	}
	normalRow, ok := e.snap.Normal.Row(gene)
	if !ok {
		return nil, fmt.Errorf("%w: %q (absent from %s matrix)", ErrUnknownGene, gene, cohort.NameNormal)
	}

	if n := e.snap.TNBC.GeneCount(gene); n > 1 {
		e.logger.Warn("gene symbol has multiple rows; using the first",
			zap.String("gene", gene),
			zap.Int("rows", n))
	}

	r := &Result{
		Gene:   gene,
		TNBC:   Summarize(tnbcRow),
		Normal: Summarize(normalRow),
	}
	r.Log2FoldChange = r.TNBC.Mean - r.Normal.Mean
	if e.geneType != nil {
		r.GeneType = e.geneType(gene)
	}

	for _, c := range []struct {
		name string
		s    Summary
	}{{cohort.NameTNBC, r.TNBC}, {cohort.NameNormal, r.Normal}} {
		if !c.s.SEMDefined() {
			e.logger.Warn("standard error undefined",
				zap.String("gene", gene),
				zap.String("cohort", c.name),
				zap.Int("n", c.s.N))
		}
	}
	return r, nil
}
