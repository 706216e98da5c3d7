// Package cohort selects the Normal and TNBC sample cohorts from a clinical
// table, aligns them to an expression matrix and persists the cohort-restricted
// matrices.
package cohort

import (
	"github.com/inodb/tnbc-explorer/internal/clinical"
	"github.com/inodb/tnbc-explorer/internal/expression"
)

// Cohort names
const (
	NameNormal = "Normal"
	NameTNBC   = "TNBC"
)

// Artifact keys of the curated matrices.
const (
	NormalArtifact = "normal_expression_log2.csv"
	TNBCArtifact   = "tnbc_expression_log2.csv"
)

// Criterion requires a clinical attribute to equal a value exactly.
type Criterion struct {
	Column string
	Value  string
}

// Definition names a cohort and the conjunctive criteria its samples satisfy.
type Definition struct {
	Name     string
	Artifact string
	Criteria []Criterion
}

// Normal selects adjacent normal tissue.
var Normal = Definition{
	Name:     NameNormal,
	Artifact: NormalArtifact,
	Criteria: []Criterion{
		{Column: clinical.ColSampleType, Value: clinical.SampleTypeNormal},
	},
}

// TNBC selects primary tumors negative for ER, PR and HER2 (IHC).
var TNBC = Definition{
	Name:     NameTNBC,
	Artifact: TNBCArtifact,
	Criteria: []Criterion{
		{Column: clinical.ColSampleType, Value: clinical.SampleTypePrimaryTumor},
		{Column: clinical.ColERStatus, Value: clinical.StatusNegative},
		{Column: clinical.ColPRStatus, Value: clinical.StatusNegative},
		{Column: clinical.ColHER2Status, Value: clinical.StatusNegative},
	},
}

// Definitions returns the cohorts in curation order.
func Definitions() []Definition {
	return []Definition{Normal, TNBC}
}

// Columns returns the clinical columns the definition reads.
func (d Definition) Columns() []string {
	cols := make([]string, len(d.Criteria))
	for i, c := range d.Criteria {
		cols[i] = c.Column
	}
	return cols
}

// Matches reports whether every criterion holds for the sample. A missing
// value never matches.
func (d Definition) Matches(t *clinical.Table, sample string) bool {
	for _, c := range d.Criteria {
		v, ok := t.Value(sample, c.Column)
		if !ok || v != c.Value {
			return false
		}
	}
	return true
}

// Select returns the samples satisfying the definition, in table order.
// Fails with clinical.ErrMissingColumn if a criterion column is absent.
func Select(t *clinical.Table, d Definition) ([]string, error) {
	if err := t.RequireColumns(d.Columns()...); err != nil {
		return nil, err
	}

	var selected []string
	for _, s := range t.Samples() {
		if d.Matches(t, s) {
			selected = append(selected, s)
		}
	}
	return selected, nil
}

// Align keeps the selected samples that are columns of the matrix,
// preserving selection order.
func Align(selected []string, m *expression.Matrix) []string {
	aligned := make([]string, 0, len(selected))
	for _, s := range selected {
		if m.HasSample(s) {
			aligned = append(aligned, s)
		}
	}
	return aligned
}

// Cohort is a selected and aligned sample set.
type Cohort struct {
	Name     string
	Artifact string
	Selected []string // satisfied the clinical criteria
	Samples  []string // Selected ∩ expression columns
}

// Build selects and aligns one cohort.
func Build(t *clinical.Table, m *expression.Matrix, d Definition) (*Cohort, error) {
	selected, err := Select(t, d)
	if err != nil {
		return nil, err
	}
	return &Cohort{
		Name:     d.Name,
		Artifact: d.Artifact,
		Selected: selected,
		Samples:  Align(selected, m),
	}, nil
}
