// Package clinical loads the per-sample clinical annotation table.
package clinical

import (
	"errors"
	"fmt"

	"github.com/inodb/tnbc-explorer/internal/table"
)

// Standard clinical matrix column names
const (
	ColSampleType = "sample_type"
	ColERStatus   = "breast_carcinoma_estrogen_receptor_status"
	ColPRStatus   = "breast_carcinoma_progesterone_receptor_status"
	ColHER2Status = "lab_proc_her2_neu_immunohistochemistry_receptor_status"
)

// Attribute values used by cohort definitions.
const (
	SampleTypeNormal       = "Solid Tissue Normal"
	SampleTypePrimaryTumor = "Primary Tumor"
	StatusNegative         = "Negative"
)

// ErrMissingColumn is returned when a requested attribute column is not
// present in the table header.
var ErrMissingColumn = errors.New("clinical: missing column")

// Table holds clinical records keyed by sample identifier, in file order.
type Table struct {
	indexName string
	columns   []string
	colIndex  map[string]int
	samples   []string
	rows      map[string][]string
}

// Load reads a tab-separated clinical table. The first column is the sample
// identifier; the remaining header fields name the attributes.
func Load(path string) (*Table, error) {
	r, err := table.Open(path, table.Tab)
	if err != nil {
		return nil, fmt.Errorf("open clinical table: %w", err)
	}
	defer r.Close()

	return read(r)
}

// Read parses a clinical table from an already opened reader.
func Read(r *table.Reader) (*Table, error) {
	return read(r)
}

func read(r *table.Reader) (*Table, error) {
	header := r.Header()
	t := &Table{
		indexName: header[0],
		columns:   header[1:],
		colIndex:  make(map[string]int, len(header)-1),
		rows:      make(map[string][]string),
	}
	for i, col := range t.columns {
		if _, ok := t.colIndex[col]; !ok {
			t.colIndex[col] = i
		}
	}

	for {
		fields, err := r.Next()
		if err != nil {
			return nil, err
		}
		if fields == nil {
			break
		}

		id := fields[0]
		if _, dup := t.rows[id]; dup {
			return nil, &table.ParseError{
				Line:    r.LineNumber(),
				Message: fmt.Sprintf("duplicate sample identifier %q", id),
			}
		}
		t.samples = append(t.samples, id)
		t.rows[id] = fields[1:]
	}

	return t, nil
}

// IndexName returns the header of the sample identifier column.
func (t *Table) IndexName() string {
	return t.indexName
}

// Columns returns the attribute column names.
func (t *Table) Columns() []string {
	return t.columns
}

// Samples returns the sample identifiers in file order.
func (t *Table) Samples() []string {
	return t.samples
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.samples)
}

// HasColumn reports whether the table has the named attribute column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.colIndex[name]
	return ok
}

// RequireColumns returns ErrMissingColumn naming the first absent column.
func (t *Table) RequireColumns(names ...string) error {
	for _, name := range names {
		if !t.HasColumn(name) {
			return fmt.Errorf("%w %q", ErrMissingColumn, name)
		}
	}
	return nil
}

// Value returns the attribute value for a sample. The boolean is false if the
// sample or column is unknown, or the record is too short to hold the column.
func (t *Table) Value(sample, column string) (string, bool) {
	row, ok := t.rows[sample]
	if !ok {
		return "", false
	}
	i, ok := t.colIndex[column]
	if !ok || i >= len(row) {
		return "", false
	}
	return row[i], true
}
