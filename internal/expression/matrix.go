// Package expression holds gene-by-sample log2 expression matrices.
package expression

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/inodb/tnbc-explorer/internal/table"
)

// Matrix is a gene-by-sample matrix of log2-scale expression values.
// Row and column order are preserved from the source. A Matrix is never
// mutated after construction.
type Matrix struct {
	indexName   string
	genes       []string
	samples     []string
	values      [][]float64    // values[gene][sample]
	geneIndex   map[string]int // first occurrence
	geneCount   map[string]int
	sampleIndex map[string]int
}

// New builds a matrix from row-major values. Each row must have one value per
// sample and sample identifiers must be unique.
func New(indexName string, genes, samples []string, values [][]float64) (*Matrix, error) {
	if len(values) != len(genes) {
		return nil, fmt.Errorf("expression: %d genes but %d rows", len(genes), len(values))
	}

	m := &Matrix{
		indexName:   indexName,
		genes:       genes,
		samples:     samples,
		values:      values,
		geneIndex:   make(map[string]int, len(genes)),
		geneCount:   make(map[string]int, len(genes)),
		sampleIndex: make(map[string]int, len(samples)),
	}
	for i, s := range samples {
		if _, dup := m.sampleIndex[s]; dup {
			return nil, fmt.Errorf("expression: duplicate sample %q", s)
		}
		m.sampleIndex[s] = i
	}
	for i, g := range genes {
		if len(values[i]) != len(samples) {
			return nil, fmt.Errorf("expression: gene %q has %d values, expected %d", g, len(values[i]), len(samples))
		}
		if _, ok := m.geneIndex[g]; !ok {
			m.geneIndex[g] = i
		}
		m.geneCount[g]++
	}
	return m, nil
}

// Load reads a tab-separated (optionally gzipped) gene-by-sample matrix.
func Load(path string) (*Matrix, error) {
	r, err := table.Open(path, table.Tab)
	if err != nil {
		return nil, fmt.Errorf("open expression matrix: %w", err)
	}
	defer r.Close()

	return Read(r)
}

// Read parses a matrix from an already opened table reader. The first column
// holds gene symbols; the remaining header fields are sample identifiers.
func Read(r *table.Reader) (*Matrix, error) {
	header := r.Header()
	samples := header[1:]

	var genes []string
	var values [][]float64
	for {
		fields, err := r.Next()
		if err != nil {
			return nil, err
		}
		if fields == nil {
			break
		}

		if len(fields) != len(header) {
			return nil, &table.ParseError{
				Line:    r.LineNumber(),
				Message: fmt.Sprintf("expected %d columns, found %d", len(header), len(fields)),
			}
		}

		row := make([]float64, len(samples))
		for i, f := range fields[1:] {
			v, err := ParseValue(f)
			if err != nil {
				return nil, &table.ParseError{
					Line:    r.LineNumber(),
					Message: fmt.Sprintf("invalid value %q for sample %s", f, samples[i]),
				}
			}
			row[i] = v
		}
		genes = append(genes, fields[0])
		values = append(values, row)
	}

	m, err := New(header[0], genes, samples, values)
	if err != nil {
		return nil, &table.ParseError{Line: 1, Message: err.Error()}
	}
	return m, nil
}

// ParseValue parses an expression cell. Empty and NA cells are missing
// values and parse as NaN.
func ParseValue(s string) (float64, error) {
	switch s {
	case "", "NA", "NaN", "nan", "null":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// FormatValue formats a value for the curated CSV. NaN is written as an
// empty cell.
func FormatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// IndexName returns the header of the gene column.
func (m *Matrix) IndexName() string { return m.indexName }

// Genes returns the row keys in order, including duplicates.
func (m *Matrix) Genes() []string { return m.genes }

// Samples returns the column keys in order.
func (m *Matrix) Samples() []string { return m.samples }

// NumGenes returns the number of rows.
func (m *Matrix) NumGenes() int { return len(m.genes) }

// NumSamples returns the number of columns.
func (m *Matrix) NumSamples() int { return len(m.samples) }

// HasSample reports whether the sample is a column of the matrix.
func (m *Matrix) HasSample(sample string) bool {
	_, ok := m.sampleIndex[sample]
	return ok
}

// HasGene reports whether the gene is a row key of the matrix.
func (m *Matrix) HasGene(gene string) bool {
	_, ok := m.geneIndex[gene]
	return ok
}

// GeneCount returns how many rows carry the gene symbol.
func (m *Matrix) GeneCount(gene string) int {
	return m.geneCount[gene]
}

// Row returns the values of the first row keyed by gene. The returned slice
// must not be modified.
func (m *Matrix) Row(gene string) ([]float64, bool) {
	i, ok := m.geneIndex[gene]
	if !ok {
		return nil, false
	}
	return m.values[i], true
}

// Value returns a single cell.
func (m *Matrix) Value(gene, sample string) (float64, bool) {
	row, ok := m.Row(gene)
	if !ok {
		return 0, false
	}
	j, ok := m.sampleIndex[sample]
	if !ok {
		return 0, false
	}
	return row[j], true
}

// Restrict returns a new matrix holding exactly the given columns, in the
// given order, and every row unchanged.
func (m *Matrix) Restrict(samples []string) (*Matrix, error) {
	cols := make([]int, len(samples))
	for i, s := range samples {
		j, ok := m.sampleIndex[s]
		if !ok {
			return nil, fmt.Errorf("expression: sample %q not in matrix", s)
		}
		cols[i] = j
	}

	values := make([][]float64, len(m.values))
	for i, src := range m.values {
		row := make([]float64, len(cols))
		for k, j := range cols {
			row[k] = src[j]
		}
		values[i] = row
	}

	out := make([]string, len(samples))
	copy(out, samples)
	return New(m.indexName, m.genes, out, values)
}

// WriteCSV writes the matrix as comma-separated text: a header of the index
// name followed by sample identifiers, then one line per gene.
func (m *Matrix) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	record := make([]string, len(m.samples)+1)
	record[0] = m.indexName
	copy(record[1:], m.samples)
	if err := writeRecord(w, cw, record); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, gene := range m.genes {
		record[0] = gene
		for j, v := range m.values[i] {
			record[j+1] = FormatValue(v)
		}
		if err := writeRecord(w, cw, record); err != nil {
			return fmt.Errorf("write gene %s: %w", gene, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// writeRecord writes one CSV record. A record holding a single empty field
// is written as a quoted empty string; csv.Writer would emit a blank line,
// which readers skip.
func writeRecord(w io.Writer, cw *csv.Writer, record []string) error {
	if len(record) != 1 || record[0] != "" {
		return cw.Write(record)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\"\"\n")
	return err
}

// ReadCSV parses a matrix previously written with WriteCSV.
func ReadCSV(r io.Reader) (*Matrix, error) {
	tr, err := table.NewReader(r, table.Comma)
	if err != nil {
		return nil, err
	}
	return Read(tr)
}
