// Package output renders query results: a console summary, JSON and a bar
// chart image.
package output

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/inodb/tnbc-explorer/internal/query"
)

// SummaryWriter writes the human-readable query summary.
type SummaryWriter struct {
	w *bufio.Writer
}

// NewSummaryWriter creates a new summary writer.
func NewSummaryWriter(w io.Writer) *SummaryWriter {
	return &SummaryWriter{w: bufio.NewWriter(w)}
}

// Write writes one result. Means and fold-change use two decimals; an
// undefined standard error is shown as n/a.
func (sw *SummaryWriter) Write(r *query.Result) error {
	lines := []string{
		"",
		"--- TNBC Gene Expression Explorer ---",
		fmt.Sprintf("Gene Queried: %s", r.Gene),
	}
	if r.GeneType != "" {
		lines = append(lines, fmt.Sprintf("Gene Type: %s", r.GeneType))
	}
	lines = append(lines,
		fmt.Sprintf("Average Expression (TNBC): %s (log2 scale)", formatFixed(r.TNBC.Mean)),
		fmt.Sprintf("Average Expression (Normal): %s (log2 scale)", formatFixed(r.Normal.Mean)),
		fmt.Sprintf("Log2 Fold Change (TNBC/Normal): %s", formatFixed(r.Log2FoldChange)),
		fmt.Sprintf("SEM (TNBC): %s (n=%d)", formatSEM(r.TNBC), r.TNBC.N),
		fmt.Sprintf("SEM (Normal): %s (n=%d)", formatSEM(r.Normal), r.Normal.N),
	)

	for _, line := range lines {
		if _, err := sw.w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (sw *SummaryWriter) Flush() error {
	return sw.w.Flush()
}

func formatFixed(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.2f", v)
}

func formatSEM(s query.Summary) string {
	if !s.SEMDefined() {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", s.SEM)
}
