// Package genelist loads the OncoKB cancer gene list used to label queried
// genes as oncogenes or tumor suppressors.
package genelist

import (
	"fmt"
	"strings"

	"github.com/inodb/tnbc-explorer/internal/table"
)

// Entry holds OncoKB gene-level annotations.
type Entry struct {
	HugoSymbol string
	GeneType   string // "ONCOGENE", "TSG", or "ONCOGENE,TSG"
}

// List maps Hugo Symbol to Entry.
type List map[string]*Entry

// GeneType returns the gene type for a symbol, or "" if it is not listed.
func (l List) GeneType(gene string) string {
	if e, ok := l[gene]; ok {
		return e.GeneType
	}
	return ""
}

// Load loads an OncoKB cancerGeneList.tsv file.
// The TSV must have columns "Hugo Symbol" and "Gene Type" in the header.
func Load(path string) (List, error) {
	r, err := table.Open(path, table.Tab)
	if err != nil {
		return nil, fmt.Errorf("open cancer gene list: %w", err)
	}
	defer r.Close()
	return Read(r)
}

// Read builds a List from an already opened table.
func Read(r *table.Reader) (List, error) {
	hugoIdx := -1
	geneTypeIdx := -1
	for i, col := range r.Header() {
		switch col {
		case "Hugo Symbol":
			hugoIdx = i
		case "Gene Type":
			geneTypeIdx = i
		}
	}
	if hugoIdx < 0 {
		return nil, fmt.Errorf("cancer gene list: missing 'Hugo Symbol' column")
	}
	if geneTypeIdx < 0 {
		return nil, fmt.Errorf("cancer gene list: missing 'Gene Type' column")
	}

	list := make(List)
	for {
		fields, err := r.Next()
		if err != nil {
			return nil, fmt.Errorf("reading cancer gene list: %w", err)
		}
		if fields == nil {
			break
		}
		if len(fields) <= hugoIdx || len(fields) <= geneTypeIdx {
			continue
		}
		hugo := strings.TrimSpace(fields[hugoIdx])
		if hugo == "" {
			continue
		}
		list[hugo] = &Entry{
			HugoSymbol: hugo,
			GeneType:   strings.TrimSpace(fields[geneTypeIdx]),
		}
	}
	return list, nil
}
