package genelist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/tnbc-explorer/internal/table"
)

const sampleList = "Hugo Symbol\tEntrez Gene ID\tGene Type\tOncoKB Annotated\n" +
	"ABL1\t25\tONCOGENE\tYes\n" +
	"TP53\t7157\tTSG\tYes\n" +
	"BRCA1\t672\tTSG\tYes\n" +
	"NOTCH1\t4851\tONCOGENE,TSG\tYes\n" +
	"\t0\tTSG\tNo\n" +
	"SHORT\n"

func TestRead(t *testing.T) {
	r, err := table.NewReader(strings.NewReader(sampleList), table.Tab)
	require.NoError(t, err)

	list, err := Read(r)
	require.NoError(t, err)
	assert.Len(t, list, 4)

	tests := []struct {
		gene     string
		geneType string
	}{
		{"ABL1", "ONCOGENE"},
		{"TP53", "TSG"},
		{"BRCA1", "TSG"},
		{"NOTCH1", "ONCOGENE,TSG"},
	}
	for _, tt := range tests {
		t.Run(tt.gene, func(t *testing.T) {
			e, ok := list[tt.gene]
			require.True(t, ok, "gene %s should be in cancer gene list", tt.gene)
			assert.Equal(t, tt.gene, e.HugoSymbol)
			assert.Equal(t, tt.geneType, list.GeneType(tt.gene))
		})
	}
}

func TestReadMissingColumns(t *testing.T) {
	r, err := table.NewReader(strings.NewReader("Gene\tGene Type\nTP53\tTSG\n"), table.Tab)
	require.NoError(t, err)
	_, err = Read(r)
	assert.ErrorContains(t, err, "Hugo Symbol")

	r, err = table.NewReader(strings.NewReader("Hugo Symbol\tKind\nTP53\tTSG\n"), table.Tab)
	require.NoError(t, err)
	_, err = Read(r)
	assert.ErrorContains(t, err, "Gene Type")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cancerGeneList.tsv")
	require.NoError(t, os.WriteFile(path, []byte(sampleList), 0644))

	list, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "TSG", list.GeneType("TP53"))
	assert.Equal(t, "", list.GeneType("UNKNOWN"))
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path.tsv")
	assert.Error(t, err)
}
