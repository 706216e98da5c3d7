package output

import (
	"bytes"
	"encoding/json"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/tnbc-explorer/internal/query"
)

func tp53Result() *query.Result {
	return &query.Result{
		Gene:           "TP53",
		TNBC:           query.Summary{Mean: 7, SEM: 1, N: 2},
		Normal:         query.Summary{Mean: 3, SEM: 1, N: 2},
		Log2FoldChange: 4,
	}
}

func TestSummaryWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewSummaryWriter(&buf)

	require.NoError(t, w.Write(tp53Result()))
	require.NoError(t, w.Flush())

	out := buf.String()
	assert.Contains(t, out, "--- TNBC Gene Expression Explorer ---\n")
	assert.Contains(t, out, "Gene Queried: TP53\n")
	assert.Contains(t, out, "Average Expression (TNBC): 7.00 (log2 scale)\n")
	assert.Contains(t, out, "Average Expression (Normal): 3.00 (log2 scale)\n")
	assert.Contains(t, out, "Log2 Fold Change (TNBC/Normal): 4.00\n")
	assert.Contains(t, out, "SEM (TNBC): 1.00 (n=2)\n")
	assert.NotContains(t, out, "Gene Type")
}

func TestSummaryWriter_UndefinedSEM(t *testing.T) {
	r := tp53Result()
	r.Normal = query.Summary{Mean: 3, SEM: math.NaN(), N: 1}
	r.GeneType = "TSG"

	var buf bytes.Buffer
	w := NewSummaryWriter(&buf)
	require.NoError(t, w.Write(r))
	require.NoError(t, w.Flush())

	out := buf.String()
	assert.Contains(t, out, "SEM (Normal): n/a (n=1)\n")
	assert.Contains(t, out, "Gene Type: TSG\n")
}

func TestWriteJSON(t *testing.T) {
	r := tp53Result()
	r.Normal.SEM = math.NaN()

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, r))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, "TP53", got["gene"])
	assert.Equal(t, 4.0, got["log2_fold_change"])
	assert.NotContains(t, got, "gene_type")

	normal := got["normal"].(map[string]any)
	assert.Contains(t, normal, "sem")
	assert.Nil(t, normal["sem"], "undefined SEM is null")
	assert.Equal(t, 3.0, normal["mean"])

	tnbc := got["tnbc"].(map[string]any)
	assert.Equal(t, 1.0, tnbc["sem"])
	assert.Equal(t, 2.0, tnbc["n"])
}

func TestWriteJSON_ZeroSEMIsNotNull(t *testing.T) {
	r := tp53Result()
	r.TNBC.SEM = 0

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, r))
	assert.Contains(t, buf.String(), `"sem": 0`)
}

func TestWriteChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteChart(&buf, tp53Result()))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, chartWidth, img.Bounds().Dx())
	assert.Equal(t, chartHeight, img.Bounds().Dy())
	// 7 inches at 300 dpi
	assert.Equal(t, 2100, img.Bounds().Dx())
	assert.Equal(t, 2100, img.Bounds().Dy())
}

func TestWriteChart_UndefinedValues(t *testing.T) {
	r := &query.Result{
		Gene:           "EMPTY",
		TNBC:           query.Summary{Mean: 5, SEM: math.NaN(), N: 1},
		Normal:         query.Summary{Mean: math.NaN(), SEM: math.NaN()},
		Log2FoldChange: math.NaN(),
	}
	var buf bytes.Buffer
	require.NoError(t, WriteChart(&buf, r))
	_, err := png.Decode(&buf)
	require.NoError(t, err)
}

func TestSaveChart(t *testing.T) {
	dir := t.TempDir()

	path, err := SaveChart(dir, tp53Result())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "TP53_expression_plot.png"), path)

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, st.Size(), int64(0))
}

func TestChartFileName(t *testing.T) {
	assert.Equal(t, "BRCA1_expression_plot.png", ChartFileName("BRCA1"))
	name := ChartFileName("HLA/DRB1")
	assert.False(t, strings.Contains(name, "/"))
}

func TestChartRange(t *testing.T) {
	lo, hi := chartRange([]bar{
		{s: query.Summary{Mean: 7, SEM: 1}},
		{s: query.Summary{Mean: 3, SEM: math.NaN()}},
	})
	assert.Equal(t, 0.0, lo)
	assert.InDelta(t, 8.8, hi, 1e-9)

	lo, hi = chartRange([]bar{{s: query.Summary{Mean: math.NaN(), SEM: math.NaN()}}})
	assert.Equal(t, 0.0, lo)
	assert.InDelta(t, 1.1, hi, 1e-9)
}
