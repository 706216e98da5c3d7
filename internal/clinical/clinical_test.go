package clinical

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/tnbc-explorer/internal/table"
)

const sampleClinical = "sampleID\tsample_type\tbreast_carcinoma_estrogen_receptor_status\n" +
	"TCGA-A1-0001-11\tSolid Tissue Normal\t\n" +
	"TCGA-A1-0002-01\tPrimary Tumor\tNegative\n" +
	"TCGA-A1-0003-01\tPrimary Tumor\n"

func readString(t *testing.T, s string) (*Table, error) {
	t.Helper()
	r, err := table.NewReader(strings.NewReader(s), table.Tab)
	require.NoError(t, err)
	return Read(r)
}

func TestRead(t *testing.T) {
	tbl, err := readString(t, sampleClinical)
	require.NoError(t, err)

	assert.Equal(t, "sampleID", tbl.IndexName())
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, []string{"TCGA-A1-0001-11", "TCGA-A1-0002-01", "TCGA-A1-0003-01"}, tbl.Samples())
	assert.True(t, tbl.HasColumn(ColSampleType))
	assert.False(t, tbl.HasColumn(ColPRStatus))

	v, ok := tbl.Value("TCGA-A1-0002-01", ColERStatus)
	assert.True(t, ok)
	assert.Equal(t, StatusNegative, v)

	// Empty cell is present but empty
	v, ok = tbl.Value("TCGA-A1-0001-11", ColERStatus)
	assert.True(t, ok)
	assert.Equal(t, "", v)

	// Short record
	_, ok = tbl.Value("TCGA-A1-0003-01", ColERStatus)
	assert.False(t, ok)

	// Unknown sample and column
	_, ok = tbl.Value("nope", ColSampleType)
	assert.False(t, ok)
	_, ok = tbl.Value("TCGA-A1-0002-01", ColPRStatus)
	assert.False(t, ok)
}

func TestRequireColumns(t *testing.T) {
	tbl, err := readString(t, sampleClinical)
	require.NoError(t, err)

	require.NoError(t, tbl.RequireColumns(ColSampleType, ColERStatus))

	err = tbl.RequireColumns(ColSampleType, ColHER2Status)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))
	assert.Contains(t, err.Error(), ColHER2Status)
}

func TestRead_DuplicateSample(t *testing.T) {
	_, err := readString(t, "sampleID\tsample_type\nS1\tPrimary Tumor\nS1\tSolid Tissue Normal\n")
	require.Error(t, err)

	var perr *table.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 3, perr.Line)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clinical.tsv")
	require.NoError(t, os.WriteFile(path, []byte(sampleClinical), 0644))

	tbl, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())
}

func TestLoad_NotExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.tsv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}
