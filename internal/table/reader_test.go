package table

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_TSV(t *testing.T) {
	input := "sample\tS1\tS2\n" +
		"TP53\t1.5\t2\n" +
		"\n" +
		"BRCA1\t0\t\r\n"

	r, err := NewReader(strings.NewReader(input), Tab)
	require.NoError(t, err)

	assert.Equal(t, []string{"sample", "S1", "S2"}, r.Header())

	row, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"TP53", "1.5", "2"}, row)
	assert.Equal(t, 2, r.LineNumber())

	// Blank line skipped, CRLF trimmed, trailing empty field kept
	row, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"BRCA1", "0", ""}, row)
	assert.Equal(t, 4, r.LineNumber())

	row, err = r.Next()
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestReader_NoTrailingNewline(t *testing.T) {
	r, err := NewReader(strings.NewReader("id\tx\nA\t1"), Tab)
	require.NoError(t, err)

	row, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "1"}, row)

	row, err = r.Next()
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestReader_CSV(t *testing.T) {
	input := "sample,S1,S2\nTP53,1.5,2\n\"A,B\",3,\n"

	r, err := NewReader(strings.NewReader(input), Comma)
	require.NoError(t, err)
	assert.Equal(t, []string{"sample", "S1", "S2"}, r.Header())

	row, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"TP53", "1.5", "2"}, row)

	row, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"A,B", "3", ""}, row)
	assert.Equal(t, 3, r.LineNumber())

	row, err = r.Next()
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestReader_HeaderOnly(t *testing.T) {
	r, err := NewReader(strings.NewReader("sample\n"), Comma)
	require.NoError(t, err)
	assert.Equal(t, []string{"sample"}, r.Header())

	row, err := r.Next()
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestReader_Empty(t *testing.T) {
	_, err := NewReader(strings.NewReader("\n\n"), Tab)
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, perr.Error(), "no header line found")
}

func TestReader_MalformedCSV(t *testing.T) {
	r, err := NewReader(strings.NewReader("sample,S1\n\"TP53,1\n"), Comma)
	require.NoError(t, err)

	_, err = r.Next()
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.GreaterOrEqual(t, perr.Line, 2)
}

func TestOpen_Gzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte("sample\tS1\nTP53\t4.25\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	path := filepath.Join(t.TempDir(), "HiSeqV2.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	r, err := Open(path, Tab)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"sample", "S1"}, r.Header())
	row, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"TP53", "4.25"}, row)
}

func TestOpen_Plain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clinical.tsv")
	require.NoError(t, os.WriteFile(path, []byte("sampleID\tsample_type\nS1\tPrimary Tumor\n"), 0644))

	r, err := Open(path, Tab)
	require.NoError(t, err)
	defer r.Close()

	row, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "Primary Tumor"}, row)
}

func TestOpen_NotExist(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.tsv"), Tab)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	var oerr *OpenError
	require.True(t, errors.As(err, &oerr))
	assert.Equal(t, "open table", oerr.Op)
}

func TestOpen_Directory(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(dir, Tab)
	require.Error(t, err)

	var oerr *OpenError
	require.True(t, errors.As(err, &oerr))
	assert.Equal(t, dir, oerr.Path)

	var perr *ParseError
	assert.False(t, errors.As(err, &perr))
}

func TestOpen_EmptyFileIsParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.tsv")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	_, err := Open(path, Tab)
	var perr *ParseError
	require.True(t, errors.As(err, &perr))

	var oerr *OpenError
	assert.False(t, errors.As(err, &oerr))
}

func TestReader_CSVQuotedEmptyHeader(t *testing.T) {
	r, err := NewReader(strings.NewReader("\"\"\nTP53\nBRCA1\n"), Comma)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, r.Header())

	row, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"TP53"}, row)
}
