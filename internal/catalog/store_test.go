package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/tnbc-explorer/internal/cohort"
	"github.com/inodb/tnbc-explorer/internal/storage"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testReport() *cohort.Report {
	return &cohort.Report{
		ClinicalPath:      "BRCA_clinicalMatrix",
		ExpressionPath:    "HiSeqV2",
		ClinicalSamples:   5,
		Genes:             3,
		ExpressionSamples: 4,
		Cohorts: []*cohort.Cohort{
			{Name: cohort.NameNormal, Artifact: cohort.NormalArtifact,
				Selected: []string{"N1", "N2"}, Samples: []string{"N1"}},
			{Name: cohort.NameTNBC, Artifact: cohort.TNBCArtifact,
				Selected: []string{"T1", "T2"}, Samples: []string{"T1", "T2"}},
		},
		Artifacts: []storage.Info{
			{Key: cohort.NormalArtifact, Location: "data/normal_expression_log2.csv"},
			{Key: cohort.TNBCArtifact, Location: "data/tnbc_expression_log2.csv"},
		},
		StartedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
	}
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.db.Ping())
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "catalog.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Dir(path))
	assert.NoError(t, err)
}

func TestRecordAndListRuns(t *testing.T) {
	s := openInMemory(t)

	clin := FileFingerprint{Path: "BRCA_clinicalMatrix", Size: 100, ModTime: time.Unix(1700000000, 123456789)}
	expr := FileFingerprint{Path: "HiSeqV2", Size: 2000, ModTime: time.Unix(1700000100, 0)}

	id1, err := s.RecordRun(testReport(), clin, expr, "fs")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id1)

	id2, err := s.RecordRun(testReport(), clin, expr, "fs")
	require.NoError(t, err)
	assert.Equal(t, int64(2), id2)

	runs, err := s.Runs(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, int64(2), runs[0].ID)
	assert.Equal(t, int64(1), runs[1].ID)

	r := runs[0]
	assert.Equal(t, 1500*time.Millisecond, r.Duration)
	assert.Equal(t, "HiSeqV2", r.Expression.Path)
	assert.Equal(t, int64(2000), r.Expression.Size)
	assert.True(t, clin.ModTime.Equal(r.Clinical.ModTime))
	assert.Equal(t, 5, r.ClinicalSamples)
	assert.Equal(t, 3, r.Genes)
	assert.Equal(t, 4, r.ExpressionSamples)
	assert.Equal(t, "fs", r.StorageDriver)

	require.Len(t, r.Cohorts, 2)
	assert.Equal(t, CohortCount{Name: "TNBC", Selected: 2, Found: 2, Location: "data/tnbc_expression_log2.csv"}, r.Cohorts[0])
	assert.Equal(t, CohortCount{Name: "Normal", Selected: 2, Found: 1, Location: "data/normal_expression_log2.csv"}, r.Cohorts[1])

	limited, err := s.Runs(1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, int64(2), limited[0].ID)
}

func TestRecordRun_SampleAppendFailureRemovesRun(t *testing.T) {
	s := openInMemory(t)

	// A narrower cohort_samples table makes every appended row fail.
	_, err := s.db.Exec(`DROP TABLE cohort_samples`)
	require.NoError(t, err)
	_, err = s.db.Exec(`CREATE TABLE cohort_samples (run_id BIGINT)`)
	require.NoError(t, err)

	_, err = s.RecordRun(testReport(), FileFingerprint{}, FileFingerprint{}, "fs")
	require.Error(t, err)

	runs, err := s.Runs(0)
	require.NoError(t, err)
	assert.Empty(t, runs)

	var counts, samples int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM cohort_counts`).Scan(&counts))
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM cohort_samples`).Scan(&samples))
	assert.Zero(t, counts)
	assert.Zero(t, samples)
}

func TestLatestRunEmpty(t *testing.T) {
	s := openInMemory(t)
	run, err := s.LatestRun()
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestCohortSamples(t *testing.T) {
	s := openInMemory(t)
	id, err := s.RecordRun(testReport(), FileFingerprint{}, FileFingerprint{}, "fs")
	require.NoError(t, err)

	all, err := s.CohortSamples(id, cohort.NameNormal, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"N1", "N2"}, all)

	found, err := s.CohortSamples(id, cohort.NameNormal, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"N1"}, found)

	none, err := s.CohortSamples(id+1, cohort.NameTNBC, false)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUnchanged(t *testing.T) {
	s := openInMemory(t)
	clin := FileFingerprint{Path: "c", Size: 10, ModTime: time.Unix(1700000000, 0)}
	expr := FileFingerprint{Path: "e", Size: 20, ModTime: time.Unix(1700000000, 0)}

	_, same, err := s.Unchanged(clin, expr)
	require.NoError(t, err)
	assert.False(t, same, "no runs recorded")

	_, err = s.RecordRun(testReport(), clin, expr, "fs")
	require.NoError(t, err)

	run, same, err := s.Unchanged(clin, expr)
	require.NoError(t, err)
	assert.True(t, same)
	assert.Equal(t, int64(1), run.ID)

	touched := expr
	touched.ModTime = touched.ModTime.Add(time.Second)
	_, same, err = s.Unchanged(clin, touched)
	require.NoError(t, err)
	assert.False(t, same)

	grown := clin
	grown.Size++
	_, same, err = s.Unchanged(grown, expr)
	require.NoError(t, err)
	assert.False(t, same)
}

func TestStatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.tsv")
	require.NoError(t, os.WriteFile(path, []byte("sample\n"), 0644))

	fp, err := StatFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, fp.Path)
	assert.Equal(t, int64(7), fp.Size)
	assert.False(t, fp.ModTime.IsZero())

	_, err = StatFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
