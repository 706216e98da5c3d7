package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/tnbc-explorer/internal/catalog"
	"github.com/inodb/tnbc-explorer/internal/cohort"
	"github.com/inodb/tnbc-explorer/internal/metrics"
	"github.com/inodb/tnbc-explorer/internal/storage"
)

// Default source table names, as published by UCSC Xena.
const (
	defaultClinicalFile   = "TCGA.BRCA.sampleMap_BRCA_clinicalMatrix.tsv"
	defaultExpressionFile = "HiSeqV2"
)

func newCurateCmd() *cobra.Command {
	var skipUnchanged bool

	cmd := &cobra.Command{
		Use:   "curate",
		Short: "Build the Normal and TNBC curated expression matrices",
		Long: `Select the Normal (Solid Tissue Normal) and TNBC (Primary Tumor, ER-, PR-,
HER2-) cohorts from the clinical table, restrict the expression matrix to each
cohort and write normal_expression_log2.csv and tnbc_expression_log2.csv.`,
		Example: `  tnbc-explorer curate
  tnbc-explorer curate --clinical BRCA_clinicalMatrix --expression HiSeqV2.gz
  tnbc-explorer curate --storage s3`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCurate(cmd.Context(), skipUnchanged)
		},
	}

	f := cmd.Flags()
	f.String("clinical", defaultClinicalFile, "Clinical annotation table (TSV, optionally gzipped)")
	f.String("expression", defaultExpressionFile, "Gene expression matrix (TSV, optionally gzipped)")
	f.String("metrics-file", "", "Write Prometheus textfile metrics to this path")
	f.BoolVar(&skipUnchanged, "skip-unchanged", false, "Skip curation when the inputs match the last recorded run")
	mustBind("clinical_file", f.Lookup("clinical"))
	mustBind("expression_file", f.Lookup("expression"))
	mustBind("metrics.file", f.Lookup("metrics-file"))

	return cmd
}

func runCurate(ctx context.Context, skipUnchanged bool) error {
	logger := newLogger()
	defer logger.Sync()

	clinicalPath := viper.GetString("clinical_file")
	expressionPath := viper.GetString("expression_file")

	store, err := openStore(ctx)
	if err != nil {
		return err
	}

	if skipUnchanged {
		run, ok, err := unchangedRun(ctx, store, clinicalPath, expressionPath)
		if err != nil {
			logger.Warn("could not check previous runs", zap.Error(err))
		} else if ok {
			fmt.Printf("Inputs unchanged since run %d (%s), skipping curation.\n",
				run.ID, run.StartedAt.Format("2006-01-02 15:04:05"))
			return nil
		}
	}

	fmt.Println("Starting data curation process...")

	curator := cohort.NewCurator(clinicalPath, expressionPath, store)
	curator.SetLogger(logger)
	report, err := curator.Curate(ctx)
	if err != nil {
		return err
	}

	normal := report.Cohort(cohort.NameNormal)
	tnbc := report.Cohort(cohort.NameTNBC)
	fmt.Printf("Identified %d Normal Tissue samples.\n", len(normal.Selected))
	fmt.Printf("Identified %d Triple-Negative (TNBC) samples.\n", len(tnbc.Selected))
	fmt.Printf("Found %d normal samples and %d TNBC samples in the expression matrix.\n",
		len(normal.Samples), len(tnbc.Samples))

	fmt.Printf("\nData curation complete!\n")
	for _, info := range report.Artifacts {
		fmt.Printf("  %s\n", info.Location)
	}

	if err := recordRun(report, store.Driver()); err != nil {
		logger.Warn("could not record curation run", zap.Error(err))
	}

	if path := viper.GetString("metrics.file"); path != "" {
		m := metrics.NewCuration()
		m.Observe(report)
		if err := m.WriteFile(path); err != nil {
			return err
		}
		logger.Debug("wrote metrics", zap.String("path", path))
	}

	return nil
}

// unchangedRun reports the last run if both inputs still match its
// fingerprints and both artifacts exist.
func unchangedRun(ctx context.Context, store storage.Store, clinicalPath, expressionPath string) (*catalog.Run, bool, error) {
	clin, err := catalog.StatFile(clinicalPath)
	if err != nil {
		return nil, false, nil
	}
	expr, err := catalog.StatFile(expressionPath)
	if err != nil {
		return nil, false, nil
	}

	cat, err := catalog.Open(catalogPath())
	if err != nil {
		return nil, false, err
	}
	defer cat.Close()

	run, same, err := cat.Unchanged(clin, expr)
	if err != nil || !same {
		return nil, false, err
	}
	for _, key := range []string{cohort.NormalArtifact, cohort.TNBCArtifact} {
		if _, err := store.Head(ctx, key); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, false, nil
			}
			return nil, false, err
		}
	}
	return run, true, nil
}

func recordRun(report *cohort.Report, driver storage.Driver) error {
	clin, err := catalog.StatFile(report.ClinicalPath)
	if err != nil {
		return err
	}
	expr, err := catalog.StatFile(report.ExpressionPath)
	if err != nil {
		return err
	}

	cat, err := catalog.Open(catalogPath())
	if err != nil {
		return err
	}
	defer cat.Close()

	_, err = cat.RecordRun(report, clin, expr, string(driver))
	return err
}
