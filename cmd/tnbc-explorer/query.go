package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/tnbc-explorer/internal/output"
	"github.com/inodb/tnbc-explorer/internal/query"
)

type queryOptions struct {
	gene    string
	format  string
	noPlot  bool
	plotDir string
}

func newQueryCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Compare one gene's expression between TNBC and Normal tissue",
		Long: `Load the curated matrices, compute the mean expression and standard error
of the mean for the gene in each cohort and the log2 fold change (TNBC mean
minus Normal mean). A bar chart is saved as <GENE>_expression_plot.png.`,
		Example: `  tnbc-explorer query --gene BRCA1
  tnbc-explorer query --gene TP53 --format json --no-plot
  tnbc-explorer query --gene ESR1 --plot-dir plots`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.gene == "" {
				return usageErrorf("--gene is required")
			}
			switch opts.format {
			case "text", "json":
			default:
				return usageErrorf("unknown output format %q (want text or json)", opts.format)
			}
			return runQuery(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.gene, "gene", "g", "", "Official gene symbol to query (e.g., BRCA1)")
	f.StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	f.BoolVar(&opts.noPlot, "no-plot", false, "Do not write the bar chart")
	f.StringVar(&opts.plotDir, "plot-dir", ".", "Directory for the bar chart")

	return cmd
}

func runQuery(ctx context.Context, opts queryOptions) error {
	logger := newLogger()
	defer logger.Sync()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}

	snap, err := query.LoadSnapshot(ctx, store)
	if err != nil {
		return err
	}
	logger.Debug("loaded curated matrices",
		zap.Int("genes", snap.TNBC.NumGenes()),
		zap.Int("tnbc_samples", snap.TNBC.NumSamples()),
		zap.Int("normal_samples", snap.Normal.NumSamples()))

	engine := query.NewEngine(snap)
	engine.SetLogger(logger)
	if lookup := geneTypes(logger); lookup != nil {
		engine.SetGeneTypes(lookup)
	}

	result, err := engine.Query(opts.gene)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		if err := output.WriteJSON(os.Stdout, result); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	} else {
		sw := output.NewSummaryWriter(os.Stdout)
		if err := sw.Write(result); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
		if err := sw.Flush(); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}

	if opts.noPlot {
		return nil
	}
	path, err := output.SaveChart(opts.plotDir, result)
	if err != nil {
		return err
	}
	// Keep stdout clean for JSON consumers.
	if opts.format == "json" {
		logger.Info("visualization saved", zap.String("path", path))
	} else {
		fmt.Printf("\nVisualization saved to: %s\n", path)
	}
	return nil
}
