package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/inodb/tnbc-explorer/internal/catalog"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	var samples int64
	var cohortName string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded curation runs",
		Example: `  tnbc-explorer history
  tnbc-explorer history --limit 5
  tnbc-explorer history --samples 3 --cohort TNBC`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if samples > 0 {
				return runHistorySamples(samples, cohortName)
			}
			return runHistory(limit)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&limit, "limit", "n", 10, "Number of runs to show (0 for all)")
	f.Int64Var(&samples, "samples", 0, "List the sample IDs of this run instead")
	f.StringVar(&cohortName, "cohort", "TNBC", "Cohort for --samples: Normal or TNBC")

	return cmd
}

func openCatalogIfExists() (*catalog.Store, error) {
	path := catalogPath()
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	return catalog.Open(path)
}

func runHistory(limit int) error {
	cat, err := openCatalogIfExists()
	if err != nil {
		return err
	}
	if cat == nil {
		fmt.Println("No curation runs recorded.")
		return nil
	}
	defer cat.Close()

	runs, err := cat.Runs(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No curation runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tDURATION\tGENES\tCOHORTS\tSTORAGE")
	for _, r := range runs {
		parts := make([]string, 0, len(r.Cohorts))
		for _, c := range r.Cohorts {
			parts = append(parts, fmt.Sprintf("%s %d/%d", c.Name, c.Found, c.Selected))
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Duration,
			r.Genes, strings.Join(parts, ", "), r.StorageDriver)
	}
	return tw.Flush()
}

func runHistorySamples(runID int64, cohortName string) error {
	cat, err := openCatalogIfExists()
	if err != nil {
		return err
	}
	if cat == nil {
		return fmt.Errorf("no curation runs recorded")
	}
	defer cat.Close()

	ids, err := cat.CohortSamples(runID, cohortName, true)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}
