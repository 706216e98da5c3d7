// Package main provides the tnbc-explorer command-line tool.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/tnbc-explorer/internal/cohort"
	"github.com/inodb/tnbc-explorer/internal/query"
)

// Exit codes
const (
	ExitSuccess            = 0
	ExitError              = 1
	ExitUsage              = 2
	ExitMissingInput       = 3
	ExitMissingCuratedData = 4
	ExitUnknownGene        = 5
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := errorHint(err); hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		return exitCode(err)
	}
	return ExitSuccess
}

// usageError marks an invalid invocation.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

func exitCode(err error) int {
	var uerr *usageError
	switch {
	case errors.As(err, &uerr):
		return ExitUsage
	case strings.HasPrefix(err.Error(), "unknown command"):
		return ExitUsage
	case errors.Is(err, cohort.ErrMissingInputFile):
		return ExitMissingInput
	case errors.Is(err, query.ErrMissingCuratedData):
		return ExitMissingCuratedData
	case errors.Is(err, query.ErrUnknownGene):
		return ExitUnknownGene
	default:
		return ExitError
	}
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, cohort.ErrMissingInputFile):
		return "download the source tables with: tnbc-explorer download"
	case errors.Is(err, query.ErrMissingCuratedData):
		return "run curation first with: tnbc-explorer curate"
	case errors.Is(err, query.ErrUnknownGene):
		return "check the spelling; gene symbols are case-sensitive"
	}
	return ""
}

// noArgs rejects positional arguments as a usage error.
func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return &usageError{err: err}
	}
	return nil
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	var verbose bool

	root := &cobra.Command{
		Use:   "tnbc-explorer",
		Short: "TNBC vs Normal gene expression explorer",
		Long: `tnbc-explorer curates Triple-Negative Breast Cancer and Normal tissue cohorts
from the TCGA BRCA clinical and expression tables, then compares the
expression of single genes between them.`,
		Example: `  tnbc-explorer download
  tnbc-explorer curate
  tnbc-explorer query --gene BRCA1`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cfgFile)
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default: ~/.tnbc-explorer.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	pf.String("data-dir", "data", "Directory holding the curated matrices")
	pf.String("storage", "fs", "Artifact storage driver: fs or s3")
	pf.String("catalog", "", "DuckDB curation catalog (default: <data-dir>/catalog.duckdb)")
	pf.String("gene-list", "", "OncoKB cancerGeneList.tsv used to label gene types")
	mustBind("verbose", pf.Lookup("verbose"))
	mustBind("data_dir", pf.Lookup("data-dir"))
	mustBind("storage.driver", pf.Lookup("storage"))
	mustBind("catalog.path", pf.Lookup("catalog"))
	mustBind("genelist.path", pf.Lookup("gene-list"))

	root.AddCommand(newCurateCmd())
	root.AddCommand(newQueryCmd())
	root.AddCommand(newDownloadCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  noArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tnbc-explorer version %s (%s) built %s\n", version, commit, date)
		},
	}
}

func initConfig(cfgFile string) error {
	viper.SetEnvPrefix("TNBC_EXPLORER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".tnbc-explorer")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || (cfgFile == "" && errors.Is(err, os.ErrNotExist)) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("clinical_file", defaultClinicalFile)
	viper.SetDefault("expression_file", defaultExpressionFile)
	viper.SetDefault("data_dir", "data")
	viper.SetDefault("storage.driver", "fs")
	viper.SetDefault("storage.s3.region", "us-east-1")
	viper.SetDefault("serve.addr", ":8080")
}

func mustBind(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// newLogger builds a console logger on stderr.
func newLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if viper.GetBool("verbose") {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// catalogPath resolves the catalog location, defaulting into the data dir.
func catalogPath() string {
	if p := viper.GetString("catalog.path"); p != "" {
		return p
	}
	return filepath.Join(viper.GetString("data_dir"), "catalog.duckdb")
}
