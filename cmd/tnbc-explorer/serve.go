package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/tnbc-explorer/internal/query"
	"github.com/inodb/tnbc-explorer/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve gene queries over HTTP",
		Long: `Load the curated matrices and answer gene queries over HTTP:

  GET  /healthcheck
  GET  /genes/:symbol
  POST /reload         re-read the curated matrices after a new curation`,
		Example: `  tnbc-explorer serve --addr :8080
  curl localhost:8080/genes/BRCA1`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	cmd.Flags().String("addr", ":8080", "Listen address")
	mustBind("serve.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func runServe(ctx context.Context) error {
	logger := newLogger()
	defer logger.Sync()

	if !viper.GetBool("verbose") {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}

	srv := server.New(store)
	srv.SetLogger(logger)
	if lookup := geneTypes(logger); lookup != nil {
		srv.SetGeneTypes(lookup)
	}

	if err := srv.Reload(ctx); err != nil {
		if !errors.Is(err, query.ErrMissingCuratedData) {
			return err
		}
		logger.Warn("curated data not found; serving without a snapshot until POST /reload",
			zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx, viper.GetString("serve.addr"))
}
