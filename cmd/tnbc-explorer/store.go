package main

import (
	"context"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/tnbc-explorer/internal/genelist"
	"github.com/inodb/tnbc-explorer/internal/storage"
)

// storageConfig reads the artifact store settings.
func storageConfig() storage.Config {
	return storage.Config{
		Driver: viper.GetString("storage.driver"),
		Dir:    viper.GetString("data_dir"),
		S3: storage.S3Config{
			Bucket:    viper.GetString("storage.s3.bucket"),
			Prefix:    viper.GetString("storage.s3.prefix"),
			Region:    viper.GetString("storage.s3.region"),
			Endpoint:  viper.GetString("storage.s3.endpoint"),
			PathStyle: viper.GetBool("storage.s3.path_style"),
		},
	}
}

func openStore(ctx context.Context) (storage.Store, error) {
	return storage.Open(ctx, storageConfig())
}

// geneTypes loads the configured cancer gene list. A missing or unreadable
// list only disables gene type labels.
func geneTypes(logger *zap.Logger) func(string) string {
	path := viper.GetString("genelist.path")
	if path == "" {
		return nil
	}
	list, err := genelist.Load(path)
	if err != nil {
		logger.Warn("could not load cancer gene list", zap.String("path", path), zap.Error(err))
		return nil
	}
	logger.Debug("loaded cancer gene list", zap.String("path", path), zap.Int("genes", len(list)))
	return list.GeneType
}
