package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage tnbc-explorer configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.tnbc-explorer.yaml.",
		Example: `  tnbc-explorer config                                  # show all config
  tnbc-explorer config set storage.driver s3            # store curated matrices in S3
  tnbc-explorer config set storage.s3.bucket my-bucket
  tnbc-explorer config get data_dir                     # get a value`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow()
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(args[0])
		},
	}
}

func runConfigShow() error {
	out, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if f := viper.ConfigFileUsed(); f != "" {
		fmt.Printf("# Config file: %s\n", f)
	} else {
		fmt.Println("# No config file; showing defaults. Config file: ~/.tnbc-explorer.yaml")
	}
	fmt.Print(string(out))
	return nil
}

// configKeys lists the settable keys and whether each holds a boolean.
var configKeys = map[string]bool{
	"clinical_file":         false,
	"expression_file":       false,
	"data_dir":              false,
	"storage.driver":        false,
	"storage.s3.bucket":     false,
	"storage.s3.prefix":     false,
	"storage.s3.region":     false,
	"storage.s3.endpoint":   false,
	"storage.s3.path_style": true,
	"catalog.path":          false,
	"metrics.file":          false,
	"genelist.path":         false,
	"serve.addr":            false,
	"verbose":               true,
}

func runConfigSet(key, value string) error {
	isBool, ok := configKeys[key]
	if !ok {
		return usageErrorf("unknown config key %q", key)
	}
	if key == "storage.driver" && value != "fs" && value != "s3" {
		return usageErrorf("storage.driver must be fs or s3, got %q", value)
	}

	if isBool {
		switch value {
		case "true", "yes", "on":
			viper.Set(key, true)
		case "false", "no", "off":
			viper.Set(key, false)
		default:
			return usageErrorf("%s expects a boolean, got %q", key, value)
		}
	} else {
		viper.Set(key, value)
	}

	// Ensure config file exists
	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, ".tnbc-explorer.yaml")
	}

	if err := viper.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func runConfigGet(key string) error {
	val := viper.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Println(val)
	return nil
}
