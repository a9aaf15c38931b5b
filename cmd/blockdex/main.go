// Package main is the blockdex CLI entry point.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hyperjump/blockdex/internal/cli"
	"github.com/hyperjump/blockdex/internal/config"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/blockdex/config.yaml"

var (
	flagConfig string
	flagDebug  bool
	flagDB     string
	flagServer string
	flagOutput string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "blockdex",
		Short:         "Project-scoped semantic code search",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", defaultConfigPath, "config file path")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "backing store path (overrides storage.database_path or storage.bolt_path)")
	root.PersistentFlags().StringVar(&flagServer, "server", "", "server URL for client commands (default from server.host and server.port)")
	root.PersistentFlags().StringVarP(&flagOutput, "output", "o", string(cli.OutputText), "output format: text or json")

	root.AddCommand(
		newServeCmd(),
		newMCPCmd(),
		newProjectCmd(),
		newSearchCmd(),
		newBlocksCmd(),
		newGrepCmd(),
		newFuncCmd(),
		newConfigCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "blockdex version %s\n", version)
			},
		},
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory takes precedence (for development), and a missing default file yields the
// built-in defaults. Returns the config and the path that was loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				cfg, err := config.Load(fallback)
				if err != nil {
					return nil, "", err
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// resolveConfig loads the config and applies global flag overrides.
func resolveConfig() (*config.Config, string, error) {
	cfg, path, err := loadConfig(flagConfig)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	if flagDebug {
		cfg.Debug = true
	}
	if flagDB != "" {
		abs, err := filepath.Abs(flagDB)
		if err != nil {
			return nil, "", err
		}
		if cfg.Storage.Backend == config.BackendBolt {
			cfg.Storage.BoltPath = abs
		} else {
			cfg.Storage.DatabasePath = abs
		}
	}
	return cfg, path, nil
}
