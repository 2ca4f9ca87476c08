package main

import (
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/systmms/secretsrc/cmd/secretsrc/commands"
	"github.com/systmms/secretsrc/internal/config"
	serrors "github.com/systmms/secretsrc/internal/errors"
	"github.com/systmms/secretsrc/internal/logging"
	"github.com/systmms/secretsrc/internal/metrics"
	"github.com/systmms/secretsrc/internal/providers"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	err := run()
	memguard.Purge()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", serrors.Explain(err))
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile string
		noColor    bool
		debug      bool
	)

	cfg := &config.Config{Logger: logging.Discard()}
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	app := &commands.App{
		Config:   cfg,
		Gatherer: registry,
		NewRegistry: func() *providers.Registry {
			return providers.NewRegistry(
				providers.WithLogger(cfg.Logger),
				providers.WithWrapper(m.Instrument),
			)
		},
	}

	rootCmd := &cobra.Command{
		Use:   "secretsrc",
		Short: "Resolve secrets from interchangeable backends",
		Long: `secretsrc resolves named secrets on demand from environment variables, local files,
cloud secret managers, HashiCorp Vault, OS credential stores and pass.

A backend is selected and configured by a single URI, for example
  awssm://?secrets=prod/app,prod/shared&region=eu-west-1`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Path = configFile
			cfg.Logger = logging.New(debug, noColor)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewProvidersCommand(app),
		commands.NewResolveCommand(app),
		commands.NewSetCommand(app),
		commands.NewCheckCommand(app),
		commands.NewSealCommand(app),
	)

	return rootCmd.Execute()
}
