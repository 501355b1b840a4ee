package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gabrielmiguelok/stepform/internal/config"
	"github.com/gabrielmiguelok/stepform/internal/signup"
	"github.com/gabrielmiguelok/stepform/pkg/logging"
	"github.com/gabrielmiguelok/stepform/pkg/wizard"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "stepform",
		Short: "Multi-step signup wizard",
		Long: `stepform walks a user through a multi-step form, validating each step
before moving on, and hands the completed record to a sink.

Configuration is loaded with the following precedence:
  CLI flags > STEPFORM_* environment variables > config file > defaults

Project config: ./stepform.yaml`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default ./stepform.yaml when present)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.Bool("log-json", false, "log as JSON")
	pf.String("definition", "", "wizard definition YAML (default built-in signup)")

	root.AddCommand(newServeCmd(), newTUICmd(), newStepsCmd(), newVersionCmd())
	return root
}

// loadConfig resolves configuration for cmd, honouring --config and every
// flag bound to a config key.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	file, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.Options{File: file, Flags: cmd.Flags()})
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.NewSlogLogger(
		logging.WithLevel(level),
		logging.WithJSON(cfg.LogJSON),
		logging.WithOutput(w),
	), nil
}

func loadDefinition(cfg *config.Config) (*wizard.Definition, error) {
	def, err := signup.LoadDefinition(cfg.Definition)
	if err != nil {
		return nil, fmt.Errorf("failed to load definition: %w", err)
	}
	return def, nil
}
