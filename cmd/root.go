// Package cmd provides the strand command line.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/adalundhe/strand/core/config"
	"github.com/adalundhe/strand/core/logging"
	"github.com/adalundhe/strand/core/storage"
)

var (
	rootProject   string
	rootLogLevel  string
	rootLogFormat string
)

// resolveDirs is replaced in tests.
var resolveDirs = storage.ResolveDirs

var rootCmd = &cobra.Command{
	Use:   "strand",
	Short: "strand - detached task launcher",
	Long: `strand launches units of work on dedicated, detached OS threads and
records the faults they raise.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootProject, "project", "", "Project root containing .strand/ (default: working directory)")
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&rootLogFormat, "log-format", "", "Log format (auto, text, json)")
}

func Execute() error {
	return rootCmd.Execute()
}

// environment is what every subcommand needs: the loaded config and a
// logger built from it.
type environment struct {
	dirs    *storage.Dirs
	manager *config.Manager
	config  *config.Config
	// overrides holds the flag values layered over every loaded config.
	overrides *config.Config
	logger    *slog.Logger
}

// loadEnvironment loads the layered config, overlays flag overrides, and
// builds a logger writing to stderr.
func loadEnvironment(cmd *cobra.Command, overrides *config.Config) (*environment, error) {
	dirs := resolveDirs()
	manager := config.NewManager(dirs, rootProject)
	if err := manager.Load(); err != nil {
		return nil, err
	}

	if overrides == nil {
		overrides = &config.Config{}
	}
	overrides.Log.Level = rootLogLevel
	overrides.Log.Format = rootLogFormat
	cfg, err := applyOverrides(manager.Get(), overrides)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return &environment{
		dirs:      dirs,
		manager:   manager,
		config:    &cfg,
		overrides: overrides,
		logger:    logger,
	}, nil
}

// applyOverrides returns a validated copy of base with overrides layered on.
func applyOverrides(base, overrides *config.Config) (config.Config, error) {
	cfg := *base
	config.Overlay(&cfg, overrides)
	return cfg, cfg.Validate()
}
