package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/adalundhe/strand/core/config"
)

var (
	configPaths bool
	configInit  bool
	configForce bool
	configWatch bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after layering project, user and local files
and STRAND_* environment variables.

With --init, create the user directories and write a default user config.
With --watch, print the configuration again every time a config file changes.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().BoolVar(&configPaths, "paths", false, "Print the config files consulted, in load order")
	configCmd.Flags().BoolVar(&configInit, "init", false, "Write a default user config file")
	configCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file with --init")
	configCmd.Flags().BoolVar(&configWatch, "watch", false, "Keep running and print the config on every change")
}

func runConfig(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case configInit:
		path, err := initUserConfig(env)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s\n", path)
		return nil
	case configPaths:
		for _, p := range env.manager.Paths() {
			fmt.Fprintln(out, p)
		}
		return nil
	}

	if err := printConfig(out, env.config); err != nil {
		return err
	}
	if !configWatch {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env.manager.OnChange(func(loaded *config.Config) {
		cfg, err := applyOverrides(loaded, env.overrides)
		if err != nil {
			env.logger.Error("reloaded config rejected by flag overrides", "error", err)
			return
		}
		fmt.Fprintln(out, "---")
		if err := printConfig(out, &cfg); err != nil {
			env.logger.Error("failed to print config", "error", err)
		}
	})
	err = env.manager.Watch(ctx, env.logger)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printConfig(out io.Writer, cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

func initUserConfig(env *environment) (string, error) {
	if err := env.dirs.EnsureAll(); err != nil {
		return "", err
	}

	path := env.dirs.ConfigFile()
	if _, err := os.Stat(path); err == nil && !configForce {
		return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	data, err := yaml.Marshal(config.DefaultConfig())
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
