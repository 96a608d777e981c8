package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-panel/internal/config"
	"github.com/oshokin/alarm-panel/internal/logger"
	"github.com/oshokin/alarm-panel/internal/service/adapter"
	"github.com/oshokin/alarm-panel/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel overrides the level from settings.
	logLevel string

	// rootCmd is the base command; every mode is a subcommand.
	rootCmd = &cobra.Command{
		Use:   "alarm-panel",
		Short: "Yale Smart Alarm panel for Home Assistant and gRPC clients.",
		Long: `Exposes one Yale Smart Alarm panel as an alarm control panel.

The serve subcommand polls the Yale cloud, announces the panel to Home Assistant
over MQTT discovery and serves the gRPC API. The other subcommands are clients
of that API: they read the panel state or send a single command.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if logLevel == "" {
				return nil
			}

			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return errInvalidLogLevel
			}

			logger.SetLevel(level)

			return nil
		},
	}
)

// Execute runs the alarm-panel CLI and exits with non-zero status on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "", "override the log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newServeCommand(),
		newStatusCommand(),
		newPanelCommand("arm-home", "Arm the panel in home mode.", adapter.CommandArmHome),
		newPanelCommand("arm-away", "Arm the panel in away mode.", adapter.CommandArmAway),
		newPanelCommand("disarm", "Disarm the panel; requires --code.", adapter.CommandDisarm),
		version.NewCommand(),
	)
}
