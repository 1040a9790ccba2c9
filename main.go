package main

import (
	"fmt"
	"os"

	goerrors "github.com/gruntwork-io/go-commons/errors"
	"github.com/robmorgan/pulse/config"
	"github.com/robmorgan/pulse/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var (
	configPath string
	logLevel   string
	cfg        *config.Config
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if logger.GetProjectLogger().IsLevelEnabled(logrus.DebugLevel) {
			fmt.Fprintln(os.Stderr, goerrors.PrintErrorWithStackTrace(err))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "pulse",
		Short: "A musical-time scheduler",
		Long: `pulse schedules callbacks against a tempo-aware transport.

Commands:
  play      drive a transport in real time and print cues as they fire
  inspect   show where the cues of a cue file land
  eval      evaluate a time expression
  notation  express a duration in note values`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				loaded.Logging.Level = logLevel
			}
			if err := logger.Configure(loaded.Logging.Level, loaded.Logging.Format); err != nil {
				return goerrors.WithStackTrace(err)
			}
			cfg = loaded
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./pulse.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "trace, debug, info, warn or error")

	root.AddCommand(newPlayCommand())
	root.AddCommand(newInspectCommand())
	root.AddCommand(newEvalCommand())
	root.AddCommand(newNotationCommand())
	root.AddCommand(versionCmd())

	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pulse %s\n", Version)
		},
	}
}
