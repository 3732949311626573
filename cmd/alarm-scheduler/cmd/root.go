package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-scheduler/internal/config"
	"github.com/oshokin/alarm-scheduler/internal/logger"
	"github.com/oshokin/alarm-scheduler/internal/service/scheduler"
	"github.com/oshokin/alarm-scheduler/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// listenAddress overrides the gRPC listen address from the config.
	listenAddress string
	// logLevel overrides the log level from the config.
	logLevel string
	// allowMultiple skips the single-instance check.
	allowMultiple bool
	// noConsole disables the interactive console.
	noConsole bool

	// rootCmd represents the base command for running the scheduler.
	rootCmd = &cobra.Command{
		Use:   "alarm-scheduler",
		Short: "Run the alarm scheduler.",
		Long: `Starts the alarm scheduler and reads commands from standard input:

  Start_Alarm(<id>): T<type> <seconds> <message>
  Change_Alarm(<id>): T<type> <seconds> <message>
  Cancel_Alarm(<id>)
  View_Alarms

Alarms of the same type are displayed by shared display workers, two alarms per worker.
When a listen address is configured the same commands are accepted over gRPC from alarm-client.
The console ends on end of input; with --no-console the scheduler runs until interrupted.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			defer logger.Sync()

			options := &scheduler.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				LogLevel:      logLevel,
				AllowMultiple: allowMultiple,
				Output:        cmd.OutOrStdout(),
			}

			if !noConsole {
				options.Input = cmd.InOrStdin()
			}

			return scheduler.Run(ctx, options)
		},
	}
)

// Execute runs the alarm-scheduler CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file (default "+config.DefaultConfigFilename+" if present)")
	rootCmd.Flags().StringVarP(&listenAddress, "listen", "l", "", "gRPC listen address, overrides the config (e.g. :9090)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.Flags().BoolVar(&allowMultiple, "allow-multiple", false, "start even if another alarm-scheduler is running")
	rootCmd.Flags().BoolVar(&noConsole, "no-console", false, "do not read commands from standard input")
}
