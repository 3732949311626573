package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-scheduler/internal/config"
	"github.com/oshokin/alarm-scheduler/internal/service/client"
	"github.com/oshokin/alarm-scheduler/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// serverAddress overrides the scheduler address from the config.
	serverAddress string
	// wait keeps retrying until the scheduler answers.
	wait bool

	// rootCmd represents the base command for talking to a scheduler.
	rootCmd = &cobra.Command{
		Use:   "alarm-client [command]",
		Short: "Send commands to a running alarm scheduler.",
		Long: `Connects to an alarm scheduler over gRPC.

With an argument, submits that single command, for example:

  alarm-client 'Start_Alarm(1): T1 10 Wake up'
  alarm-client View_Alarms

Without an argument, reads commands from standard input until end of input.`,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &client.Options{
				ConfigPath:    configPath,
				ServerAddress: serverAddress,
				Line:          strings.Join(args, " "),
				Input:         cmd.InOrStdin(),
				Output:        cmd.OutOrStdout(),
				WaitForServer: wait,
			}

			return client.Run(ctx, options)
		},
	}
)

// Execute runs the alarm-client CLI and exits with non-zero status on error.
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
	rootCmd.Flags().StringVarP(&serverAddress, "server", "s", "", "scheduler address, overrides listen_addr from the config")
	rootCmd.Flags().BoolVarP(&wait, "wait", "w", false, "retry until the scheduler is reachable")
}
