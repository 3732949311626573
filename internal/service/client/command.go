package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/alarm-scheduler/internal/config"
	"github.com/oshokin/alarm-scheduler/internal/logger"
	"github.com/oshokin/alarm-scheduler/internal/service/common"
)

// Options configures the alarm client.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides the listen address from config when specified.
	ServerAddress string

	// Line is a single command to submit. Empty runs an interactive console on Input.
	Line string

	// Input is the console line source when Line is empty.
	Input io.Reader

	// Output receives acknowledgements and reports.
	Output io.Writer

	// WaitForServer retries until the scheduler answers instead of failing at once.
	WaitForServer bool
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// defaultPollInterval defines retry delay while waiting for the scheduler.
const defaultPollInterval = 1 * time.Second

// Run connects to the scheduler and submits the requested command or commands.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-client")

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	// Use server address from options if provided, otherwise use config.
	serverAddress := cfg.ListenAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	if serverAddress == "" {
		return ErrNoServerAddress
	}

	dialOptions := []common.Option{common.WithCallTimeout(cfg.Timeout)}

	// Identify current user and hostname for the server log.
	if actor, actorErr := common.DetectActor(); actorErr == nil {
		dialOptions = append(dialOptions, common.WithActor(actor))
	} else {
		logger.WarnKV(ctx, "Unable to detect actor", "error", actorErr)
	}

	client, err := common.Dial(ctx, serverAddress, dialOptions...)
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	if opts.WaitForServer {
		if err = waitForServer(ctx, client); err != nil {
			return err
		}
	}

	console := common.NewConsole(client, opts.Input, opts.Output)

	if opts.Line != "" {
		logger.DebugKV(ctx, "Submitting command", "server_address", serverAddress, "line", opts.Line)

		return console.Execute(ctx, opts.Line)
	}

	return console.Run(ctx)
}

// waitForServer polls View until the scheduler answers or ctx ends.
func waitForServer(ctx context.Context, client *common.Client) error {
	// attempt tries once, returns (completed, error).
	attempt := func() (bool, error) {
		_, err := client.View(ctx)
		if err == nil {
			return true, nil
		}

		// Keep polling while the server is not reachable yet.
		if status.Code(err) == codes.Unavailable {
			logger.DebugKV(ctx, "Scheduler not reachable yet", "error", err)

			return false, nil
		}

		return false, err
	}

	// Attempt immediately before starting retry loop.
	if done, err := attempt(); err != nil {
		return err
	} else if done {
		return nil
	}

	ticker := time.NewTicker(defaultPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			done, err := attempt()
			if err != nil {
				return err
			}

			if done {
				return nil
			}
		}
	}
}
