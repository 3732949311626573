package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/mitchellh/go-ps"
	"github.com/sourcegraph/conc/pool"
	"google.golang.org/grpc"

	api "github.com/oshokin/alarm-scheduler/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-scheduler/internal/config"
	"github.com/oshokin/alarm-scheduler/internal/logger"
	core "github.com/oshokin/alarm-scheduler/internal/scheduler"
	"github.com/oshokin/alarm-scheduler/internal/service/common"
)

// Options controls the alarm-scheduler process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress overrides the gRPC listen address from the settings.
	ListenAddress string
	// LogLevel overrides the log level from the settings.
	LogLevel string
	// AllowMultiple skips the single-instance check.
	AllowMultiple bool
	// Input is the console line source; nil runs without a console until ctx ends.
	Input io.Reader
	// Output receives console prompts and reports.
	Output io.Writer
	// SchedulerOptions are passed to the scheduling core.
	SchedulerOptions []core.Option
}

// errNoWork is returned when neither a console nor a listen address is configured.
var errNoWork = errors.New("nothing to serve: no console input and no listen address")

// Run starts the scheduler and blocks until the console input ends, ctx is
// canceled or the gRPC server fails.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-scheduler")

	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}

	if !opts.AllowMultiple {
		if err = ensureSingleInstance(ps.Processes); err != nil {
			return err
		}
	}

	if opts.Input == nil && settings.ListenAddress == "" {
		return errNoWork
	}

	scheduler, err := core.New(settings, opts.SchedulerOptions...)
	if err != nil {
		return fmt.Errorf("initialise scheduler: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err = scheduler.Start(runCtx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	defer scheduler.Stop()

	tasks := pool.New().WithContext(runCtx).WithCancelOnError()

	if settings.ListenAddress != "" {
		var lis net.Listener

		lc := net.ListenConfig{}

		lis, err = lc.Listen(runCtx, "tcp", settings.ListenAddress)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", settings.ListenAddress, err)
		}

		tasks.Go(func(ctx context.Context) error {
			return serve(ctx, lis, scheduler)
		})
	}

	if opts.Input != nil {
		tasks.Go(func(ctx context.Context) error {
			// The process ends with its console.
			defer cancel()

			return common.NewConsole(scheduler, opts.Input, opts.Output).Run(ctx)
		})
	} else {
		logger.Info(ctx, "Running without console, waiting for interrupt")
	}

	return tasks.Wait()
}

// loadSettings reads the settings file and applies command line overrides.
func loadSettings(opts *Options) (*config.Config, error) {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.ListenAddress != "" {
		settings.ListenAddress = opts.ListenAddress
	}

	if opts.LogLevel != "" {
		settings.LogLevel = opts.LogLevel
	}

	// Validate again so overrides get the same checks as the file.
	if err = config.Validate(settings); err != nil {
		return nil, err
	}

	level, _ := logger.ParseLogLevel(settings.LogLevel)
	logger.SetLevel(level)

	return settings, nil
}

// serve runs the gRPC server on lis until ctx is canceled.
func serve(ctx context.Context, lis net.Listener, service api.Service) error {
	grpcServer := grpc.NewServer()
	api.Register(grpcServer, api.NewServer(service))

	logger.InfoKV(ctx, "Alarm scheduler listening", "listen_address", lis.Addr().String())

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()
		close(done)
	}()

	// On failure the stopper goroutine exits once the caller cancels ctx.
	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "GRPC server stopped")

	return nil
}
