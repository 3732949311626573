//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	api "github.com/oshokin/alarm-scheduler/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-scheduler/internal/config"
	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
	"github.com/oshokin/alarm-scheduler/internal/registry"
)

// Client wraps a gRPC connection to the alarm scheduler with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the scheduler.
	conn *grpc.ClientConn
	// invoke performs a unary call; conn.Invoke unless replaced in tests.
	invoke func(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
	// actor is sent with every call so the server can log who asked.
	actor string
	// dialOptions are appended to the transport defaults.
	dialOptions []grpc.DialOption
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor sets the identity attached to every call.
func WithActor(actor string) Option {
	return func(c *Client) {
		c.actor = actor
	}
}

// WithDialOptions appends gRPC dial options, e.g. a custom dialer.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *Client) {
		c.dialOptions = append(c.dialOptions, opts...)
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial establishes a gRPC connection to the alarm scheduler.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	client := &Client{
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	dialOptions := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, client.dialOptions...)

	// Use the non-context NewClient API recommended by grpc-go
	// (DialContext is deprecated as of grpc-go v1.60+).
	conn, err := grpc.NewClient(address, dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("dial alarm scheduler: %w", err)
	}

	client.conn = conn
	client.invoke = conn.Invoke

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// Submit sends one request. A NotFound reply is returned as registry.ErrNotFound.
func (c *Client) Submit(ctx context.Context, req alarm.Request) (alarm.Outcome, error) {
	msg, err := api.EncodeRequest(req)
	if err != nil {
		return alarm.Outcome{}, err
	}

	reply := new(structpb.Struct)
	if err := c.call(ctx, api.SubmitMethod, msg, reply); err != nil {
		return alarm.Outcome{}, fmt.Errorf("submit %s: %w", req.Kind, err)
	}

	outcome, err := api.DecodeOutcome(reply)
	if err != nil {
		return alarm.Outcome{}, fmt.Errorf("decode outcome: %w", err)
	}

	return outcome, nil
}

// View retrieves the current worker assignments.
func (c *Client) View(ctx context.Context) (alarm.Snapshot, error) {
	reply := new(structpb.Struct)
	if err := c.call(ctx, api.ViewMethod, new(structpb.Struct), reply); err != nil {
		return alarm.Snapshot{}, fmt.Errorf("view alarms: %w", err)
	}

	snapshot, err := api.DecodeSnapshot(reply)
	if err != nil {
		return alarm.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}

	return snapshot, nil
}

// call performs a unary RPC with the call timeout and the actor metadata.
func (c *Client) call(ctx context.Context, method string, args, reply *structpb.Struct) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if c.actor != "" {
		callCtx = metadata.AppendToOutgoingContext(callCtx, api.ActorMetadataKey, c.actor)
	}

	err := c.invoke(callCtx, method, args, reply)
	if err == nil {
		return nil
	}

	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", registry.ErrNotFound, status.Convert(err).Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", alarm.ErrInvalidRequest, status.Convert(err).Message())
	default:
		return err
	}
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
