//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	api "github.com/oshokin/alarm-scheduler/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
	"github.com/oshokin/alarm-scheduler/internal/registry"
)

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

// TestClient_Submit routes the request through the server codec.
func TestClient_Submit(t *testing.T) {
	t.Parallel()

	var (
		gotMethod string
		gotActor  []string
	)

	c := &Client{
		actor: "ops@host",
		invoke: func(ctx context.Context, method string, args, reply any, _ ...grpc.CallOption) error {
			gotMethod = method

			md, _ := metadata.FromOutgoingContext(ctx)
			gotActor = md.Get(api.ActorMetadataKey)

			req, err := api.DecodeRequest(args.(*structpb.Struct)) //nolint:forcetypeassert // Test invoker.
			if err != nil {
				return err
			}

			out, err := api.EncodeOutcome(alarm.Outcome{
				Kind:  req.Kind,
				Alarm: alarm.View{ID: req.ID, Type: req.Type, Duration: req.Duration(), Message: req.Message},
			})
			if err != nil {
				return err
			}

			proto.Merge(reply.(*structpb.Struct), out) //nolint:forcetypeassert // Test invoker.

			return nil
		},
	}

	out, err := c.Submit(context.Background(), alarm.Request{Kind: alarm.KindStart, ID: 9, Type: "A", DurationSeconds: 4, Message: "hey"})
	require.NoError(t, err)
	require.Equal(t, api.SubmitMethod, gotMethod)
	require.Equal(t, []string{"ops@host"}, gotActor)
	require.Equal(t, 9, out.Alarm.ID)
	require.Equal(t, 4*time.Second, out.Alarm.Duration)
}

// TestClient_MapsStatusCodes turns wire codes back into domain errors.
func TestClient_MapsStatusCodes(t *testing.T) {
	t.Parallel()

	code := codes.NotFound

	c := &Client{
		invoke: func(context.Context, string, any, any, ...grpc.CallOption) error {
			return status.Error(code, "alarm 3")
		},
	}

	_, err := c.Submit(context.Background(), alarm.Request{Kind: alarm.KindCancel, ID: 3})
	require.ErrorIs(t, err, registry.ErrNotFound)

	code = codes.InvalidArgument

	_, err = c.Submit(context.Background(), alarm.Request{Kind: alarm.KindCancel, ID: 3})
	require.ErrorIs(t, err, alarm.ErrInvalidRequest)

	code = codes.Unavailable

	_, err = c.View(context.Background())
	require.Equal(t, codes.Unavailable, status.Code(err))
}
