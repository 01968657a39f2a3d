package otel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/overjt/entitygraphql/internal/eventbus"
	"github.com/overjt/entitygraphql/internal/events"
	"github.com/overjt/entitygraphql/internal/reqid"
)

func TestSpansFollowEvents(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	unsubscribe := Register(tp.Tracer("test"))
	defer unsubscribe()

	ctx, _ := reqid.NewContext(context.Background())
	eventbus.Publish(ctx, events.RequestStart{OperationName: "Q", OperationType: "query"})
	eventbus.Publish(ctx, events.FieldCompileStart{Field: "Query.person", Path: "person"})
	eventbus.Publish(ctx, events.FieldCompileFinish{Field: "Query.person", Path: "person", Err: errors.New("denied")})
	eventbus.Publish(ctx, events.RequestFinish{OperationName: "Q", OperationType: "query"})

	ended := rec.Ended()
	require.Len(t, ended, 2)
	field, request := ended[0], ended[1]
	require.Equal(t, "graphql.field.compile", field.Name())
	require.Equal(t, "graphql.request", request.Name())
	require.Equal(t, request.SpanContext().SpanID(), field.Parent().SpanID())
	require.Len(t, field.Events(), 1) // the recorded error
}

func TestSetupWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup("", "svc")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
