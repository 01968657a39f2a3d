package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/overjt/entitygraphql/internal/eventbus"
	"github.com/overjt/entitygraphql/internal/events"
	"github.com/overjt/entitygraphql/internal/reqid"
)

// Setup exports traces to an OTLP collector at endpoint and subscribes
// span handlers to the global event bus. An empty endpoint configures
// nothing.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	unsubscribe := Register(tp.Tracer("entitygraphql"))
	return func(ctx context.Context) error {
		unsubscribe()
		return tp.Shutdown(ctx)
	}, nil
}

// Register opens a span per request and a child span per field compile
// using tracer. The returned func removes the subscriptions.
func Register(tracer trace.Tracer) (unsubscribe func()) {
	s := &subscriber{tracer: tracer}
	return s.register()
}

type fieldKey struct {
	rid  string
	path string
}

type subscriber struct {
	tracer       trace.Tracer
	requestSpans sync.Map // rid -> trace.Span
	compileSpans sync.Map // fieldKey -> trace.Span
}

func (s *subscriber) register() func() {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.RequestStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(ctx, "graphql.request")
			span.SetAttributes(
				attribute.String("graphql.operation.name", e.OperationName),
				attribute.String("graphql.operation.type", e.OperationType),
				attribute.String("request.id", rid),
			)
			s.requestSpans.Store(rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.RequestFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.requestSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(attribute.Int("graphql.error_count", len(e.Errors)))
			if len(e.Errors) > 0 {
				span.SetStatus(codes.Error, e.Errors[0].Error())
			}
			span.End()
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.FieldCompileStart) {
			rid, _ := reqid.FromContext(ctx)
			parent := ctx
			if v, ok := s.requestSpans.Load(rid); ok {
				parent = trace.ContextWithSpan(ctx, v.(trace.Span))
			}
			_, span := s.tracer.Start(parent, "graphql.field.compile")
			span.SetAttributes(
				attribute.String("graphql.field", e.Field),
				attribute.String("graphql.path", e.Path),
			)
			s.compileSpans.Store(fieldKey{rid, e.Path}, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.FieldCompileFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.compileSpans.LoadAndDelete(fieldKey{rid, e.Path})
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(attribute.Bool("graphql.skipped", e.Skipped))
			if e.Err != nil {
				span.RecordError(e.Err)
				span.SetStatus(codes.Error, e.Err.Error())
			}
			span.End()
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
