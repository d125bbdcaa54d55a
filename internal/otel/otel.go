package otel

import (
	"context"
	"sync"

	eventbus "github.com/hanpama/typegraph/internal/eventbus"
	events "github.com/hanpama/typegraph/internal/events"
	reqid "github.com/hanpama/typegraph/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const tracerName = "typegraph"

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
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
	detach := Attach(eventbus.Global(), tp)
	return func(ctx context.Context) error {
		detach()
		return tp.Shutdown(ctx)
	}, nil
}

// Attach turns the events published on bus into spans of tp: one per
// schema build, HTTP request, GraphQL operation and field resolution.
func Attach(bus *eventbus.Bus, tp trace.TracerProvider) (detach func()) {
	s := &subscriber{tracer: tp.Tracer(tracerName)}
	offs := s.register(bus)
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

type subscriber struct {
	tracer     trace.Tracer
	buildSpans sync.Map // build id -> trace.Span
	httpSpans  sync.Map // rid -> trace.Span
	gqlSpans   sync.Map // rid -> trace.Span
	fieldSpans sync.Map // field event id -> trace.Span
}

func (s *subscriber) end(m *sync.Map, key any, err error, attrs ...attribute.KeyValue) {
	v, ok := m.LoadAndDelete(key)
	if !ok {
		return
	}
	span := v.(trace.Span)
	span.SetAttributes(attrs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// parent returns ctx carrying the innermost open span of the request.
func (s *subscriber) parent(ctx context.Context) context.Context {
	rid, _ := reqid.FromContext(ctx)
	if v, ok := s.gqlSpans.Load(rid); ok {
		return trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	if v, ok := s.httpSpans.Load(rid); ok {
		return trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	return ctx
}

func (s *subscriber) register(bus *eventbus.Bus) []func() {
	return []func(){
		eventbus.On(bus, func(ctx context.Context, e events.SchemaBuildStart) {
			_, span := s.tracer.Start(ctx, "schema.build")
			span.SetAttributes(
				attribute.Int("typegraph.roots", e.Roots),
				attribute.Int("typegraph.extra_types", e.Types),
			)
			s.buildSpans.Store(e.ID, span)
		}),

		eventbus.On(bus, func(ctx context.Context, e events.SchemaBuildFinish) {
			s.end(&s.buildSpans, e.ID, e.Err, attribute.Int("typegraph.types", e.Types))
		}),

		eventbus.On(bus, func(ctx context.Context, e events.HTTPStart) {
			_, span := s.tracer.Start(ctx, "http.request")
			span.SetAttributes(
				semconv.HTTPMethodKey.String(e.Request.Method),
				attribute.String("http.target", e.Request.URL.Path),
			)
			s.httpSpans.Store(e.RequestID, span)
		}),

		eventbus.On(bus, func(ctx context.Context, e events.HTTPFinish) {
			s.end(&s.httpSpans, e.RequestID, nil, semconv.HTTPStatusCodeKey.Int(e.Status))
		}),

		eventbus.On(bus, func(ctx context.Context, e events.GraphQLStart) {
			_, span := s.tracer.Start(s.parent(ctx), "graphql.operation")
			span.SetAttributes(
				attribute.String("graphql.operation.name", e.OperationName),
				attribute.String("graphql.operation.type", e.OperationType),
			)
			s.gqlSpans.Store(e.RequestID, span)
		}),

		eventbus.On(bus, func(ctx context.Context, e events.GraphQLFinish) {
			s.end(&s.gqlSpans, e.RequestID, e.Err, attribute.Int("graphql.error_count", e.ErrorCount))
		}),

		eventbus.On(bus, func(ctx context.Context, e events.FieldResolveStart) {
			_, span := s.tracer.Start(s.parent(ctx), "graphql.field")
			span.SetAttributes(
				attribute.String("graphql.field.type", e.ObjectType),
				attribute.String("graphql.field.name", e.Field),
				attribute.Bool("graphql.field.async", e.Async),
			)
			s.fieldSpans.Store(e.ID, span)
		}),

		eventbus.On(bus, func(ctx context.Context, e events.FieldResolveFinish) {
			s.end(&s.fieldSpans, e.ID, e.Err)
		}),
	}
}
