package otel

import (
	"context"
	"fmt"
	"sync"

	eventbus "github.com/calicocommerce/storefront/internal/eventbus"
	events "github.com/calicocommerce/storefront/internal/events"
	reqid "github.com/calicocommerce/storefront/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
)

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithInsecure()))
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

	sub := &subscriber{tracer: otel.Tracer("storefront")}
	sub.register()

	return tp.Shutdown, nil
}

type subscriber struct {
	tracer     trace.Tracer
	httpSpans  sync.Map // rid -> trace.Span
	querySpans sync.Map // rid|operation -> trace.Span
	cartSpans  sync.Map // rid|intent -> trace.Span
}

func queryKey(rid int64, op string) string    { return fmt.Sprintf("%d|%s", rid, op) }
func cartKey(rid int64, intent string) string { return fmt.Sprintf("%d|%s", rid, intent) }

func (s *subscriber) httpParent(ctx context.Context) context.Context {
	rid, _ := reqid.FromContext(ctx)
	if v, ok := s.httpSpans.Load(rid); ok {
		return trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	return ctx
}

func (s *subscriber) register() {
	eventbus.Subscribe(func(ctx context.Context, e events.HTTPStart) {
		rid, _ := reqid.FromContext(ctx)
		_, span := s.tracer.Start(ctx, "http.request")
		span.SetAttributes(
			semconv.HTTPMethodKey.String(e.Request.Method),
			attribute.String("http.target", e.Request.URL.Path),
		)
		s.httpSpans.Store(rid, span)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
		rid, _ := reqid.FromContext(ctx)
		v, ok := s.httpSpans.LoadAndDelete(rid)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
		span.End()
	})

	eventbus.Subscribe(func(ctx context.Context, e events.StorefrontQueryStart) {
		rid, _ := reqid.FromContext(ctx)
		_, span := s.tracer.Start(s.httpParent(ctx), "storefront.query")
		span.SetAttributes(
			attribute.String("storefront.operation", e.Operation),
			attribute.String("storefront.handle", e.Handle),
		)
		s.querySpans.Store(queryKey(rid, e.Operation), span)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.StorefrontQueryFinish) {
		rid, _ := reqid.FromContext(ctx)
		v, ok := s.querySpans.LoadAndDelete(queryKey(rid, e.Operation))
		if !ok {
			return
		}
		span := v.(trace.Span)
		if e.Err != nil {
			span.RecordError(e.Err)
		}
		span.End()
	})

	eventbus.Subscribe(func(ctx context.Context, e events.CartMutationStart) {
		rid, _ := reqid.FromContext(ctx)
		_, span := s.tracer.Start(s.httpParent(ctx), "cart.mutation")
		span.SetAttributes(
			attribute.String("cart.intent", e.Intent),
			attribute.Int("cart.lines", e.Lines),
		)
		s.cartSpans.Store(cartKey(rid, e.Intent), span)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.CartMutationFinish) {
		rid, _ := reqid.FromContext(ctx)
		v, ok := s.cartSpans.LoadAndDelete(cartKey(rid, e.Intent))
		if !ok {
			return
		}
		span := v.(trace.Span)
		if e.Err != nil {
			span.RecordError(e.Err)
		}
		span.End()
	})

	// Deferred keys settle after the response head; they show up as span
	// events on the owning request rather than child spans of their own.
	eventbus.Subscribe(func(ctx context.Context, e events.DeferredSettled) {
		rid, _ := reqid.FromContext(ctx)
		v, ok := s.httpSpans.Load(rid)
		if !ok {
			return
		}
		span := v.(trace.Span)
		attrs := []attribute.KeyValue{
			attribute.String("deferred.key", e.Key),
			attribute.Bool("deferred.failed", e.Failed),
			attribute.Int64("deferred.duration_ms", e.Duration.Milliseconds()),
		}
		span.AddEvent("deferred.settled", trace.WithAttributes(attrs...))
		if e.Err != nil {
			span.RecordError(e.Err)
		}
	})
}
