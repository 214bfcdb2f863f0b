package telemetry

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "cscx"

type TracingConfig struct {
	Enabled        bool    `yaml:"enabled"`
	ServiceName    string  `yaml:"service_name"`
	ServiceVersion string  `yaml:"service_version"`
	Environment    string  `yaml:"environment"`
	Endpoint       string  `yaml:"endpoint"`
	Insecure       bool    `yaml:"insecure"`
	SampleRate     float64 `yaml:"sample_rate"`
}

// InitTracing installs a global tracer provider exporting over OTLP/HTTP.
// When tracing is disabled the global no-op provider is left in place.
func InitTracing(ctx context.Context, config TracingConfig) (func(context.Context) error, error) {
	if !config.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(config.Endpoint)}
	if config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(config.ServiceName),
		semconv.ServiceVersion(config.ServiceVersion),
		attribute.String("environment", config.Environment),
		attribute.String("host.name", getHostname()),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(
			sdktrace.TraceIDRatioBased(config.SampleRate),
		)),
	)

	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, name, opts...)
}

func AddSpanAttributes(span trace.Span, attributes map[string]string) {
	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		attrs = append(attrs, attribute.String(k, v))
	}
	span.SetAttributes(attrs...)
}

func RecordSpanError(span trace.Span, err error, attributes map[string]string) {
	span.RecordError(err)
	if attributes != nil {
		AddSpanAttributes(span, attributes)
	}
	span.SetStatus(codes.Error, err.Error())
}

func getHostname() string {
	h, err := os.Hostname()
	if err != nil {
		zap.L().Warn("telemetry: failed to get hostname", zap.Error(err))
		return "unknown"
	}
	return h
}
