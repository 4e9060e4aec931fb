package observe

import (
	"context"
	"io"
	"testing"
)

// BenchmarkLogger_Info measures logging throughput.
func BenchmarkLogger_Info(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info(ctx, "benchmark message", Field{Key: "iteration", Value: i})
	}
}

// BenchmarkLogger_Info_MultipleFields measures logging with multiple fields.
func BenchmarkLogger_Info_MultipleFields(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	ctx := context.Background()
	fields := []Field{
		{Key: "field1", Value: "value1"},
		{Key: "field2", Value: 42},
		{Key: "field3", Value: true},
		{Key: "field4", Value: 3.14},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info(ctx, "benchmark message", fields...)
	}
}

// BenchmarkLogger_WithRequest measures creating request-scoped loggers.
func BenchmarkLogger_WithRequest(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	meta := RequestMeta{Service: "bench", Endpoint: "/x", Method: "GET"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = logger.WithRequest(meta)
	}
}

// BenchmarkLogger_WithRequest_ThenLog measures the full pattern of creating
// a request-scoped logger and logging.
func BenchmarkLogger_WithRequest_ThenLog(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	ctx := context.Background()
	meta := RequestMeta{Service: "bench", Endpoint: "/x"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reqLogger := logger.WithRequest(meta)
		reqLogger.Info(ctx, "request handled", Field{Key: "iteration", Value: i})
	}
}

// BenchmarkLogger_LevelFiltering measures overhead of level filtering.
func BenchmarkLogger_LevelFiltering(b *testing.B) {
	logger := NewLoggerWithWriter("error", io.Discard) // Only error level
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// These should be filtered out (no actual logging)
		logger.Debug(ctx, "filtered debug")
		logger.Info(ctx, "filtered info")
		logger.Warn(ctx, "filtered warn")
	}
}

// BenchmarkRequestMeta_SpanName measures span name generation.
func BenchmarkRequestMeta_SpanName(b *testing.B) {
	meta := RequestMeta{Service: "billing", Endpoint: "/charges"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = meta.SpanName()
	}
}

// BenchmarkRequestMeta_SpanName_NoEndpoint measures span name without an endpoint.
func BenchmarkRequestMeta_SpanName_NoEndpoint(b *testing.B) {
	meta := RequestMeta{Service: "billing"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = meta.SpanName()
	}
}

// BenchmarkRequestMeta_RequestID measures request ID generation.
func BenchmarkRequestMeta_RequestID(b *testing.B) {
	meta := RequestMeta{Service: "billing", Endpoint: "/charges"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = meta.RequestID()
	}
}

// BenchmarkTracer_StartEndSpan measures tracer span lifecycle (noop).
func BenchmarkTracer_StartEndSpan(b *testing.B) {
	tracer := newNoopTracer()
	ctx := context.Background()
	meta := RequestMeta{Service: "bench", Endpoint: "/x"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ctx, span := tracer.StartSpan(ctx, meta)
		tracer.EndSpan(span, nil)
		_ = ctx
	}
}

// BenchmarkConcurrent_Logger measures concurrent logging.
func BenchmarkConcurrent_Logger(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			logger.Info(ctx, "concurrent message", Field{Key: "iteration", Value: i})
			i++
		}
	})
}

// BenchmarkConfig_Validate measures configuration validation.
func BenchmarkConfig_Validate(b *testing.B) {
	cfg := Config{
		ServiceName: "bench-service",
		Version:     "1.0.0",
		Tracing:     TracingConfig{Enabled: true, Exporter: "otlp", SamplePct: 0.5},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "prometheus"},
		Logging:     LoggingConfig{Enabled: true, Level: "info"},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cfg.Validate()
	}
}
