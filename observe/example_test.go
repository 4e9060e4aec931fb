package observe_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aperturestack/svcclient/observe"
)

func ExampleNewObserver() {
	cfg := observe.Config{
		ServiceName: "example-service",
		Version:     "1.0.0",
		Tracing:     observe.TracingConfig{Enabled: true, Exporter: "none"},
		Metrics:     observe.MetricsConfig{Enabled: false},
		Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
	}

	ctx := context.Background()
	obs, err := observe.NewObserver(ctx, cfg)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	defer func() {
		_ = obs.Shutdown(ctx)
	}()

	fmt.Println("Observer created successfully")
	// Output:
	// Observer created successfully
}

func ExampleNewObserver_validation() {
	// Missing service name triggers validation error
	cfg := observe.Config{
		ServiceName: "", // Empty - will fail validation
	}

	ctx := context.Background()
	_, err := observe.NewObserver(ctx, cfg)
	if errors.Is(err, observe.ErrMissingServiceName) {
		fmt.Println("Caught: missing service name")
	}
	// Output:
	// Caught: missing service name
}

func ExampleConfig_Validate() {
	// Valid configuration
	cfg := observe.Config{
		ServiceName: "my-service",
		Version:     "1.0.0",
		Tracing: observe.TracingConfig{
			Enabled:   true,
			Exporter:  "stdout",
			SamplePct: 0.5, // 50% sampling
		},
		Metrics: observe.MetricsConfig{
			Enabled:  true,
			Exporter: "prometheus",
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
	}

	if err := cfg.Validate(); err != nil {
		fmt.Println("Invalid:", err)
	} else {
		fmt.Println("Configuration is valid")
	}
	// Output:
	// Configuration is valid
}

func ExampleConfig_Validate_invalidExporter() {
	cfg := observe.Config{
		ServiceName: "my-service",
		Tracing:     observe.TracingConfig{Enabled: true, Exporter: "bogus"},
	}

	if errors.Is(cfg.Validate(), observe.ErrInvalidTracingExporter) {
		fmt.Println("Caught: invalid tracing exporter")
	}
	// Output:
	// Caught: invalid tracing exporter
}

func ExampleRequestMeta_SpanName() {
	// With endpoint
	meta := observe.RequestMeta{Service: "billing", Endpoint: "/charges"}
	fmt.Println(meta.SpanName())

	// Without endpoint
	meta2 := observe.RequestMeta{Service: "inventory"}
	fmt.Println(meta2.SpanName())
	// Output:
	// svcclient.request.billing./charges
	// svcclient.request.inventory
}

func ExampleRequestMeta_RequestID() {
	meta := observe.RequestMeta{Service: "billing", Endpoint: "/charges"}
	fmt.Println(meta.RequestID())

	meta2 := observe.RequestMeta{Service: "inventory"}
	fmt.Println(meta2.RequestID())
	// Output:
	// billing./charges
	// inventory
}

func ExampleNewLoggerWithWriter() {
	var buf bytes.Buffer
	logger := observe.NewLoggerWithWriter("info", &buf)

	ctx := context.Background()
	logger.Info(ctx, "application started", observe.Field{Key: "version", Value: "1.0.0"})

	fmt.Println("Logged message contains 'application started':", bytes.Contains(buf.Bytes(), []byte("application started")))
	// Output:
	// Logged message contains 'application started': true
}

func ExampleLogger_WithRequest() {
	var buf bytes.Buffer
	logger := observe.NewLoggerWithWriter("info", &buf)

	meta := observe.RequestMeta{
		Service:  "billing",
		Endpoint: "/charges",
		Method:   "POST",
	}

	// Create request-scoped logger
	reqLogger := logger.WithRequest(meta)

	ctx := context.Background()
	reqLogger.Info(ctx, "request started")

	output := buf.String()
	fmt.Println("Contains request.service:", bytes.Contains([]byte(output), []byte("request.service")))
	fmt.Println("Contains request.endpoint:", bytes.Contains([]byte(output), []byte("request.endpoint")))
	// Output:
	// Contains request.service: true
	// Contains request.endpoint: true
}

func ExampleParseLogLevel() {
	levels := []string{"debug", "info", "warn", "error", "unknown"}
	for _, s := range levels {
		level := observe.ParseLogLevel(s)
		fmt.Printf("%s -> %s\n", s, level)
	}
	// Output:
	// debug -> debug
	// info -> info
	// warn -> warn
	// error -> error
	// unknown -> info
}
