package interceptor

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/aperturestack/svcclient/request"
)

// durationBucketsMs are the fixed histogram boundaries for request latency.
var durationBucketsMs = []float64{10, 50, 100, 500, 1000, 5000, 10000}

// Metrics builds a counting/histogram interceptor bound to meter. Grounded
// on observe.metricsImpl's RecordExecution (counters + histogram via OTel),
// generalized from per-tool attributes to per-service/endpoint attributes
// and fixed to the pipeline's latency bucket boundaries.
func Metrics(meter metric.Meter) (Interceptor, error) {
	total, err := meter.Int64Counter(
		"svcclient.requests.total",
		metric.WithDescription("Total number of outbound requests"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	successes, err := meter.Int64Counter(
		"svcclient.requests.success",
		metric.WithDescription("Total number of successful outbound requests"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errs, err := meter.Int64Counter(
		"svcclient.requests.errors",
		metric.WithDescription("Total number of failed outbound requests"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"svcclient.requests.duration_ms",
		metric.WithDescription("Outbound request duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(durationBucketsMs...),
	)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, req request.Request, next Next) (request.Response, error) {
		attrs := []attribute.KeyValue{
			attribute.String("service", req.Service),
			attribute.String("endpoint", req.Endpoint),
		}
		opt := metric.WithAttributes(attrs...)

		start := time.Now()
		resp, err := next(ctx, req)
		elapsed := time.Since(start)

		total.Add(ctx, 1, opt)
		duration.Record(ctx, float64(elapsed.Milliseconds()), opt)
		if err != nil {
			errs.Add(ctx, 1, opt)
		} else {
			successes.Add(ctx, 1, opt)
		}

		return resp, err
	}, nil
}
