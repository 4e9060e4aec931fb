package interceptor

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/aperturestack/svcclient/request"
)

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestMetrics_SuccessIncrementsTotalAndSuccess(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	mi, err := Metrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("Metrics() error = %v", err)
	}

	_, err = mi(context.Background(), request.New("svc", "/x", "GET", request.ProtocolREST), terminalOK)
	if err != nil {
		t.Fatalf("interceptor error = %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	total := findMetric(rm, "svcclient.requests.total")
	if total == nil {
		t.Fatal("svcclient.requests.total not found")
	}
	sum := total.Data.(metricdata.Sum[int64])
	if sum.DataPoints[0].Value != 1 {
		t.Errorf("total = %d, want 1", sum.DataPoints[0].Value)
	}

	success := findMetric(rm, "svcclient.requests.success")
	if success == nil {
		t.Fatal("svcclient.requests.success not found")
	}
	if success.Data.(metricdata.Sum[int64]).DataPoints[0].Value != 1 {
		t.Error("expected success count 1")
	}

	if errs := findMetric(rm, "svcclient.requests.errors"); errs != nil {
		if errs.Data.(metricdata.Sum[int64]).DataPoints[0].Value != 0 {
			t.Error("expected error count 0 on success")
		}
	}
}

func TestMetrics_FailureIncrementsErrors(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	mi, err := Metrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("Metrics() error = %v", err)
	}

	failing := func(ctx context.Context, req request.Request) (request.Response, error) {
		return request.Response{}, errDummy{}
	}

	_, _ = mi(context.Background(), request.New("svc", "/x", "GET", request.ProtocolREST), failing)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	errs := findMetric(rm, "svcclient.requests.errors")
	if errs == nil {
		t.Fatal("svcclient.requests.errors not found")
	}
	if errs.Data.(metricdata.Sum[int64]).DataPoints[0].Value != 1 {
		t.Error("expected error count 1")
	}
}

func TestMetrics_DurationHistogramBuckets(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	mi, err := Metrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("Metrics() error = %v", err)
	}

	slow := func(ctx context.Context, req request.Request) (request.Response, error) {
		return terminalOK(ctx, req)
	}
	_, _ = mi(context.Background(), request.New("svc", "/x", "GET", request.ProtocolREST), slow)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	dur := findMetric(rm, "svcclient.requests.duration_ms")
	if dur == nil {
		t.Fatal("svcclient.requests.duration_ms not found")
	}
	hist := dur.Data.(metricdata.Histogram[float64])
	if len(hist.DataPoints) == 0 {
		t.Fatal("no histogram data points")
	}
	bounds := hist.DataPoints[0].Bounds
	want := []float64{10, 50, 100, 500, 1000, 5000, 10000}
	if len(bounds) != len(want) {
		t.Fatalf("bounds = %v, want %v", bounds, want)
	}
	for i := range want {
		if bounds[i] != want[i] {
			t.Errorf("bounds[%d] = %v, want %v", i, bounds[i], want[i])
		}
	}
}
