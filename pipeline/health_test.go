package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aperturestack/svcclient/health"
	"github.com/aperturestack/svcclient/request"
)

func TestChecker_HealthyWhenCircuitClosedAndNotShedding(t *testing.T) {
	transport := &fakeTransport{sendFn: func(ctx context.Context, req request.Request) (request.Response, error) {
		return request.NewResponse(request.Body{}, 200, request.NewMultiMap(), 0), nil
	}}
	client := NewRESTClient(ClientConfig{Service: "billing", Transport: transport})
	checker := NewChecker("billing", client)

	if checker.Name() != "billing" {
		t.Errorf("Name() = %q, want billing", checker.Name())
	}

	result := checker.Check(context.Background())
	if result.Status != health.StatusHealthy {
		t.Errorf("Status = %v, want StatusHealthy", result.Status)
	}
}

func TestChecker_RegistersIntoAggregator(t *testing.T) {
	transport := &fakeTransport{sendFn: func(ctx context.Context, req request.Request) (request.Response, error) {
		return request.NewResponse(request.Body{}, 200, request.NewMultiMap(), 0), nil
	}}
	client := NewRESTClient(ClientConfig{Service: "inventory", Transport: transport})

	agg := health.NewAggregator()
	agg.Register("inventory", NewChecker("inventory", client))

	results := agg.CheckAll(context.Background())
	result, ok := results["inventory"]
	if !ok {
		t.Fatal("aggregator did not run the inventory checker")
	}
	if result.Status != health.StatusHealthy {
		t.Errorf("Status = %v, want StatusHealthy", result.Status)
	}
}

func TestNewAggregator_RegistersOneCheckerPerClientPlusProcessMemory(t *testing.T) {
	healthyTransport := &fakeTransport{sendFn: func(ctx context.Context, req request.Request) (request.Response, error) {
		return request.NewResponse(request.Body{}, 200, request.NewMultiMap(), 0), nil
	}}
	clients := map[string]*Client{
		"billing":   NewRESTClient(ClientConfig{Service: "billing", Transport: healthyTransport}),
		"inventory": NewRESTClient(ClientConfig{Service: "inventory", Transport: healthyTransport}),
	}

	agg := NewAggregator(health.AggregatorConfig{}, clients)

	results := agg.CheckAll(context.Background())
	for _, name := range []string{"billing", "inventory", "process.memory"} {
		if _, ok := results[name]; !ok {
			t.Errorf("CheckAll() missing result for %q", name)
		}
	}
}

func TestServeHealth_RegistersStandardEndpoints(t *testing.T) {
	healthyTransport := &fakeTransport{sendFn: func(ctx context.Context, req request.Request) (request.Response, error) {
		return request.NewResponse(request.Body{}, 200, request.NewMultiMap(), 0), nil
	}}
	clients := map[string]*Client{
		"billing": NewRESTClient(ClientConfig{Service: "billing", Transport: healthyTransport}),
	}

	mux := http.NewServeMux()
	ServeHealth(mux, health.AggregatorConfig{}, clients)

	for _, path := range []string{"/healthz", "/readyz", "/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code == http.StatusNotFound {
			t.Errorf("GET %s = 404, want a registered handler", path)
		}
	}
}
