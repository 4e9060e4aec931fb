package pipeline

import (
	"context"
	"net/http"

	"github.com/aperturestack/svcclient/health"
)

// Checker adapts a Client into a health.Checker, so several services'
// clients can be registered into one process-wide health.Aggregator rather
// than each exposing its own isolated HealthCheck/IsReady pair. Unhealthy
// mirrors HealthCheck (circuit open for this service); Degraded additionally
// covers IsReady's load-shedding condition, which does not by itself fail a
// call but signals the service is under enough pressure to shed some load.
type Checker struct {
	service string
	client  *Client
}

// NewChecker wraps client as a named health.Checker.
func NewChecker(service string, client *Client) *Checker {
	return &Checker{service: service, client: client}
}

// Name returns the service name this checker reports on.
func (c *Checker) Name() string { return c.service }

// Check reports Unhealthy if the circuit is open, Degraded if the circuit
// is closed but the service is currently shedding load, else Healthy.
func (c *Checker) Check(ctx context.Context) health.Result {
	if err := c.client.HealthCheck(); err != nil {
		return health.Unhealthy("circuit open", err)
	}
	if !c.client.IsReady() {
		return health.Degraded("load shedding active")
	}
	return health.Healthy("circuit closed, accepting load")
}

// NewAggregator builds a health.Aggregator with one Checker per entry in
// clients (keyed by the map's key, not client.service, so a caller can
// register the same downstream service under two different Clients -
// e.g. a read and a write pool - without a name collision). It also
// registers a "process.memory" checker so the composite view degrades when
// this process itself is under memory pressure, not just when a downstream
// dependency's circuit trips.
func NewAggregator(cfg health.AggregatorConfig, clients map[string]*Client) *health.Aggregator {
	agg := health.NewAggregator(cfg)
	for name, client := range clients {
		agg.Register(name, NewChecker(name, client))
	}
	agg.Register("process.memory", health.NewMemoryChecker(health.MemoryCheckerConfig{}))
	return agg
}

// ServeHealth builds an Aggregator over clients via NewAggregator and
// registers the standard /healthz, /readyz, and /health endpoints on mux, so
// a process embedding several svcclient Clients can expose one composite
// health surface for its own orchestrator probes instead of hand-rolling
// handlers around each Client's HealthCheck/IsReady pair.
func ServeHealth(mux *http.ServeMux, cfg health.AggregatorConfig, clients map[string]*Client) *health.Aggregator {
	agg := NewAggregator(cfg, clients)
	health.RegisterHandlers(mux, agg)
	return agg
}
