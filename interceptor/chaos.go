package interceptor

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/aperturestack/svcclient/request"
	"github.com/aperturestack/svcclient/svcerr"
)

// ChaosConfig configures fault injection. Hard-gated off unless Environment
// is set to something other than "production" — Enabled alone is not
// sufficient, so a config accidentally left on cannot fire in prod.
type ChaosConfig struct {
	Environment string

	Enabled bool

	// LatencyProbability is the chance [0,1) of injecting extra latency.
	LatencyProbability float64
	// LatencyMin/LatencyMax bound the injected delay, chosen uniformly.
	LatencyMin time.Duration
	LatencyMax time.Duration

	// ErrorProbability is the chance [0,1) of short-circuiting with a
	// synthetic error instead of calling next.
	ErrorProbability float64
	// ErrorKind is the taxonomy kind synthesized on injected failure.
	ErrorKind svcerr.Kind

	// CorruptionProbability is the chance [0,1) of truncating a successful
	// response's body to simulate wire corruption.
	CorruptionProbability float64
}

// Chaos builds a fault-injection interceptor. It is a no-op unless
// cfg.Enabled and cfg.Environment != "production" — a feature dead outside
// explicit non-prod opt-in, matching the conservative-default posture used
// elsewhere (e.g. CircuitBreakerConfig.SlowCallRateEnabled).
func Chaos(cfg ChaosConfig) Interceptor {
	active := cfg.Enabled && cfg.Environment != "production" && cfg.Environment != ""

	return func(ctx context.Context, req request.Request, next Next) (request.Response, error) {
		if !active {
			return next(ctx, req)
		}

		if cfg.LatencyProbability > 0 && rand.Float64() < cfg.LatencyProbability {
			delay := cfg.LatencyMin
			if cfg.LatencyMax > cfg.LatencyMin {
				delay += time.Duration(rand.Int64N(int64(cfg.LatencyMax - cfg.LatencyMin)))
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return request.Response{}, ctx.Err()
			}
		}

		if cfg.ErrorProbability > 0 && rand.Float64() < cfg.ErrorProbability {
			errCtx := svcerr.ErrorContext{Service: req.Service, Endpoint: req.Endpoint}
			return request.Response{}, svcerr.New(cfg.ErrorKind, "chaos: injected failure", errCtx, nil)
		}

		resp, err := next(ctx, req)
		if err == nil && cfg.CorruptionProbability > 0 && rand.Float64() < cfg.CorruptionProbability {
			resp = corrupt(resp)
		}
		return resp, err
	}
}

// corrupt truncates a response body to half its length to simulate a
// mangled wire payload.
func corrupt(resp request.Response) request.Response {
	n := len(resp.Body.Bytes) / 2
	resp.Body.Bytes = resp.Body.Bytes[:n]
	return resp
}
