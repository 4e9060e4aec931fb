package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aperturestack/svcclient/secret"
)

// FromEnv builds a Config from environment variables named
// "<prefix>_<KEY>" in SCREAMING_SNAKE_CASE, e.g. prefix "SVCCLIENT" reads
// SVCCLIENT_DEFAULT_TIMEOUT, SVCCLIENT_CIRCUIT_FAILURE_RATE_THRESHOLD, and
// so on. Unset variables leave the corresponding field at its zero value;
// a variable set to a value that fails to parse is an error, never a
// silent fallback to zero.
func FromEnv(prefix string) (Config, error) {
	var c Config
	var err error

	get := func(name string) (string, bool) {
		return os.LookupEnv(prefix + "_" + name)
	}

	if err = parseDuration(get, "DEFAULT_TIMEOUT", &c.DefaultTimeout); err != nil {
		return Config{}, err
	}
	if err = parseInt(get, "MAX_CONNECTIONS", &c.MaxConnections); err != nil {
		return Config{}, err
	}

	if err = parseFloat(get, "CIRCUIT_FAILURE_RATE_THRESHOLD", &c.Circuit.FailureRateThreshold); err != nil {
		return Config{}, err
	}
	if err = parseInt(get, "CIRCUIT_MINIMUM_NUMBER_OF_CALLS", &c.Circuit.MinimumNumberOfCalls); err != nil {
		return Config{}, err
	}
	if err = parseInt(get, "CIRCUIT_SLIDING_WINDOW_SIZE", &c.Circuit.SlidingWindowSize); err != nil {
		return Config{}, err
	}
	if err = parseDuration(get, "CIRCUIT_WAIT_DURATION_IN_OPEN_STATE", &c.Circuit.WaitDurationInOpenState); err != nil {
		return Config{}, err
	}
	if err = parseInt(get, "CIRCUIT_PERMITTED_PROBES", &c.Circuit.PermittedProbes); err != nil {
		return Config{}, err
	}
	if err = parseDuration(get, "CIRCUIT_SLOW_CALL_THRESHOLD", &c.Circuit.SlowCallThreshold); err != nil {
		return Config{}, err
	}

	if err = parseInt(get, "BULKHEAD_MAX_CONCURRENT", &c.Bulkhead.MaxConcurrent); err != nil {
		return Config{}, err
	}
	if err = parseDuration(get, "BULKHEAD_MAX_WAIT", &c.Bulkhead.MaxWait); err != nil {
		return Config{}, err
	}

	if err = parseFloat(get, "RATE_LIMIT_RPS", &c.RateLimit.RPS); err != nil {
		return Config{}, err
	}
	if err = parseInt(get, "RATE_LIMIT_BURST", &c.RateLimit.Burst); err != nil {
		return Config{}, err
	}

	if err = parseDuration(get, "TIMEOUT_BASE", &c.Timeout.Base); err != nil {
		return Config{}, err
	}
	if err = parseDuration(get, "TIMEOUT_MAX", &c.Timeout.Max); err != nil {
		return Config{}, err
	}

	if err = parseInt(get, "RETRY_MAX_ATTEMPTS", &c.Retry.MaxAttempts); err != nil {
		return Config{}, err
	}
	if err = parseDuration(get, "RETRY_BASE_BACKOFF", &c.Retry.BaseBackoff); err != nil {
		return Config{}, err
	}
	if err = parseDuration(get, "RETRY_MAX_BACKOFF", &c.Retry.MaxBackoff); err != nil {
		return Config{}, err
	}
	if err = parseFloat(get, "RETRY_JITTER", &c.Retry.Jitter); err != nil {
		return Config{}, err
	}

	if err = parseFloat(get, "LOAD_SHED_CPU", &c.LoadShed.CPU); err != nil {
		return Config{}, err
	}
	if err = parseFloat(get, "LOAD_SHED_MEM", &c.LoadShed.Mem); err != nil {
		return Config{}, err
	}
	if err = parseInt(get, "LOAD_SHED_THREADS", &c.LoadShed.Threads); err != nil {
		return Config{}, err
	}
	if err = parseFloat(get, "LOAD_SHED_RPS", &c.LoadShed.RPS); err != nil {
		return Config{}, err
	}
	if err = parseDuration(get, "LOAD_SHED_LATENCY", &c.LoadShed.Latency); err != nil {
		return Config{}, err
	}

	if err = parseDuration(get, "OAUTH_REFRESH_BUFFER", &c.OAuth.RefreshBuffer); err != nil {
		return Config{}, err
	}
	if v, ok := get("OAUTH_CLIENT_ID"); ok {
		c.OAuth.ClientID = v
	}
	if v, ok := get("OAUTH_CLIENT_SECRET"); ok {
		c.OAuth.ClientSecret = v
	}

	if err = parseInt(get, "CACHE_MAX_ENTRIES", &c.Cache.MaxEntries); err != nil {
		return Config{}, err
	}
	if err = parseDuration(get, "CACHE_DEFAULT_TTL", &c.Cache.DefaultTTL); err != nil {
		return Config{}, err
	}

	if err = parseDuration(get, "WS_HEARTBEAT", &c.WebSocket.Heartbeat); err != nil {
		return Config{}, err
	}
	if err = parseDuration(get, "WS_RECONNECT_BASE_BACKOFF", &c.WebSocket.ReconnectBaseBackoff); err != nil {
		return Config{}, err
	}
	if err = parseInt(get, "WS_QUEUE_MAX", &c.WebSocket.QueueMax); err != nil {
		return Config{}, err
	}

	if err = parseInt64(get, "UPLOAD_CHUNK_SIZE", &c.Upload.ChunkSize); err != nil {
		return Config{}, err
	}
	if err = parseInt(get, "UPLOAD_MAX_PARALLEL", &c.Upload.MaxParallel); err != nil {
		return Config{}, err
	}

	return c, nil
}

// LoadFromEnv builds a Config via FromEnv, then resolves OAuth.ClientID and
// OAuth.ClientSecret through a Resolver built from secret.DefaultRegistry -
// so a deployment can set SVCCLIENT_OAUTH_CLIENT_SECRET to either a literal,
// a ${VAR}-style placeholder, or a "secretref:env:<NAME>" reference without
// the caller wiring a Resolver by hand.
func LoadFromEnv(ctx context.Context, prefix string) (Config, error) {
	c, err := FromEnv(prefix)
	if err != nil {
		return Config{}, err
	}

	providers := make([]secret.Provider, 0, len(secret.DefaultRegistry.List()))
	for _, name := range secret.DefaultRegistry.List() {
		p, err := secret.DefaultRegistry.Create(name, nil)
		if err != nil {
			return Config{}, fmt.Errorf("build secret provider %q: %w", name, err)
		}
		providers = append(providers, p)
	}

	if err := c.ResolveSecrets(ctx, secret.NewResolver(true, providers...)); err != nil {
		return Config{}, fmt.Errorf("resolve secrets: %w", err)
	}
	return c, nil
}

func parseDuration(get func(string) (string, bool), name string, dst *time.Duration) error {
	v, ok := get(name)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parse %s=%q as duration: %w", name, v, err)
	}
	*dst = d
	return nil
}

func parseInt(get func(string) (string, bool), name string, dst *int) error {
	v, ok := get(name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("parse %s=%q as int: %w", name, v, err)
	}
	*dst = n
	return nil
}

func parseInt64(get func(string) (string, bool), name string, dst *int64) error {
	v, ok := get(name)
	if !ok {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s=%q as int64: %w", name, v, err)
	}
	*dst = n
	return nil
}

func parseFloat(get func(string) (string, bool), name string, dst *float64) error {
	v, ok := get(name)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("parse %s=%q as float: %w", name, v, err)
	}
	*dst = f
	return nil
}
