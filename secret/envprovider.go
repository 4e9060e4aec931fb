package secret

import (
	"context"
	"fmt"
	"os"
)

// EnvProvider resolves a secret reference by reading it from the process
// environment, so a "secretref:env:<NAME>" value can be used interchangeably
// with a provider backed by an external secret store. It is registered into
// DefaultRegistry under the name "env" so callers that build a Resolver from
// DefaultRegistry get it for free without wiring anything themselves.
type EnvProvider struct{}

// NewEnvProvider returns an EnvProvider. cfg is accepted to satisfy
// ProviderFactory's signature; EnvProvider takes no configuration.
func NewEnvProvider(cfg map[string]any) (Provider, error) {
	return EnvProvider{}, nil
}

// Name returns "env".
func (EnvProvider) Name() string { return "env" }

// Resolve looks up ref as an environment variable name.
func (EnvProvider) Resolve(ctx context.Context, ref string) (string, error) {
	v, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("secret: environment variable %q is not set", ref)
	}
	return v, nil
}

// Close is a no-op; EnvProvider holds no resources.
func (EnvProvider) Close() error { return nil }

func init() {
	_ = DefaultRegistry.Register("env", NewEnvProvider)
}
