package config

import (
	"context"
	"fmt"

	"github.com/aperturestack/svcclient/secret"
)

// ResolveSecrets expands OAuth.ClientID/ClientSecret through r: each value
// may be a literal, a ${VAR}-style environment placeholder, or a
// "secretref:<provider>:<ref>" reference. Resolved values replace the
// originals in place; neither the reference nor the resolved value is ever
// logged by this call.
func (c *Config) ResolveSecrets(ctx context.Context, r *secret.Resolver) error {
	id, err := r.ResolveValue(ctx, c.OAuth.ClientID)
	if err != nil {
		return fmt.Errorf("resolve oauth.clientId: %w", err)
	}
	c.OAuth.ClientID = id

	value, err := r.ResolveValue(ctx, c.OAuth.ClientSecret)
	if err != nil {
		return fmt.Errorf("resolve oauth.clientSecret: %w", err)
	}
	c.OAuth.ClientSecret = value

	return nil
}
