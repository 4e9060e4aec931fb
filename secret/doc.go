// Package secret provides a small, dependency-light secret resolution layer.
//
// It supports:
//   - Strict environment expansion (see ExpandEnvStrict)
//   - Pluggable secret providers (see Provider + Registry)
//   - Resolving secret references in configuration values (see Resolver)
//
// References use the prefix "secretref:":
//   - Full value:  secretref:env:UPSTREAM_API_KEY
//   - Inline use:  Bearer secretref:env:UPSTREAM_API_KEY
//
// config.LoadFromEnv wires a Resolver built from DefaultRegistry so a
// deployment can set an OAuth client secret to a secretref value without
// the caller constructing a Resolver by hand.
package secret
