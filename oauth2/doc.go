// Package oauth2 caches outbound OAuth2 tokens this process acquires for
// itself (client-credentials and password grants), rather than validating
// tokens presented by callers. A Cache holds at most one valid token per
// (grantType, scope) pair, refreshes it shortly before expiry, and
// collapses concurrent refreshes for the same key into a single fetch.
package oauth2
