package oauth2

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aperturestack/svcclient/resilience"
	"github.com/aperturestack/svcclient/svcerr"
)

// GrantType enumerates the outbound OAuth2 grants this cache supports.
type GrantType int

const (
	GrantClientCredentials GrantType = iota
	GrantPassword
)

func (g GrantType) String() string {
	switch g {
	case GrantClientCredentials:
		return "client_credentials"
	case GrantPassword:
		return "password"
	default:
		return "unknown"
	}
}

// Token is one cached token record.
type Token struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresAt    time.Time
}

// Fetcher performs the actual token-endpoint round trip for one grant. When
// grantType is GrantPassword and a prior fetch returned a refresh token, the
// cache passes it as refreshToken so the fetcher can exchange it instead of
// re-submitting the original password credentials; refreshToken is empty on
// the first fetch for a key, or for GrantClientCredentials.
//
// Errors should be *svcerr.ServiceError where possible, since the cache's
// retry restricts itself to the Network, Server, and Timeout categories --
// an opaque error is treated as non-retryable.
type Fetcher func(ctx context.Context, grantType GrantType, scope, refreshToken string) (Token, error)

// Config configures a Cache.
type Config struct {
	// RefreshBuffer is how long before expiry a token is treated as stale.
	// Default: 30s.
	RefreshBuffer time.Duration

	// Retry configures the fetch retry, restricted to categories Network,
	// Server, and Timeout regardless of what the config permits elsewhere.
	Retry resilience.RetryConfig
}

func (c *Config) applyDefaults() {
	if c.RefreshBuffer <= 0 {
		c.RefreshBuffer = 30 * time.Second
	}
}

type cacheKey struct {
	grantType GrantType
	scope     string
}

type cacheEntry struct {
	token        Token
	refreshToken string
}

// Cache is a thread-safe OAuth2 token cache keyed by (grantType, scope),
// guaranteeing at most one in-flight fetch per key. Adapted from the
// introspection-result cache shape (RWMutex-guarded map, TTL-based
// freshness), generalized from a cache of inbound-verification results to a
// cache of outbound tokens this process acquires for itself, and extended
// with singleflight-collapsed fetches and password-grant refresh-token
// reuse.
type Cache struct {
	fetcher       Fetcher
	refreshBuffer time.Duration
	retry         *resilience.Retry

	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry

	sf singleflight.Group
}

// NewCache creates a token cache backed by fetcher.
func NewCache(fetcher Fetcher, cfg Config) *Cache {
	cfg.applyDefaults()
	return &Cache{
		fetcher:       fetcher,
		refreshBuffer: cfg.RefreshBuffer,
		retry:         resilience.NewRetry(cfg.Retry),
		entries:       make(map[cacheKey]cacheEntry),
	}
}

// Get returns the cached token for (grantType, scope) if now + refreshBuffer
// is still before its expiry; otherwise it fetches (and caches) a new one.
// Concurrent callers for the same key share a single in-flight fetch.
func (c *Cache) Get(ctx context.Context, grantType GrantType, scope string) (Token, error) {
	key := cacheKey{grantType, scope}

	if tok, ok := c.fresh(key); ok {
		return tok, nil
	}

	sfKey := fmt.Sprintf("%s:%s", grantType, scope)
	v, err, _ := c.sf.Do(sfKey, func() (any, error) {
		// Re-check: another caller may have refreshed this key while we
		// waited to win the singleflight race.
		if tok, ok := c.fresh(key); ok {
			return tok, nil
		}
		return c.refresh(ctx, key)
	})
	if err != nil {
		return Token{}, err
	}
	return v.(Token), nil
}

func (c *Cache) fresh(key cacheKey) (Token, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return Token{}, false
	}
	if time.Now().Add(c.refreshBuffer).Before(e.token.ExpiresAt) {
		return e.token, true
	}
	return Token{}, false
}

func (c *Cache) refresh(ctx context.Context, key cacheKey) (Token, error) {
	refreshToken := ""
	if key.grantType == GrantPassword {
		c.mu.RLock()
		if e, ok := c.entries[key]; ok {
			refreshToken = e.refreshToken
		}
		c.mu.RUnlock()
	}

	var tok Token
	opErr := c.retry.Execute(ctx, func(ctx context.Context, attempt int) (*svcerr.ServiceError, error) {
		t, err := c.fetcher(ctx, key.grantType, key.scope, refreshToken)
		if err == nil {
			if t.ExpiresAt.IsZero() {
				if exp, ok := ExpiresAtFromJWT(t.AccessToken); ok {
					t.ExpiresAt = exp
				}
			}
			tok = t
			return nil, nil
		}

		svcErr, ok := svcerr.As(err)
		if !ok || !retryableForTokenFetch(svcErr) {
			return nil, err
		}
		return svcErr, nil
	})
	if opErr != nil {
		return Token{}, opErr
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{token: tok, refreshToken: firstNonEmpty(tok.RefreshToken, refreshToken)}
	c.mu.Unlock()

	return tok, nil
}

// retryableForTokenFetch narrows retry to network, server, and timeout
// faults: a retryable rate-limit or circuit-open verdict elsewhere in the
// taxonomy does not apply to token acquisition.
func retryableForTokenFetch(svcErr *svcerr.ServiceError) bool {
	if !svcErr.Retryable() {
		return false
	}
	switch svcErr.Category() {
	case svcerr.CategoryNetwork, svcerr.CategoryServer, svcerr.CategoryTimeout:
		return true
	default:
		return false
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// AutoRefresh starts a background goroutine that proactively refreshes
// (grantType, scope) shortly before it would otherwise go stale, stopping
// when ctx is done. It exists so a password-grant refresh token is
// exercised ahead of an incoming call rather than only on-demand inside Get,
// keeping latency off the hot path.
func (c *Cache) AutoRefresh(ctx context.Context, grantType GrantType, scope string) {
	key := cacheKey{grantType, scope}

	go func() {
		for {
			wait := c.refreshBuffer
			if tok, ok := c.fresh(key); ok {
				if remaining := time.Until(tok.ExpiresAt.Add(-c.refreshBuffer)); remaining > 0 {
					wait = remaining
				} else {
					wait = 0
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}

			if ctx.Err() != nil {
				return
			}
			_, _ = c.Get(ctx, grantType, scope)
		}
	}()
}
