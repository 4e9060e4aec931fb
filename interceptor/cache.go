package interceptor

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aperturestack/svcclient/request"
)

// CacheConfig configures the Cache interceptor's bounded store and default
// freshness policy.
type CacheConfig struct {
	// MaxEntries bounds the LRU store; the least recently used entry is
	// evicted once the store is full. Zero disables the store entirely
	// (Cache becomes a no-op).
	MaxEntries int
	// DefaultTTL is used when a response carries no Cache-Control max-age.
	DefaultTTL time.Duration
	// MaxTTL clamps any TTL, including a server-supplied max-age.
	MaxTTL time.Duration
}

// SkipRule decides whether a request must never be served from or written
// to the cache.
type SkipRule func(req request.Request) bool

// DefaultSkipRule skips every method except GET and HEAD, matching the
// usual HTTP cacheability rule for idempotent, side-effect-free calls.
func DefaultSkipRule(req request.Request) bool {
	m := strings.ToUpper(req.Method)
	return m != "" && m != "GET" && m != "HEAD"
}

type cacheEntry struct {
	resp         request.Response
	expiresAt    time.Time
	etag         string
	lastModified string
}

// Store is a bounded, LRU-evicting cache of Responses keyed by request
// fingerprint. Adapted from cache.MemoryCache's RWMutex-guarded map,
// generalized with container/list for LRU eviction instead of an unbounded
// map.
type Store struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
}

type storeItem struct {
	key   string
	entry cacheEntry
}

// NewStore creates a Store holding at most capacity entries.
func NewStore(capacity int) *Store {
	return &Store{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (s *Store) get(key string) (cacheEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		return cacheEntry{}, false
	}
	s.order.MoveToFront(el)
	return el.Value.(*storeItem).entry, true
}

func (s *Store) set(key string, entry cacheEntry) {
	if s.capacity <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[key]; ok {
		el.Value.(*storeItem).entry = entry
		s.order.MoveToFront(el)
		return
	}

	el := s.order.PushFront(&storeItem{key: key, entry: entry})
	s.entries[key] = el

	for s.order.Len() > s.capacity {
		oldest := s.order.Back()
		if oldest == nil {
			break
		}
		s.order.Remove(oldest)
		delete(s.entries, oldest.Value.(*storeItem).key)
	}
}

// Len reports the number of entries currently held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// fingerprint builds a deterministic cache key from the parts of a request
// that determine its response. Adapted from cache.DefaultKeyer.Key, fixed
// to Request's shape instead of (toolID, arbitrary input).
func fingerprint(req request.Request) string {
	h := sha256.New()
	h.Write([]byte(req.Service))
	h.Write([]byte{0})
	h.Write([]byte(req.Method))
	h.Write([]byte{0})
	h.Write([]byte(req.Endpoint))
	h.Write([]byte{0})
	for _, k := range req.Query.Keys() {
		h.Write([]byte(k))
		for _, v := range req.Query.Values(k) {
			h.Write([]byte{0})
			h.Write([]byte(v))
		}
	}
	h.Write([]byte{0})
	h.Write(req.Body.Bytes)
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}

// Cache builds the caching interceptor. A fresh hit serves the stored
// response without calling next; a stale entry is revalidated by attaching
// If-None-Match/If-Modified-Since to the forwarded request, and a 304
// response is treated as a hit that refreshes the stored entry's expiry.
// Adapted from cache.CacheMiddleware.Execute's skip/lookup/execute/store
// sequence, extended with HTTP validator semantics a tool-result cache has
// no concept of.
func Cache(store *Store, cfg CacheConfig, skip SkipRule) Interceptor {
	if skip == nil {
		skip = DefaultSkipRule
	}

	return func(ctx context.Context, req request.Request, next Next) (request.Response, error) {
		if skip(req) || cfg.MaxEntries <= 0 {
			return next(ctx, req)
		}

		key := fingerprint(req)
		entry, hit := store.get(key)

		if hit && time.Now().Before(entry.expiresAt) {
			return entry.resp, nil
		}

		forwarded := req
		if hit {
			if entry.etag != "" {
				forwarded = forwarded.WithHeaderSet("If-None-Match", entry.etag)
			}
			if entry.lastModified != "" {
				forwarded = forwarded.WithHeaderSet("If-Modified-Since", entry.lastModified)
			}
		}

		resp, err := next(ctx, forwarded)
		if err != nil {
			return resp, err
		}

		if hit && resp.StatusCode == 304 {
			ttl := cacheTTL(resp, cfg)
			entry.expiresAt = time.Now().Add(ttl)
			store.set(key, entry)
			revalidated := entry.resp
			revalidated.Elapsed = resp.Elapsed
			return revalidated, nil
		}

		if resp.Success && isCacheable(resp) {
			ttl := cacheTTL(resp, cfg)
			etag, _ := resp.Headers.Get("ETag")
			lastMod, _ := resp.Headers.Get("Last-Modified")
			// Stored even when ttl is 0 (e.g. max-age=0): an ETag/Last-
			// Modified still lets the next call revalidate instead of
			// falling back to an uncached full fetch.
			store.set(key, cacheEntry{
				resp:         resp,
				expiresAt:    time.Now().Add(ttl),
				etag:         etag,
				lastModified: lastMod,
			})
		}

		return resp, nil
	}
}

func isCacheable(resp request.Response) bool {
	cc, _ := resp.Headers.Get("Cache-Control")
	cc = strings.ToLower(cc)
	return !strings.Contains(cc, "no-store") && !strings.Contains(cc, "no-cache") && !strings.Contains(cc, "private")
}

// cacheTTL derives the freshness window from a response's Cache-Control
// max-age directive, falling back to cfg.DefaultTTL and clamping to
// cfg.MaxTTL, matching cache.Policy.EffectiveTTL's default/clamp shape.
func cacheTTL(resp request.Response, cfg CacheConfig) time.Duration {
	ttl := cfg.DefaultTTL

	if cc, ok := resp.Headers.Get("Cache-Control"); ok {
		for _, directive := range strings.Split(cc, ",") {
			directive = strings.TrimSpace(directive)
			if after, found := strings.CutPrefix(directive, "max-age="); found {
				if secs, err := strconv.Atoi(strings.TrimSpace(after)); err == nil {
					ttl = time.Duration(secs) * time.Second
				}
			}
		}
	}

	if cfg.MaxTTL > 0 && ttl > cfg.MaxTTL {
		ttl = cfg.MaxTTL
	}
	return ttl
}
