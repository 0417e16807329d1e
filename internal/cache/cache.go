// Package cache implements the Edge Cache (C8): a safety-filtered,
// TTL-bounded store of rewritten responses keyed by the normalized
// GET request, backed by ristretto's admission-policy cache (spec §4.8).
package cache

import (
	"net/http"
	"time"

	"github.com/dgraph-io/ristretto"
)

// CachedResponse is the stored envelope for one cache entry.
type CachedResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// Store is the interface the orchestrator depends on, so tests can swap
// in a trivial in-memory fake without pulling in ristretto.
type Store interface {
	Get(key string) (*CachedResponse, bool)
	Set(key string, resp *CachedResponse, ttl time.Duration)
}

// RistrettoStore is the production Store, backed by a single
// process-wide ristretto.Cache.
type RistrettoStore struct {
	cache *ristretto.Cache
}

// NewRistrettoStore builds a cache sized for a moderate edge workload;
// NumCounters follows ristretto's own "10x the number of items you
// expect to hold" sizing guidance.
func NewRistrettoStore() (*RistrettoStore, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e7,
		MaxCost:     1 << 28, // 256 MiB of response bodies
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &RistrettoStore{cache: c}, nil
}

// Get returns the cached entry for key, if present and not expired.
func (s *RistrettoStore) Get(key string) (*CachedResponse, bool) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	resp, ok := v.(*CachedResponse)
	return resp, ok
}

// Set stores resp under key with the given TTL. Repeated writes for the
// same key replace the prior entry (spec §4.8 idempotence note); the
// write itself is async, so read-after-write is eventual.
func (s *RistrettoStore) Set(key string, resp *CachedResponse, ttl time.Duration) {
	cost := int64(len(resp.Body))
	s.cache.SetWithTTL(key, resp, cost, ttl)
}

// Wait blocks until all pending Set calls have been applied. Tests use
// this to make writes visible deterministically; production code does
// not need to call it (the cache is a best-effort accelerator).
func (s *RistrettoStore) Wait() {
	s.cache.Wait()
}

// Close releases the cache's background goroutines.
func (s *RistrettoStore) Close() {
	s.cache.Close()
}
