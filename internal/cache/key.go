package cache

import "net/http"

// Key derives the cache key from the outer, proxy-facing request,
// normalized to method=GET with no body and no client auth/cookies
// (spec §4.8) — Cookie and Authorization headers are deliberately not
// part of the key, so requests differing only in those headers share
// one cache entry.
func Key(r *http.Request) string {
	return r.Host + r.URL.RequestURI()
}
