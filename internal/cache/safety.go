package cache

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

var privateCacheControl = regexp.MustCompile(`(?i)private|no-store|no-cache`)

// Cacheable implements the write safety filter (spec §4.8): only 200s,
// with a content type present in cacheableTypes (matched by substring),
// and a Cache-Control that doesn't forbid shared caching.
func Cacheable(status int, contentType, cacheControl string, cacheableTypes []string) bool {
	if status != http.StatusOK {
		return false
	}
	if privateCacheControl.MatchString(cacheControl) {
		return false
	}
	for _, t := range cacheableTypes {
		if strings.Contains(contentType, t) {
			return true
		}
	}
	return false
}

// PrepareForCache returns a clone of h with Set-Cookie stripped and the
// cache-control headers stamped on for the stored entry (spec §4.8).
func PrepareForCache(h http.Header, ttlSeconds int) http.Header {
	clone := h.Clone()
	clone.Del("Set-Cookie")
	clone.Set("Cache-Control", fmt.Sprintf("public, max-age=%d", ttlSeconds))
	clone.Set("Cloudflare-CDN-Cache-Control", fmt.Sprintf("max-age=%d", ttlSeconds))
	clone.Add("Vary", "Accept-Encoding")
	return clone
}
