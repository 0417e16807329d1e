package mime

import (
	"encoding/json"
	"net/url"
	"reflect"
	"strings"

	"github.com/divortio/stealthproxy/internal/urlrewrite"
)

// RewriteJSON decodes body, proxifies every string value that looks like an
// absolute http(s) URL, and re-encodes it. On decode failure the caller
// should fall back to passthrough (spec §4.5/§7 "MIME parse failure").
func RewriteJSON(body []byte, base *url.URL, arena *urlrewrite.Arena) ([]byte, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	v = Walk(v, func(s string) string {
		if looksLikeAbsoluteURL(s) {
			return arena.Proxify(s, base)
		}
		return s
	})
	return json.Marshal(v)
}

// Walk recursively applies transform to every string leaf of a decoded JSON
// value (map[string]any / []any / scalars), guarding against reference
// cycles via a visited-pointer set. encoding/json output is acyclic by
// construction, but the walker is shared by the HTML streamer's Import Map
// and Speculation Rules handlers, so the guard earns its keep there too.
func Walk(v any, transform func(string) string) any {
	return walkValue(v, transform, make(map[uintptr]bool))
}

func walkValue(v any, transform func(string) string, visited map[uintptr]bool) any {
	switch val := v.(type) {
	case map[string]any:
		ptr := reflect.ValueOf(val).Pointer()
		if visited[ptr] {
			return val
		}
		visited[ptr] = true
		for k, child := range val {
			val[k] = walkValue(child, transform, visited)
		}
		return val
	case []any:
		ptr := reflect.ValueOf(val).Pointer()
		if visited[ptr] {
			return val
		}
		visited[ptr] = true
		for i, child := range val {
			val[i] = walkValue(child, transform, visited)
		}
		return val
	case string:
		return transform(val)
	default:
		return v
	}
}

func looksLikeAbsoluteURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
