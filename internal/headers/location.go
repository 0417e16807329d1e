package headers

import (
	"net/http"
	"net/url"

	"github.com/divortio/stealthproxy/internal/urlrewrite"
)

// rewriteLocation resolves a redirect Location against the target URL and
// rewrites it to the corresponding ProxyURL.
func rewriteLocation(resp *http.Response, target *urlrewrite.Target, arena *urlrewrite.Arena) {
	loc := resp.Header.Get("Location")
	if loc == "" || target == nil {
		return
	}
	base, err := url.Parse(target.URL())
	if err != nil {
		return
	}
	resp.Header.Set("Location", arena.Proxify(loc, base))
}
