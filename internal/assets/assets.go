// Package assets implements the Asset Generator (C10): a handful of
// template-parameterized script endpoints the core treats as opaque,
// externally-produced payloads (spec §4.10, §1 "out of scope").
package assets

import (
	"fmt"
	"net/http"
)

const (
	InterceptorPath          = "/__divortio_interceptor.js"
	ServiceWorkerPath        = "/__divortio_sw.js"
	ServiceWorkerInjectorPath = "/__divortio_sw_injector.js"
)

// IsAssetPath reports whether path is one of the generated endpoints.
func IsAssetPath(path string) bool {
	switch path {
	case InterceptorPath, ServiceWorkerPath, ServiceWorkerInjectorPath:
		return true
	}
	return false
}

// Serve dispatches to the matching generator for r.URL.Path. Callers
// must check IsAssetPath first.
func Serve(w http.ResponseWriter, r *http.Request, rootDomain string) {
	w.Header().Set("X-Robots-Tag", "noindex, nofollow")

	switch r.URL.Path {
	case InterceptorPath:
		serveScript(w, InterceptorScript(rootDomain), "public, max-age=43200")

	case ServiceWorkerPath:
		w.Header().Set("Service-Worker-Allowed", "/")
		serveScript(w, ServiceWorkerScript(rootDomain), "public, max-age=43200")

	case ServiceWorkerInjectorPath:
		target := r.URL.Query().Get("target")
		if target == "" {
			http.Error(w, "target is required", http.StatusBadRequest)
			return
		}
		w.Header().Set("Service-Worker-Allowed", "/")
		serveScript(w, ServiceWorkerInjectorScript(target), "")
	}
}

func serveScript(w http.ResponseWriter, body []byte, cacheControl string) {
	w.Header().Set("Content-Type", "application/javascript")
	if cacheControl != "" {
		w.Header().Set("Cache-Control", cacheControl)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// InterceptorScript generates the client-side interceptor: it patches
// fetch/XHR/WebSocket construction so same-document script that builds
// absolute upstream URLs at runtime (rather than via a static attribute
// the HTML Streamer already rewrote) still routes through the proxy.
func InterceptorScript(rootDomain string) []byte {
	return []byte(fmt.Sprintf(`(function(){
  var ROOT = %q;
  function proxify(url){
    try {
      var u = new URL(url, self.location.href);
      if (u.hostname === ROOT || u.hostname.endsWith("." + ROOT)) return u.href;
      u.hostname = u.hostname + "." + ROOT;
      return u.href;
    } catch (e) { return url; }
  }
  self.__CFG__ = self.__CFG__ || {rootDomain: ROOT};
  self.__d_rw = proxify;

  var origFetch = self.fetch;
  if (origFetch) {
    self.fetch = function(input, init){
      if (typeof input === "string") input = proxify(input);
      else if (input && input.url) input = new Request(proxify(input.url), input);
      return origFetch.call(this, input, init);
    };
  }

  var OrigXHR = self.XMLHttpRequest;
  if (OrigXHR) {
    var origOpen = OrigXHR.prototype.open;
    OrigXHR.prototype.open = function(method, url){
      arguments[1] = proxify(url);
      return origOpen.apply(this, arguments);
    };
  }

  var OrigWS = self.WebSocket;
  if (OrigWS) {
    self.WebSocket = function(url, protocols){
      return new OrigWS(proxify(url), protocols);
    };
    self.WebSocket.prototype = OrigWS.prototype;
  }
})();`, rootDomain))
}

// ServiceWorkerScript generates the proxy's own service worker: a
// pass-through fetch handler, since request rewriting already happened
// server-side before the worker's scope sees the request.
func ServiceWorkerScript(rootDomain string) []byte {
	return []byte(fmt.Sprintf(`self.__CFG__ = {rootDomain: %q};
self.addEventListener("fetch", function(event){
  event.respondWith(fetch(event.request));
});`, rootDomain))
}

// ServiceWorkerInjectorScript generates a wrapper worker that loads the
// interceptor, then importScripts the upstream site's own service worker
// (proxified), so the origin's offline/push behavior keeps working.
func ServiceWorkerInjectorScript(target string) []byte {
	return []byte(fmt.Sprintf(`importScripts(%q);
importScripts(%q);`, InterceptorPath, target))
}
