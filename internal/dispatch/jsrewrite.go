package dispatch

import "regexp"

// sourceMapCommentPattern strips //# sourceMappingURL=... lines — the map
// file would otherwise point back at the unproxified origin.
var sourceMapCommentPattern = regexp.MustCompile(`//#\s*sourceMappingURL=[^\r\n]*`)

// dynamicImportPattern rewrites import(...) to route dynamic module
// fetches through the client interceptor's hook (spec §4.7).
var dynamicImportPattern = regexp.MustCompile(`\bimport\s*\(`)

// rewriteJS implements the JS text-rewrite handler: strip the source-map
// comment and hook dynamic import() through self.__d_rw.
func rewriteJS(body []byte) []byte {
	out := sourceMapCommentPattern.ReplaceAll(body, nil)
	out = dynamicImportPattern.ReplaceAll(out, []byte("import(self.__d_rw("))
	return out
}
