package htmlstream

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/divortio/stealthproxy/internal/mime"
)

// urlAttrTable lists, per tag, the attributes rewritten by the generic
// attribute rewriter (spec §4.6).
var urlAttrTable = map[string][]string{
	"a":          {"href", "ping"},
	"link":       {"href"},
	"area":       {"href"},
	"base":       {"href"},
	"img":        {"src", "longdesc"},
	"script":     {"src"},
	"iframe":     {"src", "longdesc"},
	"embed":      {"src"},
	"source":     {"src"},
	"track":      {"src"},
	"video":      {"src", "poster"},
	"audio":      {"src"},
	"object":     {"data", "codebase", "archive"},
	"image":      {"href"},
	"input":      {"src", "formaction"},
	"form":       {"action"},
	"button":     {"formaction"},
	"html":       {"manifest"},
	"body":       {"background"},
	"applet":     {"codebase", "archive"},
	"frame":      {"src", "longdesc"},
	"blockquote": {"cite"},
	"del":        {"cite"},
	"ins":        {"cite"},
	"q":          {"cite"},
}

var svgAttrs = []string{"fill", "stroke", "filter", "mask", "clip-path", "href", "xlink:href"}

var jsLocationPattern = regexp.MustCompile(`location\s*=\s*["']?https?://[^"';]*["']?`)

func attrNameSet(tag string, inSVG bool) map[string]bool {
	names := urlAttrTable[tag]
	set := make(map[string]bool, len(names)+len(svgAttrs))
	for _, n := range names {
		set[n] = true
	}
	if tag == "svg" || inSVG {
		for _, n := range svgAttrs {
			set[n] = true
		}
	}
	return set
}

// rewriteAttrs mutates tok.Attr in place: generic URL attributes are
// proxified, srcset/style get their dedicated rewriters, integrity hashes
// are stripped from script/link, and meta is handled separately since its
// URL lives in `content`, gated by `http-equiv`/`name`/`property`.
func rewriteAttrs(tok *html.Token, opts Options, inSVG bool) {
	tag := tok.Data
	if tag == "meta" {
		rewriteMetaTag(tok, opts)
		return
	}

	rewriteSet := attrNameSet(tag, inSVG)
	kept := tok.Attr[:0]
	for _, a := range tok.Attr {
		key := strings.ToLower(a.Key)
		switch {
		case (tag == "script" || tag == "link") && key == "integrity":
			continue // integrity stripping: our rewrite invalidates the hash
		case key == "srcset" && (tag == "img" || tag == "source"):
			a.Val = opts.Arena.ProxifySrcset(a.Val, opts.Base)
		case key == "style":
			a.Val = string(mime.RewriteCSS([]byte(a.Val), opts.Base, opts.Arena))
		case rewriteSet[key]:
			a.Val = rewriteURLAttrValue(a.Val, opts)
		}
		kept = append(kept, a)
	}
	tok.Attr = kept
}

func rewriteURLAttrValue(val string, opts Options) string {
	trimmed := strings.TrimSpace(val)
	lower := strings.ToLower(trimmed)
	if val == "" || strings.HasPrefix(lower, "data:") {
		return val
	}
	if strings.HasPrefix(lower, "javascript:") {
		return jsLocationPattern.ReplaceAllString(val, `location='#'`)
	}
	return opts.Arena.Proxify(val, opts.Base)
}
