package htmlstream

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var metaRefreshURLPattern = regexp.MustCompile(`(?i)(url\s*=\s*)(.+)$`)

// ogTwitterURLMeta are the OpenGraph/Twitter meta tags whose content is a
// bare URL or image/player reference.
var ogTwitterURLMeta = map[string]bool{
	"og:url": true, "og:image": true, "og:image:url": true,
	"og:image:secure_url": true, "og:video": true, "og:video:url": true,
	"og:video:secure_url": true, "twitter:image": true,
	"twitter:image:src": true, "twitter:player": true, "twitter:url": true,
}

// rewriteMetaTag handles the two meta-tag URL forms: `http-equiv="refresh"`
// (extract the `url=` token from `content`) and OpenGraph/Twitter URL/image
// tags (rewrite `content` heuristically when it looks like a URL or path).
func rewriteMetaTag(tok *html.Token, opts Options) {
	var httpEquiv, name, property string
	contentIdx := -1
	for i, a := range tok.Attr {
		switch strings.ToLower(a.Key) {
		case "http-equiv":
			httpEquiv = strings.ToLower(strings.TrimSpace(a.Val))
		case "name":
			name = strings.ToLower(strings.TrimSpace(a.Val))
		case "property":
			property = strings.ToLower(strings.TrimSpace(a.Val))
		case "content":
			contentIdx = i
		}
	}
	if contentIdx == -1 {
		return
	}
	content := tok.Attr[contentIdx].Val

	if httpEquiv == "refresh" {
		tok.Attr[contentIdx].Val = rewriteMetaRefresh(content, opts)
		return
	}
	if ogTwitterURLMeta[name] || ogTwitterURLMeta[property] {
		if strings.HasPrefix(content, "http") || strings.HasPrefix(content, "/") {
			tok.Attr[contentIdx].Val = opts.Arena.Proxify(content, opts.Base)
		}
	}
}

func rewriteMetaRefresh(content string, opts Options) string {
	return metaRefreshURLPattern.ReplaceAllStringFunc(content, func(m string) string {
		sub := metaRefreshURLPattern.FindStringSubmatch(m)
		urlPart := strings.Trim(sub[2], `"'`)
		return sub[1] + opts.Arena.Proxify(urlPart, opts.Base)
	})
}
