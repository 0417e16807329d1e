// Package htmlstream implements the HTML Streamer (C6): a token-at-a-time
// golang.org/x/net/html.Tokenizer pass that rewrites URL-bearing attributes,
// injects the client interceptor, and applies domain-scoped mods, without
// ever buffering the whole document into a DOM (spec §4.6).
package htmlstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/divortio/stealthproxy/internal/mime"
	"github.com/divortio/stealthproxy/internal/urlrewrite"
)

// TextMod is a domain-scoped text rewriter bound to the HTML stream by the
// Mod Framework (C12); Options carries only the mods already enabled and
// matched for the current target host.
type TextMod struct {
	Pattern *regexp.Regexp
	Replace func(match string) string
}

// Options configures one Transform call.
type Options struct {
	Arena      *urlrewrite.Arena
	Base       *url.URL // the resolved target URL, used to resolve relative references
	RootDomain string
	TextMods   []TextMod
}

// unsafeAncestors are tags whose text content is never touched by mod text
// rewriting — stylesheet text, SVG markup, noscript fallbacks, and
// preformatted/user-visible-verbatim content would be corrupted by a blind
// substring replace. <script> text is not listed here: mods do rewrite it,
// subject to the adjacency guard in mods.go.
var unsafeAncestors = map[string]bool{
	"style": true, "svg": true, "noscript": true,
	"textarea": true, "pre": true, "code": true,
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// jsonScriptTypes are script types whose text content is buffered and
// tree-walked as JSON rather than treated as opaque JS text.
var jsonScriptTypes = map[string]bool{
	"importmap":        true,
	"speculationrules": true,
}

type tagFrame struct {
	name       string
	jsonType   string // non-empty when this <script> buffers JSON
	textBuffer bytes.Buffer
}

// Transform reads HTML from r and writes the rewritten stream to w.
func Transform(w io.Writer, r io.Reader, opts Options) error {
	tz := html.NewTokenizer(r)
	var stack []*tagFrame
	headInjected := false

	for {
		tt := tz.Next()
		if tt == html.ErrorToken {
			if err := tz.Err(); err != io.EOF {
				return err
			}
			return nil
		}

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := tz.Token()
			inSVG := inStack(stack, "svg")
			rewriteAttrs(&tok, opts, inSVG)

			if err := writeToken(w, tok); err != nil {
				return err
			}

			if tok.Data == "head" && !headInjected {
				if _, err := io.WriteString(w, interceptorSnippet(opts.RootDomain)); err != nil {
					return err
				}
				headInjected = true
			}

			if tt == html.StartTagToken && !voidElements[tok.Data] {
				frame := &tagFrame{name: tok.Data}
				if tok.Data == "script" {
					frame.jsonType = jsonScriptType(tok)
				}
				stack = append(stack, frame)
			}

		case html.EndTagToken:
			tok := tz.Token()
			if len(stack) > 0 && stack[len(stack)-1].name == tok.Data {
				frame := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if frame.jsonType != "" {
					rewritten := rewriteJSONScript(frame.textBuffer.Bytes(), frame.jsonType, opts)
					if _, err := w.Write(rewritten); err != nil {
						return err
					}
				}
			}
			if err := writeToken(w, tok); err != nil {
				return err
			}

		case html.TextToken:
			if len(stack) > 0 && stack[len(stack)-1].jsonType != "" {
				stack[len(stack)-1].textBuffer.Write(tz.Raw())
				continue
			}
			text := tz.Raw()
			if !insideUnsafeAncestor(stack) && len(opts.TextMods) > 0 {
				insideScript := inStack(stack, "script")
				text = []byte(applyTextMods(string(text), opts.TextMods, insideScript))
			}
			if _, err := w.Write(text); err != nil {
				return err
			}

		default:
			if _, err := w.Write(tz.Raw()); err != nil {
				return err
			}
		}
	}
}

func writeToken(w io.Writer, tok html.Token) error {
	_, err := io.WriteString(w, tok.String())
	return err
}

func inStack(stack []*tagFrame, name string) bool {
	for _, f := range stack {
		if f.name == name {
			return true
		}
	}
	return false
}

func insideUnsafeAncestor(stack []*tagFrame) bool {
	for _, f := range stack {
		if unsafeAncestors[f.name] {
			return true
		}
	}
	return false
}

func jsonScriptType(tok html.Token) string {
	for _, a := range tok.Attr {
		if strings.EqualFold(a.Key, "type") && jsonScriptTypes[strings.ToLower(strings.TrimSpace(a.Val))] {
			return strings.ToLower(strings.TrimSpace(a.Val))
		}
	}
	return ""
}

func interceptorSnippet(rootDomain string) string {
	return fmt.Sprintf(
		`<script>self.__CFG__={rootDomain:'%s'}</script><script src="/__divortio_interceptor.js" async></script>`,
		rootDomain,
	)
}

// rewriteJSONScript implements the Import Map and Speculation Rules
// handlers (spec §4.6): buffer, JSON-decode, tree-walk rewrite, re-encode.
// On parse failure the original bytes are returned unchanged.
func rewriteJSONScript(raw []byte, scriptType string, opts Options) []byte {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw
	}

	transform := func(s string) string {
		if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "/") {
			return opts.Arena.Proxify(s, opts.Base)
		}
		return s
	}

	if scriptType == "importmap" {
		v = rewriteImportMap(v, transform)
	} else {
		v = mime.Walk(v, transform)
	}

	out, err := json.Marshal(v)
	if err != nil {
		return raw
	}
	return out
}

// rewriteImportMap additionally rewrites the keys of the "scopes" map,
// which are themselves URLs, alongside every string value (spec §4.6).
func rewriteImportMap(v any, transform func(string) string) any {
	root, ok := v.(map[string]any)
	if !ok {
		return mime.Walk(v, transform)
	}
	for k, val := range root {
		root[k] = mime.Walk(val, transform)
	}
	if scopes, ok := root["scopes"].(map[string]any); ok {
		rewritten := make(map[string]any, len(scopes))
		for key, val := range scopes {
			rewritten[transform(key)] = val
		}
		root["scopes"] = rewritten
	}
	return root
}
