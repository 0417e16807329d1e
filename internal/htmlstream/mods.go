package htmlstream

import (
	"regexp"
	"strings"
)

// scriptGuardPattern rejects a mod match when it's immediately adjacent to
// URL/JSON-like punctuation inside a <script> text node — a bare-word
// rebrand mod should not clobber an identifier, property access, or path
// segment that happens to contain the same text (spec §4.12).
var scriptGuardPattern = regexp.MustCompile(`[/.@\-:]`)

// applyTextMods runs every enabled text-rewriter mod's pattern over text,
// skipping matches adjacent to URL/JSON-like punctuation when insideScript.
func applyTextMods(text string, mods []TextMod, insideScript bool) string {
	for _, mod := range mods {
		text = applyOneMod(text, mod, insideScript)
	}
	return text
}

func applyOneMod(text string, mod TextMod, insideScript bool) string {
	locs := mod.Pattern.FindAllStringIndex(text, -1)
	if locs == nil {
		return text
	}

	var b strings.Builder
	last := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		b.WriteString(text[last:start])
		match := text[start:end]
		if insideScript && isGuarded(text, start, end) {
			b.WriteString(match)
		} else {
			b.WriteString(mod.Replace(match))
		}
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

// isGuarded reports whether the match at [start,end) in text is immediately
// preceded or followed by a character from the script guard set.
func isGuarded(text string, start, end int) bool {
	if start > 0 && scriptGuardPattern.MatchString(string(text[start-1])) {
		return true
	}
	if end < len(text) && scriptGuardPattern.MatchString(string(text[end])) {
		return true
	}
	return false
}
