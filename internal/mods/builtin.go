package mods

import (
	"regexp"

	"github.com/divortio/stealthproxy/internal/htmlstream"
)

// builtins are the mods enabled purely by a MOD_<id> environment flag —
// no manifest entry is needed, so each carries its own DefaultArgs.
var builtins = []Mod{
	{
		ID:             "strip_watermark",
		Selector:       "text",
		DomainPattern:  "*",
		HandlerFactory: stripWatermarkFactory,
		DefaultArgs:    map[string]string{"phrase": "Powered by"},
	},
	{
		ID:             "strip_copyright",
		Selector:       "text",
		DomainPattern:  "*",
		HandlerFactory: stripCopyrightFactory,
		DefaultArgs:    nil,
	},
}

// stripWatermarkFactory removes a known attribution phrase and the rest
// of its containing line, e.g. "Powered by Example Inc." -> "".
func stripWatermarkFactory(args map[string]string) (htmlstream.TextMod, error) {
	phrase := args["phrase"]
	if phrase == "" {
		phrase = "Powered by"
	}
	re := regexp.MustCompile(regexp.QuoteMeta(phrase) + `[^<\n]*`)
	return htmlstream.TextMod{
		Pattern: re,
		Replace: func(string) string { return "" },
	}, nil
}

var copyrightPattern = regexp.MustCompile(`(?:©|&copy;)\s*\d{4}[^<\n]*`)

func stripCopyrightFactory(map[string]string) (htmlstream.TextMod, error) {
	return htmlstream.TextMod{
		Pattern: copyrightPattern,
		Replace: func(string) string { return "" },
	}, nil
}
