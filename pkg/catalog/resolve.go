package catalog

import (
	_ "embed"

	"github.com/felixgeelhaar/questlog/pkg/domain/quest"
	"github.com/felixgeelhaar/questlog/pkg/i18n"
)

//go:embed sample.yaml
var sampleYAML []byte

// Sample returns the raw sample catalog written by "questctl init".
func Sample() []byte {
	out := make([]byte, len(sampleYAML))
	copy(out, sampleYAML)
	return out
}

// LocalizedResolver resolves hints with message keys through bundle, and
// hints with literal text as static content.
func LocalizedResolver(bundle *i18n.Bundle, locale string) ContentResolver {
	return func(h HintDef) quest.HintContent {
		if h.Title != "" || bundle == nil || (h.NameKey == "" && h.DescriptionKey == "") {
			return StaticResolver(h)
		}
		return bundle.Content(locale, h.NameKey, h.DescriptionKey)
	}
}
