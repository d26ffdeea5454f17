// Package i18n loads per-locale message catalogs and resolves hint text
// through golang.org/x/text.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the locale every other locale falls back to.
const BaseLocale = "en-US"

//go:embed locales/*.yaml
var embeddedLocales embed.FS

type localeFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Bundle holds the messages of every loaded locale.
type Bundle struct {
	locales map[string]map[string]string
	tags    map[string]language.Tag
	builder *catalog.Builder
}

// NewBundle creates an empty bundle.
func NewBundle() *Bundle {
	return &Bundle{
		locales: make(map[string]map[string]string),
		tags:    make(map[string]language.Tag),
		builder: catalog.NewBuilder(catalog.Fallback(language.MustParse(BaseLocale))),
	}
}

// LoadEmbedded loads the locales shipped with the package.
func LoadEmbedded() (*Bundle, error) {
	return LoadFromFS(embeddedLocales, "locales")
}

// LoadFromFS loads every dir/<locale>.yaml file in fsys. The base locale must
// be present.
func LoadFromFS(fsys fs.FS, dir string) (*Bundle, error) {
	paths, err := fs.Glob(fsys, path.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no locale catalogs found in %s", dir)
	}
	sort.Strings(paths)

	b := NewBundle()
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read locale catalog %s: %w", p, err)
		}
		var file localeFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse locale catalog %s: %w", p, err)
		}
		fromPath := strings.TrimSuffix(path.Base(p), path.Ext(p))
		if strings.TrimSpace(file.Locale) != fromPath {
			return nil, fmt.Errorf("locale catalog %s: locale %q must match file name", p, file.Locale)
		}
		if err := b.Add(fromPath, file.Messages); err != nil {
			return nil, fmt.Errorf("locale catalog %s: %w", p, err)
		}
	}

	if !b.HasLocale(BaseLocale) {
		return nil, fmt.Errorf("base locale %s is not defined", BaseLocale)
	}
	return b, nil
}

// Add registers messages for locale. A locale can only be added once.
func (b *Bundle) Add(locale string, messages map[string]string) error {
	locale = strings.TrimSpace(locale)
	tag, err := language.Parse(locale)
	if err != nil {
		return fmt.Errorf("parse locale tag %q: %w", locale, err)
	}
	if _, exists := b.locales[locale]; exists {
		return fmt.Errorf("locale %s already loaded", locale)
	}
	if len(messages) == 0 {
		return fmt.Errorf("locale %s has no messages", locale)
	}

	keys := make([]string, 0, len(messages))
	for key := range messages {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	stored := make(map[string]string, len(messages))
	for _, key := range keys {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" {
			return fmt.Errorf("locale %s: message key cannot be blank", locale)
		}
		if err := b.builder.SetString(tag, trimmed, messages[key]); err != nil {
			return fmt.Errorf("locale %s: register %q: %w", locale, trimmed, err)
		}
		stored[trimmed] = messages[key]
	}

	b.locales[locale] = stored
	b.tags[locale] = tag
	return nil
}

// HasLocale reports whether locale was loaded.
func (b *Bundle) HasLocale(locale string) bool {
	_, ok := b.locales[strings.TrimSpace(locale)]
	return ok
}

// Locales returns the loaded locale identifiers, sorted.
func (b *Bundle) Locales() []string {
	out := make([]string, 0, len(b.locales))
	for locale := range b.locales {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Match returns the loaded locale closest to the requested one, falling back
// to BaseLocale.
func (b *Bundle) Match(requested string) string {
	tag, err := language.Parse(strings.TrimSpace(requested))
	if err != nil || !b.HasLocale(BaseLocale) {
		return BaseLocale
	}

	names := []string{BaseLocale}
	for _, locale := range b.Locales() {
		if locale != BaseLocale {
			names = append(names, locale)
		}
	}
	supported := make([]language.Tag, len(names))
	for i, name := range names {
		supported[i] = b.tags[name]
	}

	_, index, confidence := language.NewMatcher(supported).Match(tag)
	if confidence == language.No {
		return BaseLocale
	}
	return names[index]
}

// Message returns the message for key in locale, falling back to BaseLocale.
func (b *Bundle) Message(locale, key string) (string, bool) {
	resolved, ok := b.resolve(locale, key)
	if !ok {
		return "", false
	}
	return b.Printer(resolved).Sprintf(strings.TrimSpace(key)), true
}

// Printer returns an x/text printer bound to this bundle's catalog.
func (b *Bundle) Printer(locale string) *message.Printer {
	tag, ok := b.tags[strings.TrimSpace(locale)]
	if !ok {
		tag = language.MustParse(BaseLocale)
	}
	return message.NewPrinter(tag, message.Catalog(b.builder))
}

// resolve finds the locale that defines key, preferring the requested one.
func (b *Bundle) resolve(locale, key string) (string, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false
	}
	locale = strings.TrimSpace(locale)
	if _, ok := b.locales[locale][key]; ok {
		return locale, true
	}
	if _, ok := b.locales[BaseLocale][key]; ok {
		return BaseLocale, true
	}
	return "", false
}

// Content returns hint content resolved from this bundle.
func (b *Bundle) Content(locale, nameKey, descriptionKey string) *LocalizedContent {
	return &LocalizedContent{
		bundle:         b,
		locale:         b.Match(locale),
		NameKey:        nameKey,
		DescriptionKey: descriptionKey,
	}
}

// LocalizedContent resolves a hint's name and description from message keys.
// Missing keys resolve to the empty string.
type LocalizedContent struct {
	bundle         *Bundle
	locale         string
	NameKey        string
	DescriptionKey string
}

// Locale returns the locale the content resolves against.
func (c *LocalizedContent) Locale() string { return c.locale }

// Name implements quest.HintContent.
func (c *LocalizedContent) Name() string {
	name, _ := c.bundle.Message(c.locale, c.NameKey)
	return name
}

// Description implements quest.HintContent.
func (c *LocalizedContent) Description() string {
	desc, _ := c.bundle.Message(c.locale, c.DescriptionKey)
	return desc
}
