// Package locale picks the locale key used to select date grammars.
package locale

import "strings"

// Default is the key used when no locale signal is present.
const Default = "en"

// Source names which signal produced a resolved key.
type Source string

const (
	SourceOverride Source = "override"
	SourcePage     Source = "page"
	SourceAmbient  Source = "ambient"
	SourceDefault  Source = "default"
)

// Sources holds the locale signals of one document, highest priority first.
type Sources struct {
	Override string // explicit override (settings or ?locale=)
	Page     string // <html lang="...">
	Ambient  string // host locale
}

// Resolve returns the locale key and the source it came from.
// The first non-empty signal wins and is reduced to its primary subtag.
func (s Sources) Resolve() (string, Source) {
	candidates := []struct {
		value  string
		source Source
	}{
		{s.Override, SourceOverride},
		{s.Page, SourcePage},
		{s.Ambient, SourceAmbient},
	}
	for _, c := range candidates {
		if v := strings.TrimSpace(c.value); v != "" {
			return Key(v), c.source
		}
	}
	return Default, SourceDefault
}

// Resolve is shorthand for Sources{...}.Resolve without the source.
func Resolve(override, pageLang, ambient string) string {
	key, _ := Sources{Override: override, Page: pageLang, Ambient: ambient}.Resolve()
	return key
}

// Key reduces a language tag to its lower-cased primary subtag ("pl-PL" -> "pl").
func Key(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexByte(tag, '-'); i >= 0 {
		tag = tag[:i]
	}
	tag = strings.ToLower(tag)
	if tag == "" {
		return Default
	}
	return tag
}

// FromEnv converts a POSIX locale value such as "pl_PL.UTF-8" or "de_DE@euro"
// into a language tag ("pl-PL"). "C" and "POSIX" yield an empty string.
func FromEnv(value string) string {
	if i := strings.IndexAny(value, ".@"); i >= 0 {
		value = value[:i]
	}
	value = strings.TrimSpace(value)
	if value == "" || value == "C" || value == "POSIX" {
		return ""
	}
	return strings.ReplaceAll(value, "_", "-")
}
