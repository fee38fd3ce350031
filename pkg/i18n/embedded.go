package i18n

import (
	"embed"
	"strings"
)

//go:embed locales/*.yaml
var builtin embed.FS

// Supported lists the locales shipped with the service.
var Supported = []string{"en", "tr"}

// DefaultCatalog returns the built-in catalog. Files in overrideDir, when set, replace
// individual codes.
func DefaultCatalog(fallback, overrideDir string) (*Catalog, error) {
	catalog := NewCatalog(fallback)
	if err := catalog.Load(builtin, "locales"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(overrideDir) == "" {
		return catalog, nil
	}
	override, err := LoadDir(overrideDir, fallback)
	if err != nil {
		return nil, err
	}
	for locale, entries := range override.messages {
		catalog.Add(locale, entries)
	}
	return catalog, nil
}
