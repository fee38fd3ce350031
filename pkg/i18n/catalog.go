package i18n

import (
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/samber/lo"
	yaml "go.yaml.in/yaml/v3"
)

// Translator resolves a message code into text for one locale. Unknown codes come
// back unchanged.
type Translator interface {
	T(code string, params Params) string
}

// Catalog maps locale -> dotted code -> template. Templates reference params as
// {{name}}. A Catalog is filled at startup and read-only afterwards.
type Catalog struct {
	fallback string
	messages map[string]map[string]string
}

// NewCatalog creates an empty catalog whose lookups end at fallback.
func NewCatalog(fallback string) *Catalog {
	return &Catalog{fallback: normalizeLocale(fallback), messages: map[string]map[string]string{}}
}

// Add merges entries into locale, replacing existing codes.
func (c *Catalog) Add(locale string, entries map[string]string) {
	locale = normalizeLocale(locale)
	if locale == "" {
		return
	}
	if c.messages[locale] == nil {
		c.messages[locale] = make(map[string]string, len(entries))
	}
	for code, text := range entries {
		if code = strings.TrimSpace(code); code != "" {
			c.messages[locale][code] = text
		}
	}
}

// Load reads every <locale>.yaml, .yml or .json file of dir in fsys. Nested keys are
// joined with dots.
func (c *Catalog) Load(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read message catalog %s: %w", dir, err)
	}
	for _, entry := range entries {
		ext := strings.ToLower(path.Ext(entry.Name()))
		if entry.IsDir() || !slices.Contains([]string{".yaml", ".yml", ".json"}, ext) {
			continue
		}
		name := path.Join(dir, entry.Name())
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read message catalog %s: %w", name, err)
		}
		// JSON documents are valid YAML, so one decoder covers both.
		var tree map[string]any
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return fmt.Errorf("decode message catalog %s: %w", name, err)
		}
		c.Add(strings.TrimSuffix(entry.Name(), path.Ext(entry.Name())), flatten(tree, "", map[string]string{}))
	}
	return nil
}

// Locales lists the loaded locales in order.
func (c *Catalog) Locales() []string {
	locales := lo.Keys(c.messages)
	slices.Sort(locales)
	return locales
}

// Missing lists the codes of the fallback locale that locale does not translate.
func (c *Catalog) Missing(locale string) []string {
	own := c.messages[normalizeLocale(locale)]
	missing := lo.Filter(lo.Keys(c.messages[c.fallback]), func(code string, _ int) bool {
		_, ok := own[code]
		return !ok
	})
	slices.Sort(missing)
	return missing
}

// ForLocale returns a translator trying locale, its base language, then the fallback.
func (c *Catalog) ForLocale(locale string) *Localizer {
	locale = normalizeLocale(locale)
	chain := lo.Uniq(lo.Compact([]string{locale, baseLocale(locale), c.fallback}))
	tables := make([]map[string]string, 0, len(chain))
	for _, l := range chain {
		if table, ok := c.messages[l]; ok {
			tables = append(tables, table)
		}
	}
	if locale == "" {
		locale = c.fallback
	}
	return &Localizer{locale: locale, tables: tables}
}

// Localizer is a Translator bound to one locale.
type Localizer struct {
	locale string
	tables []map[string]string
}

// Locale is the locale the Localizer was built for.
func (l *Localizer) Locale() string { return l.locale }

func (l *Localizer) T(code string, params Params) string {
	code = strings.TrimSpace(code)
	for _, table := range l.tables {
		if template, ok := table[code]; ok {
			return render(template, params)
		}
	}
	return code
}

func render(template string, params Params) string {
	if len(params) == 0 || !strings.Contains(template, "{{") {
		return template
	}
	pairs := make([]string, 0, 2*len(params))
	for _, name := range slices.Sorted(maps.Keys(params)) {
		pairs = append(pairs, "{{"+name+"}}", fmt.Sprint(params[name]))
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func flatten(tree map[string]any, prefix string, out map[string]string) map[string]string {
	for key, value := range tree {
		if prefix != "" {
			key = prefix + "." + key
		}
		switch v := value.(type) {
		case map[string]any:
			flatten(v, key, out)
		case string:
			out[key] = v
		}
	}
	return out
}

func normalizeLocale(locale string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(locale), "_", "-"))
}

func baseLocale(locale string) string {
	base, _, _ := strings.Cut(locale, "-")
	return base
}

// LoadDir builds a catalog from the locale files of dir.
func LoadDir(dir, fallback string) (*Catalog, error) {
	c := NewCatalog(fallback)
	if err := c.Load(os.DirFS(dir), "."); err != nil {
		return nil, err
	}
	return c, nil
}
