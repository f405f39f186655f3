package i18n

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/upload"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/validation"
)

// Catalog holds flat message tables per locale. Keys missing from a locale
// fall back to English, then to the key itself.
type Catalog struct {
	messages map[Locale]map[string]string
}

// LoadCatalog reads <locale>.yaml for every supported locale from fsys. Nested
// YAML maps are flattened into dotted keys.
func LoadCatalog(fsys fs.FS, dir string) (*Catalog, error) {
	c := &Catalog{messages: make(map[Locale]map[string]string, len(Supported))}
	for _, l := range Supported {
		data, err := fs.ReadFile(fsys, path.Join(dir, string(l)+".yaml"))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s messages: %w", l, err)
		}
		var tree map[string]any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("failed to parse %s messages: %w", l, err)
		}
		flat := make(map[string]string)
		flatten("", tree, flat)
		c.messages[l] = flat
	}
	return c, nil
}

// NewCatalog builds a catalog from in-memory tables.
func NewCatalog(messages map[Locale]map[string]string) *Catalog {
	return &Catalog{messages: messages}
}

func flatten(prefix string, tree map[string]any, out map[string]string) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case nil:
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// Lookup returns the raw message template for key.
func (c *Catalog) Lookup(l Locale, key string) (string, bool) {
	if msg, ok := c.messages[l][key]; ok {
		return msg, true
	}
	if msg, ok := c.messages[English][key]; ok {
		return msg, true
	}
	return "", false
}

// Message renders key for l with {name} params.
func (c *Catalog) Message(l Locale, key string, params map[string]any) string {
	tmpl, ok := c.Lookup(l, key)
	if !ok {
		return key
	}
	return validation.Interpolate(tmpl, params)
}

// Problem renders a validation problem for l. Unknown codes fall back to the
// English text of the problem itself.
func (c *Catalog) Problem(l Locale, p validation.Problem) string {
	tmpl, ok := c.Lookup(l, "validation."+p.Code)
	if !ok {
		return p.Message()
	}
	return validation.Interpolate(tmpl, p.Params)
}

// Rejection renders an attachment rejection for l. Byte limits are shown in
// whole megabytes.
func (c *Catalog) Rejection(l Locale, r *upload.Rejection) string {
	limit := r.Limit
	if r.Reason == upload.TooLarge {
		limit = r.Limit / (1024 * 1024)
	}
	return c.Message(l, "upload."+string(r.Reason), map[string]any{"limit": limit})
}

// Table returns a copy of the messages under prefix for l, with English
// filling gaps. An empty prefix returns everything.
func (c *Catalog) Table(l Locale, prefix string) map[string]string {
	out := make(map[string]string)
	for _, loc := range []Locale{English, l} {
		for k, v := range c.messages[loc] {
			if prefix == "" || strings.HasPrefix(k, prefix) {
				out[k] = v
			}
		}
	}
	return out
}

// Keys lists the keys defined for l itself, without fallback.
func (c *Catalog) Keys(l Locale) []string {
	keys := make([]string, 0, len(c.messages[l]))
	for k := range c.messages[l] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
