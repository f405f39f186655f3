// Package assets embeds the built-in content defaults and message catalogs.
package assets

import "embed"

// FS holds content/defaults.yaml and locales/<locale>.yaml.
//
//go:embed content/*.yaml locales/*.yaml
var FS embed.FS

const (
	DefaultsPath = "content/defaults.yaml"
	LocalesDir   = "locales"
)
