package openai

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

// PromptConfig holds the translation prompt and model parameters
type PromptConfig struct {
	Translation struct {
		Temperature  float32 `yaml:"temperature"`
		MaxTokens    int     `yaml:"max_tokens"`
		System       string  `yaml:"system"`
		UserTemplate string  `yaml:"user_template"`
	} `yaml:"translation"`
}

const defaultSystemPrompt = `You translate short website texts of an Indian farmers' movement from English into Hindi (Devanagari). Keep names of people and places transliterated, keep Markdown formatting and numbers unchanged. Always respond with valid JSON.`

const defaultUserTemplate = `Translate each entry of the following JSON array into Hindi.
Respond with {"translations": [...]} holding exactly {{.Count}} strings in the same order.

{{.Texts}}`

// DefaultPrompts returns the built-in translation prompt
func DefaultPrompts() *PromptConfig {
	p := &PromptConfig{}
	p.Translation.Temperature = 0.2
	p.Translation.MaxTokens = 2048
	p.Translation.System = defaultSystemPrompt
	p.Translation.UserTemplate = defaultUserTemplate
	return p
}

// LoadPrompts loads prompt configuration from a YAML file. Keys missing from
// the file keep their built-in values.
func LoadPrompts(promptsPath string) (*PromptConfig, error) {
	data, err := os.ReadFile(promptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	prompts := DefaultPrompts()
	if err := yaml.Unmarshal(data, prompts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}

	return prompts, nil
}

// renderTemplate renders a template with provided data
func renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("prompt").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
