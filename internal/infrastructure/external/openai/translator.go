package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Translator implements port.Translator using OpenAI chat completions
type Translator struct {
	client  *openai.Client
	model   string
	prompts *PromptConfig
	timeout time.Duration
	logger  *zap.Logger
}

// NewTranslator creates a new OpenAI translator. An empty baseURL uses the
// public API; prompts may be nil for the built-in prompt.
func NewTranslator(apiKey, baseURL, model string, prompts *PromptConfig, logger *zap.Logger) *Translator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	return &Translator{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		prompts: prompts,
		logger:  logger,
	}
}

// WithTimeout bounds every translation request
func (t *Translator) WithTimeout(d time.Duration) *Translator {
	t.timeout = d
	return t
}

type translationResponse struct {
	Translations []string `json:"translations"`
}

// TranslateToHindi translates texts in one request. The result has the same
// length and order as texts.
func (t *Translator) TranslateToHindi(ctx context.Context, texts []string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	encoded, err := json.Marshal(texts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode texts: %w", err)
	}
	prompt, err := renderTemplate(t.prompts.Translation.UserTemplate, map[string]interface{}{
		"Count": len(texts),
		"Texts": string(encoded),
	})
	if err != nil {
		return nil, err
	}

	t.logger.Debug("Requesting Hindi translation", zap.Int("texts", len(texts)))

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       t.model,
		Temperature: t.prompts.Translation.Temperature,
		MaxTokens:   t.prompts.Translation.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: t.prompts.Translation.System,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		t.logger.Error("OpenAI API call failed", zap.Error(err))
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content
	result, err := parseTranslations(content)
	if err != nil {
		t.logger.Error("Failed to parse OpenAI response",
			zap.Error(err),
			zap.String("content", content))
		return nil, err
	}
	if len(result) != len(texts) {
		return nil, fmt.Errorf("expected %d translations, got %d", len(texts), len(result))
	}

	t.logger.Info("Hindi translation completed", zap.Int("texts", len(texts)))
	return result, nil
}

// parseTranslations reads the response, falling back to the first JSON
// object when the model wrapped it in prose or a code block
func parseTranslations(content string) ([]string, error) {
	var out translationResponse
	if err := json.Unmarshal([]byte(content), &out); err == nil {
		return out.Translations, nil
	}

	jsonStr := extractJSON(content)
	if jsonStr == "" {
		return nil, fmt.Errorf("failed to parse response: no JSON object")
	}
	if err := json.Unmarshal([]byte(jsonStr), &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return out.Translations, nil
}

// extractJSON extracts the first JSON object from content
func extractJSON(content string) string {
	start := findJSONStart(content)
	if start < 0 {
		return ""
	}
	end := findJSONEnd(content, start)
	if end <= start {
		return ""
	}
	return content[start:end]
}

// findJSONStart finds the start of JSON content in a string
func findJSONStart(content string) int {
	for i := 0; i < len(content); i++ {
		if content[i] == '{' {
			return i
		}
	}
	return -1
}

// findJSONEnd finds the end of the JSON object starting at start
func findJSONEnd(content string, start int) int {
	if start < 0 || start >= len(content) || content[start] != '{' {
		return -1
	}

	depth := 0
	inString := false
	escapeNext := false

	for i := start; i < len(content); i++ {
		char := content[i]

		if escapeNext {
			escapeNext = false
			continue
		}
		if char == '\\' {
			escapeNext = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch char {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}

	return -1
}
