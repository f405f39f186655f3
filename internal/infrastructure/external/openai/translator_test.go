package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chatServer(t *testing.T, reply string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req["model"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"choices": []map[string]interface{}{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": reply},
			}},
		})
	}))
}

func TestTranslator_TranslateToHindi(t *testing.T) {
	srv := chatServer(t, `{"translations":["किसान","दिल्ली मार्च"]}`, http.StatusOK)
	defer srv.Close()

	tr := NewTranslator("test-key", srv.URL+"/v1", "gpt-4o-mini", nil, zap.NewNop())
	out, err := tr.TranslateToHindi(context.Background(), []string{"Farmer", "Delhi march"})
	require.NoError(t, err)
	assert.Equal(t, []string{"किसान", "दिल्ली मार्च"}, out)
}

func TestTranslator_CountMismatch(t *testing.T) {
	srv := chatServer(t, `{"translations":["किसान"]}`, http.StatusOK)
	defer srv.Close()

	tr := NewTranslator("test-key", srv.URL+"/v1", "gpt-4o-mini", nil, zap.NewNop())
	_, err := tr.TranslateToHindi(context.Background(), []string{"Farmer", "Delhi march"})
	assert.ErrorContains(t, err, "expected 2 translations")
}

func TestTranslator_APIError(t *testing.T) {
	srv := chatServer(t, "", http.StatusTooManyRequests)
	defer srv.Close()

	tr := NewTranslator("test-key", srv.URL+"/v1", "gpt-4o-mini", nil, zap.NewNop())
	_, err := tr.TranslateToHindi(context.Background(), []string{"Farmer"})
	assert.Error(t, err)
}

func TestTranslator_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	tr := NewTranslator("test-key", srv.URL+"/v1", "gpt-4o-mini", nil, zap.NewNop()).WithTimeout(20 * time.Millisecond)
	_, err := tr.TranslateToHindi(context.Background(), []string{"Farmer"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTranslator_Empty(t *testing.T) {
	tr := NewTranslator("test-key", "http://127.0.0.1:1", "gpt-4o-mini", nil, zap.NewNop())
	out, err := tr.TranslateToHindi(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestParseTranslations(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
		wantErr bool
	}{
		{name: "plain", content: `{"translations":["क"]}`, want: []string{"क"}},
		{name: "code block", content: "Here you go:\n```json\n{\"translations\":[\"ख\"]}\n```", want: []string{"ख"}},
		{name: "braces in strings", content: `note {"translations":["{x}"]} end`, want: []string{"{x}"}},
		{name: "no json", content: "sorry", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTranslations(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadPrompts_KeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("translation:\n  temperature: 0.5\n"), 0o644))

	p, err := LoadPrompts(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p.Translation.Temperature, 0.0001)
	assert.Equal(t, defaultSystemPrompt, p.Translation.System)
}
