package i18n

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/upload"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/validation"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in     string
		want   Locale
		wantOK bool
	}{
		{"en", English, true},
		{"hi", Hindi, true},
		{"hi-IN", Hindi, true},
		{" en-GB ", English, true},
		{"fr", "", false},
		{"", "", false},
		{"not a tag!", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Parse(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNegotiate(t *testing.T) {
	tests := []struct {
		header string
		want   Locale
	}{
		{"", English},
		{"hi-IN,hi;q=0.9,en;q=0.8", Hindi},
		{"en-US,en;q=0.9", English},
		{"fr-FR", English},
		{"fr;q=0.9, hi;q=0.5", Hindi},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, Negotiate(tt.header))
		})
	}
}

func TestContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, Default, FromContext(ctx))

	ctx = WithLocale(ctx, Hindi)
	assert.Equal(t, Hindi, FromContext(ctx))
}

func TestCatalog(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en.yaml": {Data: []byte("validation:\n  required: \"This field is required\"\n  min_length: \"At least {min}\"\ngreeting: Hello\nonly_en: English only\n")},
		"locales/hi.yaml": {Data: []byte("validation:\n  required: \"यह फ़ील्ड आवश्यक है\"\n  min_length: \"कम से कम {min}\"\ngreeting: नमस्ते\n")},
	}

	c, err := LoadCatalog(fsys, "locales")
	require.NoError(t, err)

	assert.Equal(t, "नमस्ते", c.Message(Hindi, "greeting", nil))
	assert.Equal(t, "English only", c.Message(Hindi, "only_en", nil))
	assert.Equal(t, "missing.key", c.Message(Hindi, "missing.key", nil))

	p := validation.Problem{Code: validation.CodeMinLength, Params: map[string]any{"min": 3}}
	assert.Equal(t, "कम से कम 3", c.Problem(Hindi, p))
	assert.Equal(t, "At least 3", c.Problem(English, p))
	assert.Equal(t, "Invalid format", c.Problem(Hindi, validation.Problem{Code: "unknown"}))

	table := c.Table(Hindi, "validation.")
	assert.Equal(t, "यह फ़ील्ड आवश्यक है", table["validation.required"])
	assert.NotContains(t, table, "greeting")
	assert.Equal(t, []string{"greeting", "validation.min_length", "validation.required"}, c.Keys(Hindi))
}

func TestLoadCatalog_MissingLocale(t *testing.T) {
	fsys := fstest.MapFS{"locales/en.yaml": {Data: []byte("a: b\n")}}

	_, err := LoadCatalog(fsys, "locales")

	assert.Error(t, err)
}

func TestCatalog_Rejection(t *testing.T) {
	c := NewCatalog(map[Locale]map[string]string{
		English: {
			"upload.TooLarge": "File must be smaller than {limit} MB",
			"upload.TooMany":  "At most {limit} files",
		},
		Hindi: {"upload.TooLarge": "फ़ाइल {limit} MB से छोटी होनी चाहिए"},
	})

	tooLarge := &upload.Rejection{Reason: upload.TooLarge, Limit: upload.DefaultMaxBytes}
	assert.Equal(t, "File must be smaller than 5 MB", c.Rejection(English, tooLarge))
	assert.Equal(t, "फ़ाइल 5 MB से छोटी होनी चाहिए", c.Rejection(Hindi, tooLarge))
	assert.Equal(t, "At most 5 files", c.Rejection(Hindi, &upload.Rejection{Reason: upload.TooMany, Limit: 5}))
}
