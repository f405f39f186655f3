package document

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{G: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestInspector_Images(t *testing.T) {
	i := NewInspector(0, zap.NewNop())

	assert.NoError(t, i.Inspect("image/png", tinyPNG(t)))
	assert.Error(t, i.Inspect("image/png", []byte("\x89PNG\r\n\x1a\ntruncated")))
	assert.Error(t, i.Inspect("image/jpeg", []byte{0xFF, 0xD8, 0xFF}))
}

func TestInspector_BrokenPDF(t *testing.T) {
	i := NewInspector(0, zap.NewNop())
	assert.Error(t, i.Inspect("application/pdf", []byte("%PDF-1.4\nnot really a pdf")))
}

func TestInspector_UnknownTypePasses(t *testing.T) {
	i := NewInspector(0, zap.NewNop())
	assert.NoError(t, i.Inspect("text/plain", []byte("hello")))
}
