package document

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// Inspector implements upload.Inspector. PDFs are opened with MuPDF and must
// have at least one page; images must decode their header.
type Inspector struct {
	maxPages int
	logger   *zap.Logger
}

// NewInspector creates a new document inspector. maxPages of zero allows any
// page count.
func NewInspector(maxPages int, logger *zap.Logger) *Inspector {
	return &Inspector{
		maxPages: maxPages,
		logger:   logger,
	}
}

// Inspect confirms content can be opened as mimeType
func (i *Inspector) Inspect(mimeType string, content []byte) error {
	switch mimeType {
	case "application/pdf":
		return i.inspectPDF(content)
	case "image/jpeg", "image/png":
		return inspectImage(content)
	default:
		return nil
	}
}

func (i *Inspector) inspectPDF(content []byte) error {
	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		i.logger.Debug("PDF could not be opened", zap.Error(err))
		return fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages == 0 {
		return fmt.Errorf("PDF has no pages")
	}
	if i.maxPages > 0 && pages > i.maxPages {
		return fmt.Errorf("PDF has %d pages, at most %d allowed", pages, i.maxPages)
	}

	// Rendering the first page catches files whose page tree is broken
	if _, err := doc.Image(0); err != nil {
		return fmt.Errorf("failed to render first page: %w", err)
	}
	return nil
}

func inspectImage(content []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("image has no pixels")
	}
	return nil
}
