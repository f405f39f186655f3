package port

import (
	"context"
	"time"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/wizard"
)

// Email is an outgoing message. HTML is rendered from Markdown by the sender.
type Email struct {
	To       string
	Subject  string
	Markdown string
}

// Mailer defines email delivery operations
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// Translator fills missing Hindi text for admin-created content
type Translator interface {
	TranslateToHindi(ctx context.Context, texts []string) ([]string, error)
}

// ReceiptRenderer builds the downloadable receipt document
type ReceiptRenderer interface {
	Render(ctx context.Context, data ReceiptData) ([]byte, error)
	Extension() string
	ContentType() string
}

// ReceiptData is everything a receipt shows. Labels are already localized;
// FieldOrder lists the field names in display order.
type ReceiptData struct {
	ReferenceID string
	Flow        string
	Locale      string
	SubmittedAt time.Time
	Fields      wizard.Fields
	FieldOrder  []string
	Labels      map[string]string
}

// MarkdownRenderer converts page Markdown into safe HTML
type MarkdownRenderer interface {
	Render(markdown string) (string, error)
}
