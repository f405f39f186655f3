package email

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/port"
)

// HTMLRenderer converts the Markdown body of a message to HTML
type HTMLRenderer interface {
	Render(markdown string) (string, error)
}

// ResendMailer implements port.Mailer via the Resend API
type ResendMailer struct {
	client   *resend.Client
	from     string
	replyTo  string
	renderer HTMLRenderer
	logger   *zap.Logger
}

// NewResendMailer creates a new mailer sending from the given address
func NewResendMailer(apiKey, from, replyTo string, renderer HTMLRenderer, logger *zap.Logger) *ResendMailer {
	return &ResendMailer{
		client:   resend.NewClient(apiKey),
		from:     from,
		replyTo:  replyTo,
		renderer: renderer,
		logger:   logger,
	}
}

// Send renders msg and queues it for delivery. The Markdown source is sent
// as the plain-text part.
func (m *ResendMailer) Send(ctx context.Context, msg port.Email) error {
	html, err := m.renderer.Render(msg.Markdown)
	if err != nil {
		return fmt.Errorf("render email body: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    html,
		Text:    msg.Markdown,
	}
	if m.replyTo != "" {
		params.ReplyTo = m.replyTo
	}

	sent, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		m.logger.Error("Resend send failed",
			zap.String("subject", msg.Subject),
			zap.Error(err))
		return fmt.Errorf("resend send failed: %w", err)
	}

	m.logger.Info("Email sent",
		zap.String("message_id", sent.Id),
		zap.String("subject", msg.Subject))
	return nil
}
