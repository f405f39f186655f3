package email

import (
	"context"

	"go.uber.org/zap"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/port"
)

// LogMailer implements port.Mailer by logging messages. It is used when no
// Resend key is configured.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a new logging mailer
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs msg at info level
func (m *LogMailer) Send(_ context.Context, msg port.Email) error {
	m.logger.Info("Email (not sent, no mail provider configured)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Markdown))
	return nil
}
