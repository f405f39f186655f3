package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/dispatcher"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/port"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/event"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/i18n"
)

// NotificationService mails applicants about their submissions
type NotificationService interface {
	NotifySubmissionCreated(ctx context.Context, evt *event.Event) error
	NotifySubmissionReviewed(ctx context.Context, evt *event.Event) error
	// Register subscribes the notification handlers to d
	Register(d dispatcher.Dispatcher)
}

type notificationServiceImpl struct {
	mailer   port.Mailer
	messages *i18n.Catalog
	logger   Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(mailer port.Mailer, messages *i18n.Catalog, logger Logger) NotificationService {
	return &notificationServiceImpl{
		mailer:   mailer,
		messages: messages,
		logger:   logger,
	}
}

// Register subscribes the notification handlers to d
func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	d.SubscribeDescribed(event.TypeSubmissionCreated, "notify-submission-created",
		"mails the applicant a confirmation with the reference id", s.NotifySubmissionCreated)
	d.SubscribeDescribed(event.TypeSubmissionReviewed, "notify-submission-reviewed",
		"mails the applicant the review decision", s.NotifySubmissionReviewed)
}

// NotifySubmissionCreated sends the confirmation mail. Submissions without an
// email address are skipped.
func (s *notificationServiceImpl) NotifySubmissionCreated(ctx context.Context, evt *event.Event) error {
	to := evt.GetPayloadString("email")
	if to == "" {
		s.logger.Info("No email address, skipping confirmation", "reference_id", evt.ReferenceID)
		return nil
	}

	locale := payloadLocale(evt)
	params := map[string]any{
		"reference": evt.ReferenceID,
		"name":      displayName(evt),
	}
	msg := port.Email{
		To:       to,
		Subject:  s.messages.Message(locale, "notification.confirmation_subject", params),
		Markdown: s.messages.Message(locale, "notification.confirmation_body", params),
	}
	return s.send(ctx, evt, msg)
}

// NotifySubmissionReviewed sends the review decision
func (s *notificationServiceImpl) NotifySubmissionReviewed(ctx context.Context, evt *event.Event) error {
	to := evt.GetPayloadString("email")
	if to == "" {
		s.logger.Info("No email address, skipping review notice", "reference_id", evt.ReferenceID)
		return nil
	}

	locale := payloadLocale(evt)
	status := evt.GetPayloadString("status")
	params := map[string]any{
		"reference": evt.ReferenceID,
		"name":      displayName(evt),
		"status":    s.messages.Message(locale, "notification.status."+status, nil),
		"note":      evt.GetPayloadString("note"),
	}
	msg := port.Email{
		To:       to,
		Subject:  s.messages.Message(locale, "notification.review_subject", params),
		Markdown: strings.TrimSpace(s.messages.Message(locale, "notification.review_body", params)),
	}
	return s.send(ctx, evt, msg)
}

func (s *notificationServiceImpl) send(ctx context.Context, evt *event.Event, msg port.Email) error {
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("Failed to send notification",
			"reference_id", evt.ReferenceID,
			"event_type", evt.Type,
			"error", err,
		)
		return fmt.Errorf("send notification: %w", err)
	}

	s.logger.Info("Notification sent",
		"reference_id", evt.ReferenceID,
		"event_type", evt.Type,
	)
	return nil
}

func payloadLocale(evt *event.Event) i18n.Locale {
	if l, ok := i18n.Parse(evt.GetPayloadString("locale")); ok {
		return l
	}
	return i18n.Default
}

func displayName(evt *event.Event) string {
	if name := strings.TrimSpace(evt.GetPayloadString("name")); name != "" {
		return name
	}
	return "friend"
}
