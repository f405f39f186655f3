package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/flow"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/port"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/entity"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/i18n"
)

// ErrResendTooSoon is returned when a new code is requested inside the
// resend cooldown of the previous one.
var ErrResendTooSoon = errors.New("verification code requested too soon")

// VerificationConfig tunes one-time codes
type VerificationConfig struct {
	CodeTTL        time.Duration
	MaxAttempts    int
	ResendCooldown time.Duration
	HashCost       int
}

// DefaultVerificationConfig returns a 10 minute, 5 attempt code policy
func DefaultVerificationConfig() VerificationConfig {
	return VerificationConfig{
		CodeTTL:        10 * time.Minute,
		MaxAttempts:    5,
		ResendCooldown: 30 * time.Second,
		HashCost:       bcrypt.DefaultCost,
	}
}

// Recipient is where a code is delivered
type Recipient struct {
	Phone string
	Email string
}

// VerificationService issues and checks one-time codes
type VerificationService interface {
	flow.CodeChecker
	Issue(ctx context.Context, subject string, to Recipient) error
	// Purge deletes codes that expired before the cutoff
	Purge(ctx context.Context, before time.Time) (int64, error)
}

type verificationServiceImpl struct {
	repo     port.VerificationRepository
	mailer   port.Mailer
	messages *i18n.Catalog
	config   VerificationConfig
	logger   Logger

	now      func() time.Time
	generate func() (string, error)
}

// VerificationOption configures the verification service
type VerificationOption func(*verificationServiceImpl)

// WithCodeGenerator replaces the random code source
func WithCodeGenerator(fn func() (string, error)) VerificationOption {
	return func(s *verificationServiceImpl) {
		s.generate = fn
	}
}

// WithVerificationClock replaces time.Now
func WithVerificationClock(fn func() time.Time) VerificationOption {
	return func(s *verificationServiceImpl) {
		s.now = fn
	}
}

// NewVerificationService creates a new VerificationService. A nil mailer
// delivers codes through the log.
func NewVerificationService(
	repo port.VerificationRepository,
	mailer port.Mailer,
	messages *i18n.Catalog,
	config VerificationConfig,
	logger Logger,
	opts ...VerificationOption,
) VerificationService {
	s := &verificationServiceImpl{
		repo:     repo,
		mailer:   mailer,
		messages: messages,
		config:   config,
		logger:   logger,
		now:      time.Now,
		generate: randomCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates a fresh code for subject and delivers it
func (s *verificationServiceImpl) Issue(ctx context.Context, subject string, to Recipient) error {
	now := s.now().UTC()

	latest, err := s.repo.Latest(ctx, subject)
	if err != nil {
		return fmt.Errorf("get latest code: %w", err)
	}
	if latest != nil && latest.ConsumedAt == nil && now.Sub(latest.CreatedAt.UTC()) < s.config.ResendCooldown {
		return ErrResendTooSoon
	}

	code, err := s.generate()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.config.HashCost)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}

	record := &entity.VerificationCode{
		Subject:   subject,
		CodeHash:  string(hash),
		ExpiresAt: now.Add(s.config.CodeTTL),
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return fmt.Errorf("store code: %w", err)
	}

	return s.deliver(ctx, subject, code, to)
}

func (s *verificationServiceImpl) deliver(ctx context.Context, subject, code string, to Recipient) error {
	if s.mailer == nil || to.Email == "" {
		s.logger.Info("Verification code issued (development delivery)",
			"subject", subject,
			"code", code,
		)
		return nil
	}

	locale := i18n.FromContext(ctx)
	body := s.messages.Message(locale, "verification.body", map[string]any{
		"code":    code,
		"minutes": int(s.config.CodeTTL.Minutes()),
	})
	msg := port.Email{
		To:       to.Email,
		Subject:  s.messages.Message(locale, "verification.subject", nil),
		Markdown: body,
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("Failed to deliver verification code", "subject", subject, "error", err)
		return fmt.Errorf("deliver code: %w", err)
	}

	s.logger.Info("Verification code sent", "subject", subject)
	return nil
}

// Check compares code with the latest usable code of subject and consumes
// it on a match. Every check counts against the attempt limit.
func (s *verificationServiceImpl) Check(ctx context.Context, subject, code string) (bool, error) {
	now := s.now().UTC()

	latest, err := s.repo.Latest(ctx, subject)
	if err != nil {
		return false, fmt.Errorf("get latest code: %w", err)
	}
	if latest == nil || !latest.Usable(now, s.config.MaxAttempts) {
		return false, nil
	}

	// The attempt is claimed before comparing, so parallel guesses cannot
	// exceed the limit.
	claimed, err := s.repo.ClaimAttempt(ctx, latest.ID, s.config.MaxAttempts)
	if err != nil {
		return false, fmt.Errorf("count attempt: %w", err)
	}
	if !claimed {
		return false, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(latest.CodeHash), []byte(code)); err != nil {
		s.logger.Info("Verification code mismatch", "subject", subject, "attempts", latest.Attempts+1)
		return false, nil
	}

	consumed, err := s.repo.MarkConsumed(ctx, latest.ID, now)
	if err != nil {
		return false, fmt.Errorf("consume code: %w", err)
	}
	return consumed, nil
}

// Purge deletes codes that expired before the cutoff
func (s *verificationServiceImpl) Purge(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired codes: %w", err)
	}
	return n, nil
}

// randomCode returns six decimal digits from crypto/rand
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
