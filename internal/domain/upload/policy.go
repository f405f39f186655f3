package upload

import (
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Reason names the constraint a rejected attachment failed.
type Reason string

const (
	UnsupportedType Reason = "UnsupportedType"
	TooLarge        Reason = "TooLarge"
	TooMany         Reason = "TooMany"
	Unreadable      Reason = "Unreadable"
)

// DefaultMaxBytes is the 5 MB ceiling of the registration and application flows.
const DefaultMaxBytes int64 = 5 * 1024 * 1024

// Rejection is returned when an attachment violates the policy.
type Rejection struct {
	Reason Reason
	Name   string
	Limit  int64
	Detail string
}

func (r *Rejection) Error() string {
	if r.Detail != "" {
		return fmt.Sprintf("%s rejected (%s): %s", r.Name, r.Reason, r.Detail)
	}
	return fmt.Sprintf("%s rejected (%s)", r.Name, r.Reason)
}

// Is lets errors.Is match on the reason alone.
func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	return ok && t.Name == "" && t.Reason == r.Reason
}

// Inspector opens a file's content to confirm it is usable.
type Inspector interface {
	Inspect(mimeType string, content []byte) error
}

// Policy constrains the attachments a step accepts.
type Policy struct {
	AllowedTypes []string
	MaxBytes     int64
	MaxFiles     int
	Inspector    Inspector
}

// DefaultPolicy accepts PDF, JPEG and PNG files up to 5 MB, at most five of them.
func DefaultPolicy() Policy {
	return Policy{
		AllowedTypes: []string{"application/pdf", "image/jpeg", "image/png"},
		MaxBytes:     DefaultMaxBytes,
		MaxFiles:     5,
	}
}

// Check validates the declared type, then the size, then that the content is
// non-empty and its sniffed type agrees with the declared one. An Inspector,
// when set, runs last.
func (p Policy) Check(a *Attachment) error {
	declared := normalizeType(a.MimeType)
	if !p.allows(declared) {
		return &Rejection{Reason: UnsupportedType, Name: a.Name, Detail: a.MimeType}
	}

	if p.MaxBytes > 0 && a.SizeBytes > p.MaxBytes {
		return &Rejection{Reason: TooLarge, Name: a.Name, Limit: p.MaxBytes, Detail: fmt.Sprintf("%d bytes", a.SizeBytes)}
	}

	content := a.Content()
	if len(content) == 0 {
		return &Rejection{Reason: Unreadable, Name: a.Name, Detail: "empty file"}
	}
	detected := mimetype.Detect(content)
	if !detected.Is(declared) {
		return &Rejection{Reason: UnsupportedType, Name: a.Name, Detail: "content is " + detected.String()}
	}
	if p.Inspector != nil {
		if err := p.Inspector.Inspect(declared, content); err != nil {
			return &Rejection{Reason: Unreadable, Name: a.Name, Detail: err.Error()}
		}
	}

	return nil
}

func (p Policy) allows(mimeType string) bool {
	for _, t := range p.AllowedTypes {
		if strings.EqualFold(t, mimeType) {
			return true
		}
	}
	return false
}

func normalizeType(t string) string {
	mediaType, _, err := mime.ParseMediaType(t)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(t))
	}
	return mediaType
}
