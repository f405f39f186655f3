// Package upload implements the optional file-attachment step of the wizard
// flows: allow-listed types, a size ceiling, replace and remove before commit.
package upload

import (
	"sync"

	"github.com/google/uuid"
)

// Attachment is one selected file. Its content handle lives until Release.
type Attachment struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	MimeType  string `json:"mime_type"`

	mu      sync.Mutex
	content []byte
}

// NewAttachment wraps selected file bytes. The declared MIME type is what the
// browser reported; Policy.Check verifies it against the content.
func NewAttachment(name, mimeType string, content []byte) *Attachment {
	return &Attachment{
		ID:        uuid.NewString(),
		Name:      name,
		SizeBytes: int64(len(content)),
		MimeType:  mimeType,
		content:   content,
	}
}

// Content returns the file bytes, or nil after Release.
func (a *Attachment) Content() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.content
}

// Released reports whether the handle has been dropped.
func (a *Attachment) Released() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.content == nil
}

// Release drops the content handle.
func (a *Attachment) Release() {
	a.mu.Lock()
	a.content = nil
	a.mu.Unlock()
}

// Detach returns an attachment with the same id and metadata holding its own
// handle on the content. Releasing either one leaves the other readable.
func (a *Attachment) Detach() *Attachment {
	a.mu.Lock()
	defer a.mu.Unlock()
	return &Attachment{
		ID:        a.ID,
		Name:      a.Name,
		SizeBytes: a.SizeBytes,
		MimeType:  a.MimeType,
		content:   a.content,
	}
}
