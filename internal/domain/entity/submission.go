package entity

import "time"

// Submission is a completed wizard stored as a document: the submitted fields
// are kept verbatim as JSON, phone and email are lifted out for lookups.
type Submission struct {
	ID          int64             `json:"id"`
	ReferenceID string            `json:"reference_id"`
	Flow        string            `json:"flow"`
	Status      string            `json:"status"`
	Phone       string            `json:"phone,omitempty"`
	Email       string            `json:"email,omitempty"`
	Locale      string            `json:"locale"`
	Fields      map[string]string `json:"fields"`
	ReviewNote  string            `json:"review_note,omitempty"`
	SubmittedAt time.Time         `json:"submitted_at"`
	ReviewedAt  *time.Time        `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`

	Attachments []*Attachment `json:"attachments,omitempty"`
}
