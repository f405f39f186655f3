package event

// Type identifies the type of domain event
type Type string

const (
	TypeSubmissionCreated  Type = "submission.created"
	TypeSubmissionReviewed Type = "submission.reviewed"
	TypeReceiptRequested   Type = "receipt.requested"
	TypeReceiptReady       Type = "receipt.ready"
	TypeReceiptFailed      Type = "receipt.failed"
	TypeContentChanged     Type = "content.changed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeSubmissionCreated,
		TypeSubmissionReviewed,
		TypeReceiptRequested,
		TypeReceiptReady,
		TypeReceiptFailed,
		TypeContentChanged:
		return true
	default:
		return false
	}
}
