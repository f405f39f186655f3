package entity

import "time"

// Receipt tracks the generated confirmation document of a submission
type Receipt struct {
	ID           int64             `json:"id"`
	ReferenceID  string            `json:"reference_id"`
	Status       string            `json:"status"`
	Snapshot     map[string]string `json:"snapshot"`
	FilePath     string            `json:"file_path,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Attempts     int               `json:"attempts"`
	GeneratedAt  *time.Time        `json:"generated_at,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// IsRetryable reports whether a manual retry may be requested
func (r *Receipt) IsRetryable() bool {
	return r.Status == ReceiptStatusFailed
}
