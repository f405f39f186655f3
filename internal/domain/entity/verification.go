package entity

import "time"

// VerificationCode is an issued one-time code. Only its bcrypt hash is stored.
type VerificationCode struct {
	ID         int64      `json:"id"`
	Subject    string     `json:"subject"`
	CodeHash   string     `json:"-"`
	Attempts   int        `json:"attempts"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Usable reports whether the code can still be checked at now
func (v *VerificationCode) Usable(now time.Time, maxAttempts int) bool {
	return v.ConsumedAt == nil && now.Before(v.ExpiresAt) && v.Attempts < maxAttempts
}
