package entity

import "time"

// Attachment is a stored file belonging to a submission
type Attachment struct {
	ID           int64     `json:"id"`
	SubmissionID int64     `json:"submission_id"`
	FileName     string    `json:"file_name"`
	MimeType     string    `json:"mime_type"`
	FileSize     int64     `json:"file_size"`
	FilePath     string    `json:"file_path"`
	CreatedAt    time.Time `json:"created_at"`
}
