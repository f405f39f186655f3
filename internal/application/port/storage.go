package port

import (
	"context"
	"fmt"
	"path"
)

// FileStorage keeps attachment and receipt files under slash-separated
// relative paths
type FileStorage interface {
	Save(ctx context.Context, path string, content []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) bool
	// Delete removes path; a missing file is not an error
	Delete(ctx context.Context, path string) error
}

// AttachmentPath is where the index-th attachment of a submission lives.
// name must already be sanitized.
func AttachmentPath(referenceID string, index int, name string) string {
	return path.Join("submissions", referenceID, fmt.Sprintf("%02d-%s", index, name))
}

// ReceiptPath is where the generated receipt of a submission lives
func ReceiptPath(referenceID, extension string) string {
	return path.Join("receipts", referenceID+extension)
}
