// Package storage provides durable object storage for submitted images.
// It defines the ImageStore interface, an S3-backed implementation, and
// an in-memory implementation suitable for testing and development.
package storage

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrFileTooLarge       = errors.New("image exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("only image content types are allowed")
	ErrMissingFileName    = errors.New("file name is required")
)

// ImageStore uploads image payloads and returns stable public URLs.
type ImageStore interface {
	// Upload stores the payload and returns the URL under which it is
	// reachable. The filename is used to derive the object key.
	Upload(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

// ValidImageContentType accepts the image/* MIME family.
func ValidImageContentType(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}
