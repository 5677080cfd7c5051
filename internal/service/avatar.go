package service

import (
	"context"
	"io"
)

// AvatarStorage defines the interface for storing user avatar images.
type AvatarStorage interface {
	// Upload stores the object under the given key and returns its public URL.
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}
