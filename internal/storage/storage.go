package storage

import (
	"context"
	"io"
)

type Uploader interface {
	// Upload stores r under objectName and returns the stored object path.
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
}
