package domain

import (
	"context"
	"io"
)

// BlobWriter uploads data to object storage. Report export is the only
// blob producer in this service.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}
