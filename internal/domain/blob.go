package domain

import (
	"context"
	"io"
	"time"
)

// PutOptions describes an object being uploaded. A negative or zero Size
// means the length is unknown.
type PutOptions struct {
	ContentType string
	Size        int64
	Metadata    map[string]string
}

// BlobWriter uploads objects to storage.
type BlobWriter interface {
	Put(ctx context.Context, key string, body io.Reader, opts PutOptions) error
}

// BlobReader reads archived objects back.
type BlobReader interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}
