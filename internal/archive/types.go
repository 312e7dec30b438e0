// Package archive defines the object-store abstraction used for audit-trail
// export artifacts.
package archive

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete archive storage backend implementation.
type Driver string

const (
	// DriverFilesystem represents the local filesystem implementation.
	DriverFilesystem Driver = "fs" // local filesystem (default, dev)
	// DriverS3 represents an S3 / MinIO compatible implementation.
	DriverS3 Driver = "s3"
	// DriverMemory represents an in-memory implementation used in tests.
	DriverMemory Driver = "memory"
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string            // MIME type, optional
	Metadata    map[string]string // small, flat key-value user metadata
}

// Info describes a stored artifact.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store provides a thin object-store abstraction. Artifacts are immutable:
// Put fails when the key already exists.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

// ErrUnsupported is returned when an optional capability is not available.
var ErrUnsupported = errors.New("archive: unsupported operation")
