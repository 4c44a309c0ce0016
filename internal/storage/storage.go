package storage

import (
	"context"
	"errors"
	"time"
)

// Package storage issues time-bounded, pre-signed object store URLs for clinical documents.
// File bytes never pass through this process: clients upload and download directly against the backend.

// ErrObjectNotFound is returned by a Backend when no object exists under a key.
var ErrObjectNotFound = errors.New("object not found")

// PutObjectOptions describe the object a signed upload URL is issued for.
// Metadata is stored on the object as opaque user metadata.
type PutObjectOptions struct {
	ContentType string
	Size        int64
	Metadata    map[string]string
}

// GetObjectOptions tune a signed download URL.
// A non-empty ResponseFileName forces an attachment content-disposition for that name.
type GetObjectOptions struct {
	ResponseFileName string
}

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// SignedURL is a bearer URL plus the headers the client must send with it.
type SignedURL struct {
	URL     string
	Headers map[string]string
}

// Backend is the capability an object store must provide. It is selected once at startup;
// the real object store and the local mock both satisfy it.
type Backend interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	// PresignPut returns a write-capable URL for key valid for expiry.
	PresignPut(ctx context.Context, key string, opt PutObjectOptions, expiry time.Duration) (SignedURL, error)
	// PresignGet returns a read-only URL for key valid for expiry.
	PresignGet(ctx context.Context, key string, opt GetObjectOptions, expiry time.Duration) (string, error)
	// Head returns up to n leading bytes of the object along with its info.
	Head(ctx context.Context, key string, n int64) ([]byte, ObjectInfo, error)
}
