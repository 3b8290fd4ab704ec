package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// Package storage contains byte-level object backends for uploaded dataset files.
// Backends know nothing about CSV; they store opaque bytes under a key.

// ErrObjectNotFound is returned when no object exists under a key.
var ErrObjectNotFound = errors.New("object not found")

// Metadata keys understood by every backend.
const (
	MetaOriginalFilename = "original-filename"
	MetaUploadedAt       = "uploaded-at"
)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1.
// When Metadata carries MetaUploadedAt (RFC3339Nano) backends use it as the object's modification time where they can.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the object backend used by the dataset store.
type Storage interface {
	// Put writes an object under key, replacing nothing: keys are expected to be fresh.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object by key. Missing objects yield ErrObjectNotFound.
	Delete(ctx context.Context, key string) error
	// List enumerates every stored object. Order is backend-defined.
	List(ctx context.Context) ([]ObjectInfo, error)
	// PingContext reports whether the backend is reachable.
	PingContext(ctx context.Context) error
}

// UploadedAt returns the upload time recorded in the object's metadata, falling back to LastModified.
func (o ObjectInfo) UploadedAt() time.Time {
	if t, ok := uploadedAt(o.Metadata); ok {
		return t
	}
	return o.LastModified
}

// OriginalFilename returns the recorded original filename, if any.
func (o ObjectInfo) OriginalFilename() string {
	v, _ := metaValue(o.Metadata, MetaOriginalFilename)
	return v
}

func uploadedAt(meta map[string]string) (time.Time, bool) {
	v, ok := metaValue(meta, MetaUploadedAt)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// metaValue looks a key up case-insensitively; S3 backends return user metadata canonicalized and prefixed.
func metaValue(meta map[string]string, key string) (string, bool) {
	for k, v := range meta {
		k = strings.TrimPrefix(strings.ToLower(k), "x-amz-meta-")
		if k == key {
			return v, true
		}
	}
	return "", false
}
