// Package storage reads and writes template bundles on a file-like backend:
// a local directory or an S3 bucket prefix.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// FileStore is a flat, slash-separated file namespace. Implementations are
// safe for concurrent use.
type FileStore interface {
	// Read opens path. Missing files yield an error wrapping os.ErrNotExist.
	// The caller closes the reader.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write creates or truncates path. The data is committed when the
	// returned writer is closed, which reports any write failure.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Exists reports whether path exists.
	Exists(ctx context.Context, path string) (bool, error)
}

// Open returns the store for location: "s3://bucket/prefix" selects S3 with
// a client built from opts, anything else is a local directory.
func Open(location string, opts S3Options) (FileStore, error) {
	rest, ok := strings.CutPrefix(location, "s3://")
	if !ok {
		return NewLocal(location)
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return nil, fmt.Errorf("storage: %q has no bucket", location)
	}
	return NewS3(NewS3Client(opts), bucket, strings.Trim(prefix, "/")), nil
}
