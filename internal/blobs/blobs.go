// Package blobs moves files between the local filesystem and remote object
// storage addressed by gs://bucket/key URIs.
package blobs

import (
	"context"
	"fmt"
	"strings"
)

// Scheme is the URI prefix of remote objects.
const Scheme = "gs://"

// Store transfers whole objects.
type Store interface {
	// Download writes the object at uri to destPath.
	// If no such object exists, Download should return an error for which
	// errors.Is(err, os.ErrNotExist) is true.
	Download(ctx context.Context, uri string, destPath string) error

	// Upload copies the file at sourcePath to the object at uri, replacing
	// any existing object.
	Upload(ctx context.Context, sourcePath string, uri string) error
}

// Object identifies one object within a bucket.
type Object struct {
	Bucket string
	Key    string
}

// String returns the gs:// URI of the object.
func (o Object) String() string {
	return Scheme + o.Bucket + "/" + o.Key
}

// IsRemote reports whether path names a remote object.
func IsRemote(path string) bool {
	return strings.HasPrefix(path, Scheme)
}

// ParseURI splits gs://bucket/key into its parts.
func ParseURI(uri string) (Object, error) {
	if !IsRemote(uri) {
		return Object{}, fmt.Errorf("not a %s URI: %q", Scheme, uri)
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(uri, Scheme), "/")
	if !ok || bucket == "" || key == "" {
		return Object{}, fmt.Errorf("invalid object URI %q: want %sbucket/key", uri, Scheme)
	}
	return Object{Bucket: bucket, Key: key}, nil
}
