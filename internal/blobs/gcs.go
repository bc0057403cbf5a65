package blobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"k8s.io/klog/v2"
)

// GCSStore reads and writes objects in Google Cloud Storage using
// application default credentials.
type GCSStore struct{}

var _ Store = (*GCSStore)(nil)

// Upload implements Store.
func (s *GCSStore) Upload(ctx context.Context, sourcePath string, uri string) error {
	log := klog.FromContext(ctx)

	obj, err := ParseURI(uri)
	if err != nil {
		return err
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("opening source file: %w", err)
	}
	defer src.Close()

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating GCS storage client: %w", err)
	}
	defer client.Close()

	log.Info("uploading blob to GCS", "source", sourcePath, "destination", uri)

	startedAt := time.Now()
	w := client.Bucket(obj.Bucket).Object(obj.Key).NewWriter(ctx)
	n, err := io.Copy(w, src)
	if err != nil {
		_ = w.Close()
		return fmt.Errorf("uploading to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing GCS writer: %w", err)
	}

	log.Info("uploaded blob to GCS", "url", uri, "bytes", n, "duration", time.Since(startedAt))

	return nil
}

// Download implements Store.
func (s *GCSStore) Download(ctx context.Context, uri string, destinationPath string) error {
	log := klog.FromContext(ctx)

	obj, err := ParseURI(uri)
	if err != nil {
		return err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating GCS storage client: %w", err)
	}
	defer client.Close()

	log.Info("downloading blob from GCS", "source", uri, "destination", destinationPath)

	startedAt := time.Now()
	r, err := client.Bucket(obj.Bucket).Object(obj.Key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("object %q: %w", uri, os.ErrNotExist)
		}
		return fmt.Errorf("opening object from GCS %q: %w", uri, err)
	}
	defer r.Close()

	n, err := writeToFile(ctx, r, destinationPath)
	if err != nil {
		return fmt.Errorf("downloading from GCS: %w", err)
	}

	log.Info("downloaded blob from GCS", "source", uri, "destination", destinationPath, "bytes", n, "duration", time.Since(startedAt))

	return nil
}
