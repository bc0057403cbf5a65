package blobs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"
)

// DirStore keeps objects as files under Root/<bucket>/<key>.
// It backs local runs and tests that use gs:// paths without a cloud account.
type DirStore struct {
	Root string
}

var _ Store = (*DirStore)(nil)

func (s *DirStore) path(uri string) (string, error) {
	obj, err := ParseURI(uri)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Root, obj.Bucket, filepath.FromSlash(obj.Key)), nil
}

// Download implements Store.
func (s *DirStore) Download(ctx context.Context, uri string, destinationPath string) error {
	src, err := s.path(uri)
	if err != nil {
		return err
	}
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening object %q: %w", uri, err)
	}
	defer f.Close()

	n, err := writeToFile(ctx, f, destinationPath)
	if err != nil {
		return err
	}
	klog.FromContext(ctx).V(2).Info("copied blob", "source", uri, "destination", destinationPath, "bytes", n)
	return nil
}

// Upload implements Store.
func (s *DirStore) Upload(ctx context.Context, sourcePath string, uri string) error {
	dest, err := s.path(uri)
	if err != nil {
		return err
	}
	f, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("opening source file: %w", err)
	}
	defer f.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating object directory: %w", err)
	}
	n, err := writeToFile(ctx, f, dest)
	if err != nil {
		return err
	}
	klog.FromContext(ctx).V(2).Info("copied blob", "source", sourcePath, "destination", uri, "bytes", n)
	return nil
}

// writeToFile copies src to destinationPath through a temp file in the same
// directory, so readers never observe a partial file.
func writeToFile(ctx context.Context, src io.Reader, destinationPath string) (int64, error) {
	log := klog.FromContext(ctx)

	dir := filepath.Dir(destinationPath)
	tempFile, err := os.CreateTemp(dir, "download")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}

	shouldDeleteTempFile := true
	defer func() {
		if shouldDeleteTempFile {
			if err := os.Remove(tempFile.Name()); err != nil {
				log.Error(err, "removing temp file", "path", tempFile.Name())
			}
		}
	}()

	shouldCloseTempFile := true
	defer func() {
		if shouldCloseTempFile {
			if err := tempFile.Close(); err != nil {
				log.Error(err, "closing temp file", "path", tempFile.Name())
			}
		}
	}()

	n, err := io.Copy(tempFile, src)
	if err != nil {
		return n, fmt.Errorf("copying from source: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return n, fmt.Errorf("closing temp file: %w", err)
	}
	shouldCloseTempFile = false

	if err := os.Rename(tempFile.Name(), destinationPath); err != nil {
		return n, fmt.Errorf("renaming temp file: %w", err)
	}
	shouldDeleteTempFile = false

	return n, nil
}

// Fetch downloads uri into a new temp file and returns its path. The caller
// removes the file.
func Fetch(ctx context.Context, store Store, uri string) (string, error) {
	f, err := os.CreateTemp("", "luma-blob-*"+filepath.Ext(uri))
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return "", err
	}
	if err := store.Download(ctx, uri, name); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}
