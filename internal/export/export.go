package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/luma-ml/luma/internal/blobs"
	"github.com/luma-ml/luma/internal/tensor"
	"k8s.io/klog/v2"
)

// Exporter writes named tensors and string metadata to path.
type Exporter interface {
	Export(ctx context.Context, path string, tensors map[string]*tensor.Tensor, metadata map[string]string) error
}

// Formats returns the supported format names.
func Formats() []string {
	return []string{"json", "safetensors"}
}

// ForPath returns the exporter for format, or for the extension of path when
// format is empty. Extensions other than .json select safetensors.
// Remote paths are uploaded through store (default: GCS).
func ForPath(path, format string, store blobs.Store) (Exporter, error) {
	if format == "" {
		if strings.EqualFold(filepath.Ext(path), ".json") {
			format = "json"
		} else {
			format = "safetensors"
		}
	}

	var exp Exporter
	switch strings.ToLower(format) {
	case "safetensors":
		exp = SafeTensors{}
	case "json":
		exp = JSON{}
	default:
		return nil, fmt.Errorf("%w %q (want one of %s)", ErrUnknownFormat, format, strings.Join(Formats(), ", "))
	}

	if blobs.IsRemote(path) {
		if store == nil {
			store = &blobs.GCSStore{}
		}
		return &Remote{Local: exp, Store: store}, nil
	}
	return exp, nil
}

// Remote writes through Local into a temp file, then uploads it.
type Remote struct {
	Local Exporter
	Store blobs.Store
}

// Export implements Exporter.
func (r *Remote) Export(ctx context.Context, uri string, tensors map[string]*tensor.Tensor, metadata map[string]string) error {
	if _, err := blobs.ParseURI(uri); err != nil {
		return err
	}
	f, err := os.CreateTemp("", "luma-export-*"+filepath.Ext(uri))
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmp := f.Name()
	_ = f.Close()
	defer os.Remove(tmp)

	if err := r.Local.Export(ctx, tmp, tensors, metadata); err != nil {
		return err
	}
	if err := r.Store.Upload(ctx, tmp, uri); err != nil {
		return fmt.Errorf("upload %s: %w", uri, err)
	}
	return nil
}

// sortedNames returns the tensor names in alphabetical order.
func sortedNames(tensors map[string]*tensor.Tensor) []string {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func logExport(ctx context.Context, format, path string, n int) {
	klog.FromContext(ctx).Info("exported tensors", "format", format, "path", path, "tensors", n)
}
