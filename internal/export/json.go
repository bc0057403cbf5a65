package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/luma-ml/luma/internal/tensor"
)

// JSON writes tensors as human-readable JSON.
type JSON struct{}

var _ Exporter = JSON{}

type jsonTensor struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

type jsonFile struct {
	Metadata map[string]string     `json:"metadata,omitempty"`
	Tensors  map[string]jsonTensor `json:"tensors"`
}

// Export implements Exporter.
func (JSON) Export(ctx context.Context, path string, tensors map[string]*tensor.Tensor, metadata map[string]string) error {
	doc := jsonFile{
		Metadata: metadata,
		Tensors:  make(map[string]jsonTensor, len(tensors)),
	}
	for name, t := range tensors {
		if err := tensor.CheckFinite("export", t); err != nil {
			return fmt.Errorf("tensor %q: %w", name, err)
		}
		doc.Tensors[name] = jsonTensor{Shape: t.Shape(), Data: t.Data()}
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tensors: %w", err)
	}
	//nolint:gosec // G306: exported weights are not secret
	if err := os.WriteFile(path, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logExport(ctx, "json", path, len(tensors))
	return nil
}

// ReadJSON decodes a file written by JSON.
func ReadJSON(path string) (map[string]*tensor.Tensor, map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	var doc jsonFile
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	tensors := make(map[string]*tensor.Tensor, len(doc.Tensors))
	for name, jt := range doc.Tensors {
		t, err := tensor.New(jt.Data, jt.Shape)
		if err != nil {
			return nil, nil, fmt.Errorf("tensor %q: %w", name, err)
		}
		tensors[name] = t
	}
	return tensors, doc.Metadata, nil
}
