package export

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/luma-ml/luma/internal/tensor"
)

// MaxHeaderSize bounds the JSON header accepted by ReadSafeTensors.
const MaxHeaderSize = 100 * 1024 * 1024

const metadataKey = "__metadata__"

// SafeTensors writes the SafeTensors format with F64 tensors.
// SafeTensors is the standard format for HuggingFace models.
type SafeTensors struct{}

var _ Exporter = SafeTensors{}

// SafeTensorHeader represents a tensor in the SafeTensors header.
type SafeTensorHeader struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// Export implements Exporter.
func (SafeTensors) Export(ctx context.Context, path string, tensors map[string]*tensor.Tensor, metadata map[string]string) error {
	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	w := bufio.NewWriter(file)
	if err := WriteSafeTensors(w, tensors, metadata); err != nil {
		_ = file.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return err
	}
	logExport(ctx, "safetensors", path, len(tensors))
	return nil
}

// WriteSafeTensors encodes tensors to w.
//
// Format:
// [8 bytes: header_size (uint64 LE)]
// [header_size bytes: JSON header]
// [tensor data: raw bytes]
//
// Tensors are written in alphabetical order by name.
func WriteSafeTensors(w io.Writer, tensors map[string]*tensor.Tensor, metadata map[string]string) error {
	tensorNames := sortedNames(tensors)

	// Build header with tensor metadata
	header := make(map[string]any)

	if len(metadata) > 0 {
		header[metadataKey] = metadata
	}

	var currentOffset int64
	for _, name := range tensorNames {
		t := tensors[name]
		size := int64(t.NumElements() * 8)

		shape := make([]int64, len(t.Shape()))
		for i, dim := range t.Shape() {
			shape[i] = int64(dim)
		}

		header[name] = SafeTensorHeader{
			DType:       "F64",
			Shape:       shape,
			DataOffsets: [2]int64{currentOffset, currentOffset + size},
		}
		currentOffset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	// Write header size (8 bytes, little-endian uint64)
	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	buf := make([]byte, 8)
	for _, name := range tensorNames {
		for _, v := range tensors[name].Data() {
			binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
			if _, err := w.Write(buf); err != nil {
				return fmt.Errorf("failed to write tensor %s: %w", name, err)
			}
		}
	}
	return nil
}

// ReadSafeTensors decodes a SafeTensors file written with F64 tensors.
func ReadSafeTensors(path string) (map[string]*tensor.Tensor, map[string]string, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	if len(raw) < 8 {
		return nil, nil, &ValidationError{Type: "truncated", Details: "file shorter than header size field"}
	}
	headerSize := binary.LittleEndian.Uint64(raw[:8])
	if headerSize > MaxHeaderSize {
		return nil, nil, ErrHeaderTooLarge
	}
	if uint64(len(raw)-8) < headerSize {
		return nil, nil, &ValidationError{Type: "truncated", Details: fmt.Sprintf("header of %d bytes exceeds file", headerSize)}
	}

	var header map[string]json.RawMessage
	if err := json.Unmarshal(raw[8:8+headerSize], &header); err != nil {
		return nil, nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}
	data := raw[8+headerSize:]

	var metadata map[string]string
	entries := make(map[string]SafeTensorHeader, len(header))
	for name, msg := range header {
		if name == metadataKey {
			if err := json.Unmarshal(msg, &metadata); err != nil {
				return nil, nil, fmt.Errorf("failed to parse metadata: %w", err)
			}
			continue
		}
		var h SafeTensorHeader
		if err := json.Unmarshal(msg, &h); err != nil {
			return nil, nil, fmt.Errorf("tensor %q: %w", name, err)
		}
		if h.DType != "F64" {
			return nil, nil, &ValidationError{Type: "unsupported_dtype", Tensor: name, Details: h.DType}
		}
		entries[name] = h
	}
	if err := validateOffsets(entries, int64(len(data))); err != nil {
		return nil, nil, err
	}

	tensors := make(map[string]*tensor.Tensor, len(entries))
	for name, h := range entries {
		shape := make(tensor.Shape, len(h.Shape))
		for i, d := range h.Shape {
			shape[i] = int(d)
		}
		if int64(shape.NumElements()*8) != h.DataOffsets[1]-h.DataOffsets[0] {
			return nil, nil, &ValidationError{Type: "size_mismatch", Tensor: name, Details: fmt.Sprintf("shape %v does not match %d bytes", shape, h.DataOffsets[1]-h.DataOffsets[0])}
		}
		values := make([]float64, shape.NumElements())
		chunk := data[h.DataOffsets[0]:h.DataOffsets[1]]
		for i := range values {
			values[i] = math.Float64frombits(binary.LittleEndian.Uint64(chunk[i*8:]))
		}
		t, err := tensor.New(values, shape)
		if err != nil {
			return nil, nil, fmt.Errorf("tensor %q: %w", name, err)
		}
		tensors[name] = t
	}
	return tensors, metadata, nil
}

// validateOffsets checks for negative, out-of-bounds and overlapping tensor
// regions.
func validateOffsets(entries map[string]SafeTensorHeader, dataSize int64) error {
	type region struct {
		name       string
		start, end int64
	}
	regions := make([]region, 0, len(entries))
	for name, h := range entries {
		regions = append(regions, region{name, h.DataOffsets[0], h.DataOffsets[1]})
	}
	sort.Slice(regions, func(i, j int) bool {
		if regions[i].start != regions[j].start {
			return regions[i].start < regions[j].start
		}
		return regions[i].name < regions[j].name
	})

	for i, r := range regions {
		if r.start < 0 || r.end < r.start {
			return &ValidationError{
				Type:    "negative_offset",
				Tensor:  r.name,
				Details: fmt.Sprintf("offsets [%d, %d]", r.start, r.end),
			}
		}
		if r.end > dataSize {
			return &ValidationError{
				Type:    "out_of_bounds",
				Tensor:  r.name,
				Details: fmt.Sprintf("end %d > data_size %d", r.end, dataSize),
			}
		}
		if i < len(regions)-1 && r.end > regions[i+1].start {
			next := regions[i+1]
			return &ValidationError{
				Type:    "offset_overlap",
				Tensor:  r.name,
				Tensor2: next.name,
				Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap", r.start, r.end, next.start, next.end),
			}
		}
	}
	return nil
}
