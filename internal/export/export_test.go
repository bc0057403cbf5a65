package export

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/luma-ml/luma/internal/blobs"
	"github.com/luma-ml/luma/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stateDict() map[string]*tensor.Tensor {
	return map[string]*tensor.Tensor{
		"0.weight": tensor.MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}),
		"0.bias":   tensor.MustFromSlice([]float64{-0.5, 0.25}, tensor.Shape{2}),
	}
}

func TestSafeTensors_Layout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSafeTensors(&buf, stateDict(), map[string]string{"format": "luma"}))

	raw := buf.Bytes()
	headerSize := binary.LittleEndian.Uint64(raw[:8])

	var header map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw[8:8+headerSize], &header))
	require.Contains(t, header, "__metadata__")

	var bias, weight SafeTensorHeader
	require.NoError(t, json.Unmarshal(header["0.bias"], &bias))
	require.NoError(t, json.Unmarshal(header["0.weight"], &weight))

	// Alphabetical order: 0.bias precedes 0.weight.
	assert.Equal(t, "F64", bias.DType)
	assert.Equal(t, [2]int64{0, 16}, bias.DataOffsets)
	assert.Equal(t, [2]int64{16, 64}, weight.DataOffsets)
	assert.Equal(t, []int64{2, 3}, weight.Shape)
	assert.Len(t, raw, 8+int(headerSize)+64)
}

func TestSafeTensors_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.safetensors")
	require.NoError(t, SafeTensors{}.Export(context.Background(), path, stateDict(), map[string]string{"epochs": "3"}))

	got, meta, err := ReadSafeTensors(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"epochs": "3"}, meta)
	require.Len(t, got, 2)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, got["0.weight"].Data())
	assert.Equal(t, []int{2, 3}, []int(got["0.weight"].Shape()))
	assert.Equal(t, []float64{-0.5, 0.25}, got["0.bias"].Data())
}

func TestReadSafeTensors_Malformed(t *testing.T) {
	dir := t.TempDir()

	short := filepath.Join(dir, "short")
	require.NoError(t, os.WriteFile(short, []byte{1, 2}, 0o644))
	_, _, err := ReadSafeTensors(short)
	assert.Error(t, err)

	// Header claims more data than the file holds.
	var buf bytes.Buffer
	header := []byte(`{"w":{"dtype":"F64","shape":[2],"data_offsets":[0,16]}}`)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(len(header))))
	buf.Write(header)
	buf.Write(make([]byte, 8))
	oob := filepath.Join(dir, "oob")
	require.NoError(t, os.WriteFile(oob, buf.Bytes(), 0o644))

	_, _, err = ReadSafeTensors(oob)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "out_of_bounds", vErr.Type)
}

func TestJSON_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, JSON{}.Export(context.Background(), path, stateDict(), nil))

	got, meta, err := ReadJSON(path)
	require.NoError(t, err)
	assert.Nil(t, meta)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, got["0.weight"].Data())
	assert.Equal(t, []int{2}, []int(got["0.bias"].Shape()))
}

func TestForPath(t *testing.T) {
	exp, err := ForPath("net.json", "", nil)
	require.NoError(t, err)
	assert.IsType(t, JSON{}, exp)

	exp, err = ForPath("net.bin", "", nil)
	require.NoError(t, err)
	assert.IsType(t, SafeTensors{}, exp)

	exp, err = ForPath("net.bin", "JSON", nil)
	require.NoError(t, err)
	assert.IsType(t, JSON{}, exp)

	exp, err = ForPath("gs://b/net.safetensors", "", nil)
	require.NoError(t, err)
	assert.IsType(t, &Remote{}, exp)

	_, err = ForPath("net.onnx", "onnx", nil)
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestRemoteExport(t *testing.T) {
	root := t.TempDir()
	store := &blobs.DirStore{Root: root}
	exp, err := ForPath("gs://models/net.safetensors", "", store)
	require.NoError(t, err)

	require.NoError(t, exp.Export(context.Background(), "gs://models/net.safetensors", stateDict(), nil))

	got, _, err := ReadSafeTensors(filepath.Join(root, "models", "net.safetensors"))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
