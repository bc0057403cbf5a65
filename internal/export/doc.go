// Package export writes trained parameters to files.
//
// Two formats are supported:
//
//	safetensors  [8 bytes: header size (uint64 LE)]
//	             [header: JSON {name: {dtype, shape, data_offsets}, "__metadata__": {...}}]
//	             [tensor data: float64 little-endian, tensors in name order]
//
//	json         {"metadata": {...}, "tensors": {name: {"shape": [...], "data": [...]}}}
//
// Paths starting with gs:// are written to a local temp file and uploaded
// through a blobs.Store.
//
// Example usage:
//
//	exp, err := export.ForPath("net.safetensors", "", nil)
//	if err != nil {
//	    return err
//	}
//	err = exp.Export(ctx, "net.safetensors", model.StateDict(), map[string]string{"layers": "3"})
package export
