// Package tensor implements dense n-dimensional float64 tensors.
//
// A Tensor owns a contiguous row-major buffer of IEEE-754 doubles. Tensors
// that take part in gradient computation carry a requiresGrad flag, an
// optional gradient buffer and a Creator handle identifying the graph node
// that produced them. The handle is a plain value (graph id + node index), so
// tensors never hold pointers back into the computation graph.
package tensor

import (
	"fmt"
	"strings"
	"sync/atomic"
)

var nextID atomic.Uint64

// Creator identifies the autodiff graph node that produced a tensor.
// The zero value means the tensor is a leaf.
type Creator struct {
	Graph uint64 // Graph generation the node belongs to (never 0 for real nodes)
	Node  int    // Index of the node inside that graph
}

// IsZero reports whether the creator handle is unset.
func (c Creator) IsZero() bool {
	return c.Graph == 0
}

// Tensor is a dense n-dimensional array of float64 values.
//
// Example:
//
//	a := tensor.MustFromSlice([]float64{1, 2, 3}, tensor.Shape{3})
//	a.RequireGrad()
type Tensor struct {
	id           uint64
	shape        Shape
	data         []float64
	requiresGrad bool
	grad         *Tensor // Allocated zeroed on first accumulation
	creator      Creator
}

func newTensor(shape Shape, data []float64) *Tensor {
	return &Tensor{
		id:    nextID.Add(1),
		shape: shape,
		data:  data,
	}
}

// ID returns the tensor's unique identity.
func (t *Tensor) ID() uint64 {
	return t.id
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int {
	return len(t.shape)
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return len(t.data)
}

// Data returns the backing buffer.
//
// WARNING: Modifications to the returned slice will modify the tensor.
func (t *Tensor) Data() []float64 {
	return t.data
}

// Item returns the value of a single-element tensor.
func (t *Tensor) Item() (float64, error) {
	if len(t.data) != 1 {
		return 0, &ShapeError{Op: "item", Shapes: []Shape{t.shape}, Msg: "tensor must hold exactly one element"}
	}
	return t.data[0], nil
}

// At returns the element at the given indices.
// Panics if indices are out of bounds.
func (t *Tensor) At(indices ...int) float64 {
	return t.data[t.offset(indices)]
}

// Set sets the element at the given indices.
// Panics if indices are out of bounds.
func (t *Tensor) Set(value float64, indices ...int) {
	t.data[t.offset(indices)] = value
}

func (t *Tensor) offset(indices []int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("expected %d indices, got %d", len(t.shape), len(indices)))
	}
	strides := t.shape.ComputeStrides()
	offset := 0
	for i, idx := range indices {
		if idx < 0 || idx >= t.shape[i] {
			panic(fmt.Sprintf("index %d out of bounds for dimension %d (size %d)", idx, i, t.shape[i]))
		}
		offset += idx * strides[i]
	}
	return offset
}

// RequiresGrad returns true if this tensor takes part in gradient computation.
func (t *Tensor) RequiresGrad() bool {
	return t.requiresGrad
}

// SetRequiresGrad sets the gradient tracking flag. Turning tracking off
// drops the gradient buffer, so a tensor that does not require gradients
// never owns one.
func (t *Tensor) SetRequiresGrad(v bool) {
	t.requiresGrad = v
	if !v {
		t.grad = nil
	}
}

// RequireGrad marks this tensor for gradient computation and returns it
// for method chaining.
func (t *Tensor) RequireGrad() *Tensor {
	t.requiresGrad = true
	return t
}

// Grad returns the accumulated gradient, or nil if none was accumulated yet.
func (t *Tensor) Grad() *Tensor {
	return t.grad
}

// AccumulateGrad adds g into the gradient buffer, allocating a zeroed buffer
// on first use.
func (t *Tensor) AccumulateGrad(g *Tensor) error {
	if !t.requiresGrad {
		return fmt.Errorf("accumulate gradient: tensor %d does not require grad", t.id)
	}
	if !g.shape.Equal(t.shape) {
		return &ShapeError{Op: "accumulate_grad", Shapes: []Shape{t.shape, g.shape}}
	}
	if t.grad == nil {
		t.grad = Zeros(t.shape)
	}
	for i, v := range g.data {
		t.grad.data[i] += v
	}
	return nil
}

// ZeroGrad resets an existing gradient buffer to zero.
// Tensors without a buffer are left untouched.
func (t *Tensor) ZeroGrad() {
	if t.grad == nil {
		return
	}
	for i := range t.grad.data {
		t.grad.data[i] = 0
	}
}

// Creator returns the handle of the graph node that produced this tensor.
func (t *Tensor) Creator() Creator {
	return t.creator
}

// SetCreator records the graph node that produced this tensor.
// Used by the autodiff tape.
func (t *Tensor) SetCreator(c Creator) {
	t.creator = c
}

// IsLeaf reports whether the tensor was not produced by a recorded operation.
func (t *Tensor) IsLeaf() bool {
	return t.creator.IsZero()
}

// Clone creates a deep copy of the tensor's values.
// The copy is a leaf that does not track gradients.
func (t *Tensor) Clone() *Tensor {
	data := make([]float64, len(t.data))
	copy(data, t.data)
	return newTensor(t.shape.Clone(), data)
}

// Detach returns a new leaf tensor that shares the same data but doesn't
// track gradients.
func (t *Tensor) Detach() *Tensor {
	return newTensor(t.shape, t.data)
}

// CopyFrom overwrites the tensor's values with src's values.
func (t *Tensor) CopyFrom(src *Tensor) error {
	if !src.shape.Equal(t.shape) {
		return &ShapeError{Op: "copy", Shapes: []Shape{t.shape, src.shape}}
	}
	copy(t.data, src.data)
	return nil
}

// String returns a human-readable representation of the tensor.
func (t *Tensor) String() string {
	var b strings.Builder
	b.WriteString("Tensor")
	b.WriteString(t.shape.String())
	b.WriteByte(' ')
	writeNested(&b, t.data, t.shape)
	if t.requiresGrad {
		b.WriteString(" requires_grad")
	}
	return b.String()
}

// Format renders only the values, nested by dimension.
func (t *Tensor) Format() string {
	var b strings.Builder
	writeNested(&b, t.data, t.shape)
	return b.String()
}

func writeNested(b *strings.Builder, data []float64, shape Shape) {
	if len(shape) == 0 {
		fmt.Fprintf(b, "%g", data[0])
		return
	}
	if shape[0] == 0 {
		b.WriteString("[]")
		return
	}
	step := len(data) / shape[0]
	b.WriteByte('[')
	for i := 0; i < shape[0]; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		writeNested(b, data[i*step:(i+1)*step], shape[1:])
	}
	b.WriteByte(']')
}
