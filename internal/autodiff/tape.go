// Package autodiff implements tape-based reverse-mode automatic
// differentiation over internal/tensor.
//
// A Tape is an arena of recorded operations. Every recorded output tensor
// carries a tensor.Creator handle (graph id + node index) pointing into the
// arena, so the graph is walked by index and tensors hold no pointers to it.
package autodiff

import (
	"fmt"
	"sync/atomic"

	"github.com/luma-ml/luma/internal/autodiff/ops"
	"github.com/luma-ml/luma/internal/tensor"
)

// NodeID addresses a node inside a tape generation.
type NodeID int

var nextGraph atomic.Uint64

// Tape records operations during the forward pass and computes gradients
// during the backward pass using reverse-mode automatic differentiation.
//
// Every differentiable operation on the tape computes its forward value with
// the backend. The operation is recorded only while the tape is recording and
// at least one input requires gradients; the output then requires gradients
// too.
//
// Usage:
//
//	tape := autodiff.NewTape(cpu.New())
//	tape.StartRecording()
//	y, _ := tape.Mul(x, x)
//	loss, _ := tape.Sum(y)
//	err := tape.Backward(loss) // x.Grad() == 2x
//
// A Tape is not safe for concurrent use. Concurrent forward passes use one
// tape each.
type Tape struct {
	backend   tensor.Backend
	graph     uint64
	nodes     []ops.Operation // Recorded operations (in execution order)
	recording bool            // Whether tape is currently recording
}

// NewTape creates a new, non-recording tape on the given backend.
func NewTape(backend tensor.Backend) *Tape {
	return &Tape{
		backend: backend,
		graph:   nextGraph.Add(1),
		nodes:   make([]ops.Operation, 0, 64), // Pre-allocate for common case
	}
}

// Backend returns the backend used for forward and backward computation.
func (t *Tape) Backend() tensor.Backend {
	return t.backend
}

// StartRecording enables operation recording.
func (t *Tape) StartRecording() {
	t.recording = true
}

// StopRecording disables operation recording.
func (t *Tape) StopRecording() {
	t.recording = false
}

// IsRecording returns true if the tape is currently recording operations.
func (t *Tape) IsRecording() bool {
	return t.recording
}

// Reset discards all recorded nodes and starts a new graph generation.
// Tensors created by earlier generations are treated as leaves afterwards.
// Recording state is preserved.
func (t *Tape) Reset() {
	t.nodes = make([]ops.Operation, 0, cap(t.nodes))
	t.graph = nextGraph.Add(1)
}

// Graph returns the current graph generation id.
func (t *Tape) Graph() uint64 {
	return t.graph
}

// NumNodes returns the number of recorded operations.
func (t *Tape) NumNodes() int {
	return len(t.nodes)
}

// Node returns the operation recorded at id.
func (t *Tape) Node(id NodeID) (ops.Operation, bool) {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil, false
	}
	return t.nodes[id], true
}

// NodeOf returns the node that produced x in the current generation.
// Leaves and tensors from other tapes or older generations report false.
func (t *Tape) NodeOf(x *tensor.Tensor) (NodeID, bool) {
	c := x.Creator()
	if c.Graph != t.graph || c.Node < 0 || c.Node >= len(t.nodes) {
		return 0, false
	}
	return NodeID(c.Node), true
}

// Validate checks that the recorded graph is a DAG in creation order: every
// node's output points back at the node itself and every input was either a
// leaf or produced by an earlier node.
func (t *Tape) Validate() error {
	for i, op := range t.nodes {
		out := op.Output()
		if c := out.Creator(); c.Graph != t.graph || c.Node != i {
			return &GradientError{Msg: fmt.Sprintf("node %d (%s): output handle %+v does not match", i, op.Kind(), c)}
		}
		for _, in := range op.Inputs() {
			c := in.Creator()
			if c.Graph == t.graph && c.Node >= i {
				return &GradientError{Msg: fmt.Sprintf("node %d (%s): input produced by later node %d", i, op.Kind(), c.Node)}
			}
		}
	}
	return nil
}

// shouldRecord reports whether an operation over inputs must be recorded.
func (t *Tape) shouldRecord(inputs ...*tensor.Tensor) bool {
	if !t.recording {
		return false
	}
	for _, in := range inputs {
		if in.RequiresGrad() {
			return true
		}
	}
	return false
}

// record appends op to the arena and stamps its output with the node handle.
func (t *Tape) record(op ops.Operation) {
	out := op.Output()
	out.SetCreator(tensor.Creator{Graph: t.graph, Node: len(t.nodes)})
	out.RequireGrad()
	t.nodes = append(t.nodes, op)
}

// Add computes a + b with broadcasting.
func (t *Tape) Add(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	out, err := t.backend.Add(a, b)
	if err != nil {
		return nil, err
	}
	if t.shouldRecord(a, b) {
		t.record(ops.NewAddOp(a, b, out))
	}
	return out, nil
}

// Sub computes a - b with broadcasting.
func (t *Tape) Sub(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	out, err := t.backend.Sub(a, b)
	if err != nil {
		return nil, err
	}
	if t.shouldRecord(a, b) {
		t.record(ops.NewSubOp(a, b, out))
	}
	return out, nil
}

// Mul computes a * b element-wise with broadcasting.
func (t *Tape) Mul(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	out, err := t.backend.Mul(a, b)
	if err != nil {
		return nil, err
	}
	if t.shouldRecord(a, b) {
		t.record(ops.NewMulOp(a, b, out))
	}
	return out, nil
}

// Div computes a / b element-wise with broadcasting.
func (t *Tape) Div(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	out, err := t.backend.Div(a, b)
	if err != nil {
		return nil, err
	}
	if t.shouldRecord(a, b) {
		t.record(ops.NewDivOp(a, b, out))
	}
	return out, nil
}

// MatMul computes a @ b for 2D tensors.
func (t *Tape) MatMul(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	out, err := t.backend.MatMul(a, b)
	if err != nil {
		return nil, err
	}
	if t.shouldRecord(a, b) {
		t.record(ops.NewMatMulOp(a, b, out))
	}
	return out, nil
}

// Transpose swaps the dimensions of a 2D tensor.
func (t *Tape) Transpose(x *tensor.Tensor) (*tensor.Tensor, error) {
	out := t.backend.Transpose(x)
	if t.shouldRecord(x) {
		t.record(ops.NewTransposeOp(x, out))
	}
	return out, nil
}

// Reshape changes the shape of x.
func (t *Tape) Reshape(x *tensor.Tensor, shape tensor.Shape) (*tensor.Tensor, error) {
	out, err := t.backend.Reshape(x, shape)
	if err != nil {
		return nil, err
	}
	if t.shouldRecord(x) {
		t.record(ops.NewReshapeOp(x, out))
	}
	return out, nil
}

// Sum reduces x to a scalar sum.
func (t *Tape) Sum(x *tensor.Tensor) (*tensor.Tensor, error) {
	out := t.backend.Sum(x)
	if t.shouldRecord(x) {
		t.record(ops.NewSumOp(x, out))
	}
	return out, nil
}

// Mean reduces x to its scalar mean.
func (t *Tape) Mean(x *tensor.Tensor) (*tensor.Tensor, error) {
	out := t.backend.Mean(x)
	if t.shouldRecord(x) {
		t.record(ops.NewMeanOp(x, out))
	}
	return out, nil
}

// Scale multiplies x by the constant s.
func (t *Tape) Scale(x *tensor.Tensor, s float64) (*tensor.Tensor, error) {
	out := t.backend.Scale(x, s)
	if t.shouldRecord(x) {
		t.record(ops.NewScaleOp(x, out, s))
	}
	return out, nil
}

// ReLU applies max(0, x).
func (t *Tape) ReLU(x *tensor.Tensor) (*tensor.Tensor, error) {
	out := t.backend.ReLU(x)
	if t.shouldRecord(x) {
		t.record(ops.NewReLUOp(x, out))
	}
	return out, nil
}

// Sigmoid applies 1 / (1 + exp(-x)).
func (t *Tape) Sigmoid(x *tensor.Tensor) (*tensor.Tensor, error) {
	out := t.backend.Sigmoid(x)
	if t.shouldRecord(x) {
		t.record(ops.NewSigmoidOp(x, out))
	}
	return out, nil
}

// Tanh applies the hyperbolic tangent.
func (t *Tape) Tanh(x *tensor.Tensor) (*tensor.Tensor, error) {
	out := t.backend.Tanh(x)
	if t.shouldRecord(x) {
		t.record(ops.NewTanhOp(x, out))
	}
	return out, nil
}

// Exp applies e^x.
func (t *Tape) Exp(x *tensor.Tensor) (*tensor.Tensor, error) {
	out := t.backend.Exp(x)
	if t.shouldRecord(x) {
		t.record(ops.NewExpOp(x, out))
	}
	return out, nil
}

// Log applies the natural logarithm. Non-positive inputs are a NumericError.
func (t *Tape) Log(x *tensor.Tensor) (*tensor.Tensor, error) {
	out, err := t.backend.Log(x)
	if err != nil {
		return nil, err
	}
	if t.shouldRecord(x) {
		t.record(ops.NewLogOp(x, out))
	}
	return out, nil
}

// Softmax normalizes x along its last dimension.
func (t *Tape) Softmax(x *tensor.Tensor) (*tensor.Tensor, error) {
	out := t.backend.Softmax(x)
	if t.shouldRecord(x) {
		t.record(ops.NewSoftmaxOp(x, out))
	}
	return out, nil
}
