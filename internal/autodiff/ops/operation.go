// Package ops defines operation interfaces and implementations for automatic differentiation.
//
// Each operation implements the Operation interface, which provides:
//   - Forward pass: computed by the backend before the operation is recorded
//   - Backward pass: computes gradients for inputs given output gradient
//
// Supported operations:
//   - AddOp, SubOp, MulOp, DivOp: element-wise arithmetic with broadcasting
//   - MatMulOp: matrix multiplication (d(A@B)/dA = grad@B^T, d(A@B)/dB = A^T@grad)
//   - TransposeOp, ReshapeOp: shape changes
//   - SumOp, MeanOp, ScaleOp: reductions and scalar multiplication
//   - ReLUOp, SigmoidOp, TanhOp, ExpOp, LogOp, SoftmaxOp: element-wise functions
//   - MSEOp, BCEOp, SoftmaxCrossEntropyOp: scalar losses
package ops

import "github.com/luma-ml/luma/internal/tensor"

// Kind names an operation type.
type Kind string

// Operation kinds.
const (
	KindAdd                 Kind = "add"
	KindSub                 Kind = "sub"
	KindMul                 Kind = "mul"
	KindDiv                 Kind = "div"
	KindMatMul              Kind = "matmul"
	KindTranspose           Kind = "transpose"
	KindReshape             Kind = "reshape"
	KindSum                 Kind = "sum"
	KindMean                Kind = "mean"
	KindScale               Kind = "scale"
	KindReLU                Kind = "relu"
	KindSigmoid             Kind = "sigmoid"
	KindTanh                Kind = "tanh"
	KindExp                 Kind = "exp"
	KindLog                 Kind = "log"
	KindSoftmax             Kind = "softmax"
	KindMSE                 Kind = "mse"
	KindBCE                 Kind = "bce"
	KindSoftmaxCrossEntropy Kind = "softmax_cross_entropy"
)

// Operation represents a differentiable operation in the computation graph.
// Each operation records its inputs and output during the forward pass,
// and computes input gradients during the backward pass.
type Operation interface {
	// Kind returns the operation type.
	Kind() Kind

	// Backward computes gradients for inputs given the output gradient.
	// Returns a slice of gradients corresponding to each input tensor.
	// A nil entry means no gradient flows to that input.
	//
	// Example for AddOp:
	//   inputs: [a, b]
	//   outputGrad: dL/d(a+b)
	//   returns: [dL/d(a+b), dL/d(a+b)] (gradient flows equally to both inputs)
	Backward(outputGrad *tensor.Tensor, backend tensor.Backend) ([]*tensor.Tensor, error)

	// Inputs returns the input tensors for this operation.
	Inputs() []*tensor.Tensor

	// Output returns the output tensor produced by this operation.
	Output() *tensor.Tensor
}
