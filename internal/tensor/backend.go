package tensor

// Backend defines the interface that compute backends implement.
// Backends perform the forward numerics of tensor operations; they never
// record anything for automatic differentiation.
//
// Implementations:
//   - cpu: pure Go (internal/backend/cpu)
//
// Element-wise binary operations broadcast their operands and return a
// *ShapeError on incompatible shapes. Functions with a restricted domain
// return a *NumericError instead of producing NaN or Inf.
type Backend interface {
	// Name returns the backend name (e.g. "cpu").
	Name() string

	// Element-wise binary operations
	Add(a, b *Tensor) (*Tensor, error)
	Sub(a, b *Tensor) (*Tensor, error)
	Mul(a, b *Tensor) (*Tensor, error)
	Div(a, b *Tensor) (*Tensor, error)

	// MatMul contracts the inner dimensions of two 2-D tensors: [m,k] @ [k,n].
	MatMul(a, b *Tensor) (*Tensor, error)

	// Shape operations
	Transpose(t *Tensor) *Tensor
	Reshape(t *Tensor, shape Shape) (*Tensor, error)

	// Reductions: Sum and Mean reduce to a scalar, SumTo reverses
	// broadcasting by summing down to shape.
	Sum(t *Tensor) *Tensor
	Mean(t *Tensor) *Tensor
	SumTo(t *Tensor, shape Shape) (*Tensor, error)

	// Scalar operations
	Scale(t *Tensor, s float64) *Tensor
	Neg(t *Tensor) *Tensor

	// Element-wise math and activations
	ReLU(t *Tensor) *Tensor
	Sigmoid(t *Tensor) *Tensor
	Tanh(t *Tensor) *Tensor
	Exp(t *Tensor) *Tensor
	Log(t *Tensor) (*Tensor, error)

	// Softmax normalizes along the last dimension.
	Softmax(t *Tensor) *Tensor
}
