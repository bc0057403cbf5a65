package ops

import "github.com/luma-ml/luma/internal/tensor"

// reduceBroadcast reduces a gradient tensor to match the target shape.
// This is necessary when broadcasting was used in the forward pass.
//
// Example:
//
//	Forward: a[3,1] + b[3,4] -> c[3,4]  (a was broadcast along dim 1)
//	Backward: grad_c[3,4] -> grad_a[3,1] (sum along dim 1)
func reduceBroadcast(grad *tensor.Tensor, targetShape tensor.Shape, backend tensor.Backend) (*tensor.Tensor, error) {
	// If shapes already match, clone to avoid aliasing issues
	if grad.Shape().Equal(targetShape) {
		return grad.Clone(), nil
	}
	return backend.SumTo(grad, targetShape)
}

// scalarGrad extracts the value of a scalar output gradient.
func scalarGrad(outputGrad *tensor.Tensor) float64 {
	return outputGrad.Data()[0]
}

// mapGrad builds a tensor of shape like ref where element i is f(i).
func mapGrad(ref *tensor.Tensor, f func(i int) float64) *tensor.Tensor {
	grad := tensor.ZerosLike(ref)
	data := grad.Data()
	for i := range data {
		data[i] = f(i)
	}
	return grad
}
