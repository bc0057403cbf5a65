package ops

import "github.com/luma-ml/luma/internal/tensor"

// SoftmaxCrossEntropyOp represents softmax followed by cross-entropy, fused.
//
// Forward:
//
//	Loss = mean_b(-Σ_i y[b,i] · log_softmax(logits[b])[i])
//
// Where log_softmax uses the log-sum-exp trick for numerical stability:
//
//	log_softmax(z) = z - (max(z) + log(Σ exp(z - max(z))))
//
// Backward:
//
//	∂L/∂logits = (softmax(logits) - y) / batch_size
//
// Assumptions:
//   - Logits shape: [batch_size, num_classes] (2D)
//   - Targets: one-hot [batch_size, num_classes], built from class indices if needed
//   - Output: scalar loss (mean over batch)
//
// Targets are constants: only the logits receive a gradient.
type SoftmaxCrossEntropyOp struct {
	logits *tensor.Tensor // Input logits [batch_size, num_classes]
	output *tensor.Tensor // Scalar loss output
	probs  *tensor.Tensor // softmax(logits)
	onehot *tensor.Tensor // Targets [batch_size, num_classes]
}

// NewSoftmaxCrossEntropyOp creates a new fused softmax cross-entropy operation.
func NewSoftmaxCrossEntropyOp(logits, output, probs, onehot *tensor.Tensor) *SoftmaxCrossEntropyOp {
	return &SoftmaxCrossEntropyOp{
		logits: logits,
		output: output,
		probs:  probs,
		onehot: onehot,
	}
}

// Kind returns KindSoftmaxCrossEntropy.
func (op *SoftmaxCrossEntropyOp) Kind() Kind { return KindSoftmaxCrossEntropy }

// Backward computes the gradient with respect to logits.
func (op *SoftmaxCrossEntropyOp) Backward(outputGrad *tensor.Tensor, _ tensor.Backend) ([]*tensor.Tensor, error) {
	batchSize := op.logits.Shape()[0]
	gradScale := scalarGrad(outputGrad) / float64(batchSize) // Usually 1.0, but we respect upstream gradient

	p := op.probs.Data()
	y := op.onehot.Data()
	return []*tensor.Tensor{mapGrad(op.logits, func(i int) float64 {
		return gradScale * (p[i] - y[i])
	})}, nil
}

// Inputs returns the input tensors.
func (op *SoftmaxCrossEntropyOp) Inputs() []*tensor.Tensor {
	return []*tensor.Tensor{op.logits}
}

// Output returns the output tensor.
func (op *SoftmaxCrossEntropyOp) Output() *tensor.Tensor {
	return op.output
}
