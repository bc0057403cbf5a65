package autodiff

import (
	"fmt"
	"math"

	"github.com/luma-ml/luma/internal/autodiff/ops"
	"github.com/luma-ml/luma/internal/tensor"
)

// bceEpsilon bounds predictions away from 0 and 1 before taking logs.
const bceEpsilon = 1e-7

// MSE computes mean((pred - target)²) as a scalar.
// pred and target must have the same shape.
func (t *Tape) MSE(pred, target *tensor.Tensor) (*tensor.Tensor, error) {
	if !pred.Shape().Equal(target.Shape()) {
		return nil, &tensor.ShapeError{Op: "mse", Shapes: []tensor.Shape{pred.Shape(), target.Shape()}}
	}

	diff, err := t.backend.Sub(pred, target)
	if err != nil {
		return nil, err
	}
	sq, err := t.backend.Mul(diff, diff)
	if err != nil {
		return nil, err
	}
	out := t.backend.Mean(sq)

	if t.shouldRecord(pred, target) {
		t.record(ops.NewMSEOp(pred, target, out, diff))
	}
	return out, nil
}

// BCE computes the binary cross-entropy between probabilities pred and
// targets in [0, 1]. Predictions are clamped to [ε, 1-ε]; predictions outside
// [0, 1] or non-finite are a NumericError.
func (t *Tape) BCE(pred, target *tensor.Tensor) (*tensor.Tensor, error) {
	if !pred.Shape().Equal(target.Shape()) {
		return nil, &tensor.ShapeError{Op: "bce", Shapes: []tensor.Shape{pred.Shape(), target.Shape()}}
	}

	clamped := tensor.ZerosLike(pred)
	p := clamped.Data()
	y := target.Data()
	sum := 0.0
	for i, v := range pred.Data() {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return nil, &tensor.NumericError{Op: "bce", Msg: fmt.Sprintf("prediction %g at index %d is not a probability", v, i)}
		}
		p[i] = math.Min(math.Max(v, bceEpsilon), 1-bceEpsilon)
		sum += y[i]*math.Log(p[i]) + (1-y[i])*math.Log(1-p[i])
	}
	out := tensor.Scalar(-sum / float64(len(p)))

	if t.shouldRecord(pred, target) {
		t.record(ops.NewBCEOp(pred, target, out, clamped))
	}
	return out, nil
}

// SoftmaxCrossEntropy applies softmax to logits [batch, classes] and computes
// the mean cross-entropy against targets. Targets are either class indices
// with shape [batch] or one-hot/probability rows with shape [batch, classes].
// Only logits receive a gradient.
func (t *Tape) SoftmaxCrossEntropy(logits, targets *tensor.Tensor) (*tensor.Tensor, error) {
	shape := logits.Shape()
	if len(shape) != 2 {
		return nil, &tensor.ShapeError{Op: "softmax_cross_entropy", Shapes: []tensor.Shape{shape}, Msg: "logits must be 2D [batch, classes]"}
	}
	onehot, err := OneHot(targets, shape[0], shape[1])
	if err != nil {
		return nil, err
	}

	batch, classes := shape[0], shape[1]
	probs := t.backend.Softmax(logits)
	z := logits.Data()
	y := onehot.Data()
	total := 0.0
	for b := 0; b < batch; b++ {
		row := z[b*classes : (b+1)*classes]
		maxVal := math.Inf(-1)
		for _, v := range row {
			maxVal = math.Max(maxVal, v)
		}
		sumExp := 0.0
		for _, v := range row {
			sumExp += math.Exp(v - maxVal)
		}
		logSumExp := maxVal + math.Log(sumExp)
		for i, v := range row {
			if yi := y[b*classes+i]; yi != 0 {
				total -= yi * (v - logSumExp)
			}
		}
	}
	out := tensor.Scalar(total / float64(batch))

	if t.shouldRecord(logits) {
		t.record(ops.NewSoftmaxCrossEntropyOp(logits, out, probs, onehot))
	}
	return out, nil
}

// OneHot converts targets to a [batch, classes] matrix. Targets of shape
// [batch] (or [batch, 1] when classes > 1) hold integer class indices;
// targets of shape [batch, classes] are returned unchanged.
func OneHot(targets *tensor.Tensor, batch, classes int) (*tensor.Tensor, error) {
	ts := targets.Shape()
	if ts.Equal(tensor.Shape{batch, classes}) {
		return targets, nil
	}
	if !ts.Equal(tensor.Shape{batch}) && !ts.Equal(tensor.Shape{batch, 1}) {
		return nil, &tensor.ShapeError{
			Op:     "one_hot",
			Shapes: []tensor.Shape{ts, {batch, classes}},
			Msg:    "targets must be class indices [batch] or one-hot [batch, classes]",
		}
	}

	onehot := tensor.Zeros(tensor.Shape{batch, classes})
	dst := onehot.Data()
	for b, v := range targets.Data() {
		idx := int(v)
		if float64(idx) != v || idx < 0 || idx >= classes {
			return nil, &tensor.ShapeError{
				Op:     "one_hot",
				Shapes: []tensor.Shape{ts, {batch, classes}},
				Msg:    fmt.Sprintf("class index %g at row %d out of range [0, %d)", v, b, classes),
			}
		}
		dst[b*classes+idx] = 1
	}
	return onehot, nil
}
