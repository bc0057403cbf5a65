package train

import (
	"context"
	"fmt"
	"math"

	"github.com/luma-ml/luma/internal/autodiff"
	"github.com/luma-ml/luma/internal/backend/cpu"
	"github.com/luma-ml/luma/internal/data"
	"github.com/luma-ml/luma/internal/nn"
	"github.com/luma-ml/luma/internal/tensor"
	"k8s.io/klog/v2"
)

// Metrics summarizes a model's predictions over a dataset.
//
// MSE and RMSE compare predictions with the targets; for multi-class
// outputs the targets are one-hot encoded and compared with the predicted
// probabilities. Accuracy, Precision, Recall and F1 treat single-output
// models as binary classifiers with a 0.5 threshold and multi-class models
// by arg-max, with precision, recall and F1 macro-averaged over classes.
type Metrics struct {
	Loss      float64
	MSE       float64
	RMSE      float64
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
	Samples   int
}

// String formats the metrics on one line.
func (m Metrics) String() string {
	return fmt.Sprintf("loss=%.6f mse=%.6f rmse=%.6f accuracy=%.4f precision=%.4f recall=%.4f f1=%.4f samples=%d",
		m.Loss, m.MSE, m.RMSE, m.Accuracy, m.Precision, m.Recall, m.F1, m.Samples)
}

// confusion accumulates per-class prediction counts.
type confusion struct {
	classes int
	tp, fp  []int
	fn      []int
	correct int
	total   int
}

func newConfusion(classes int) *confusion {
	return &confusion{classes: classes, tp: make([]int, classes), fp: make([]int, classes), fn: make([]int, classes)}
}

func (c *confusion) add(pred, label int) {
	c.total++
	if pred == label {
		c.correct++
		c.tp[label]++
		return
	}
	c.fp[pred]++
	c.fn[label]++
}

// scores returns accuracy and the precision, recall and F1 scores. Binary
// problems score the positive class only; multi-class problems average
// over classes.
func (c *confusion) scores() (accuracy, precision, recall, f1 float64) {
	if c.total == 0 {
		return 0, 0, 0, 0
	}
	accuracy = float64(c.correct) / float64(c.total)

	first := 0
	if c.classes == 2 {
		first = 1
	}
	n := float64(c.classes - first)
	for k := first; k < c.classes; k++ {
		p := ratio(c.tp[k], c.tp[k]+c.fp[k])
		r := ratio(c.tp[k], c.tp[k]+c.fn[k])
		precision += p / n
		recall += r / n
		if p+r > 0 {
			f1 += 2 * p * r / (p + r) / n
		}
	}
	return accuracy, precision, recall, f1
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// Evaluate runs model forward over ds without recording gradients and
// computes the loss and the prediction metrics.
func Evaluate(ctx context.Context, model Model, loss nn.Loss, ds data.Dataset, batchSize int) (Metrics, error) {
	n := ds.Size()
	if n == 0 {
		return Metrics{}, fmt.Errorf("evaluate: dataset is empty")
	}
	if batchSize <= 0 {
		batchSize = n
	}

	backend := cpu.New()
	tape := autodiff.NewTape(backend)

	var (
		m      Metrics
		sqErr  float64
		sqN    int
		counts *confusion
	)
	for start := 0; start < n; start += batchSize {
		if err := ctx.Err(); err != nil {
			return Metrics{}, err
		}
		size := min(batchSize, n-start)
		x, y, err := ds.GetBatch(start, size)
		if err != nil {
			return Metrics{}, err
		}
		if y == nil {
			return Metrics{}, fmt.Errorf("evaluate: dataset has no labels")
		}

		var out *tensor.Tensor
		if loss.FromLogits() {
			out, err = model.ForwardLogits(tape, x)
		} else {
			out, err = model.Forward(tape, x)
		}
		if err != nil {
			return Metrics{}, err
		}
		lossT, err := loss.Forward(tape, out, y)
		if err != nil {
			return Metrics{}, err
		}
		l, err := lossT.Item()
		if err != nil {
			return Metrics{}, err
		}
		m.Loss += l * float64(size)

		preds := out
		if loss.FromLogits() {
			preds = backend.Softmax(out)
		}
		width := preds.Shape()[len(preds.Shape())-1]
		targets := y
		if width > 1 {
			targets, err = autodiff.OneHot(y, size, width)
			if err != nil {
				return Metrics{}, err
			}
		}
		if !targets.Shape().Equal(preds.Shape()) {
			return Metrics{}, &tensor.ShapeError{Op: "evaluate", Shapes: []tensor.Shape{preds.Shape(), y.Shape()}, Msg: "predictions do not match targets"}
		}
		for i, p := range preds.Data() {
			d := p - targets.Data()[i]
			sqErr += d * d
		}
		sqN += preds.NumElements()

		if counts == nil {
			counts = newConfusion(max(width, 2))
		}
		classify(counts, preds, targets, size, width)
	}

	m.Samples = n
	m.Loss /= float64(n)
	m.MSE = sqErr / float64(sqN)
	m.RMSE = math.Sqrt(m.MSE)
	m.Accuracy, m.Precision, m.Recall, m.F1 = counts.scores()

	klog.FromContext(ctx).V(1).Info("evaluated model", "samples", n, "loss", m.Loss, "accuracy", m.Accuracy)
	return m, nil
}

// classify adds one prediction per row to counts.
func classify(counts *confusion, preds, targets *tensor.Tensor, rows, width int) {
	p, t := preds.Data(), targets.Data()
	for r := range rows {
		if width == 1 {
			counts.add(threshold(p[r]), threshold(t[r]))
			continue
		}
		counts.add(argmax(p[r*width:(r+1)*width]), argmax(t[r*width:(r+1)*width]))
	}
}

func threshold(v float64) int {
	if v >= 0.5 {
		return 1
	}
	return 0
}

func argmax(row []float64) int {
	best := 0
	for i, v := range row {
		if v > row[best] {
			best = i
		}
	}
	return best
}
