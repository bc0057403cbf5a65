package autodiff

import (
	"errors"
	"testing"

	"github.com/luma-ml/luma/internal/autodiff/ops"
	"github.com/luma-ml/luma/internal/backend/cpu"
	"github.com/luma-ml/luma/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecordingTape() *Tape {
	tape := NewTape(cpu.New())
	tape.StartRecording()
	return tape
}

// TestSumOfAdd is the basic end-to-end check: c = a + b, loss = sum(c).
func TestSumOfAdd(t *testing.T) {
	tape := newRecordingTape()
	a := tensor.MustFromSlice([]float64{1, 2, 3}, tensor.Shape{3}).RequireGrad()
	b := tensor.MustFromSlice([]float64{4, 5, 6}, tensor.Shape{3}).RequireGrad()

	c, err := tape.Add(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 7, 9}, c.Data())

	loss, err := tape.Sum(c)
	require.NoError(t, err)
	require.NoError(t, tape.Backward(loss))

	assert.Equal(t, []float64{1, 1, 1}, a.Grad().Data())
	assert.Equal(t, []float64{1, 1, 1}, b.Grad().Data())

	// Forward values are untouched by backward.
	assert.Equal(t, []float64{1, 2, 3}, a.Data())
	assert.Equal(t, []float64{5, 7, 9}, c.Data())
}

func TestBackwardTwiceDoubles(t *testing.T) {
	tape := newRecordingTape()
	x := tensor.MustFromSlice([]float64{1, 2, 3}, tensor.Shape{3}).RequireGrad()

	y, err := tape.Mul(x, x)
	require.NoError(t, err)
	loss, err := tape.Sum(y)
	require.NoError(t, err)

	require.NoError(t, tape.Backward(loss))
	assert.Equal(t, []float64{2, 4, 6}, x.Grad().Data())

	require.NoError(t, tape.Backward(loss))
	assert.Equal(t, []float64{4, 8, 12}, x.Grad().Data())
}

func TestGradientsDoesNotMutate(t *testing.T) {
	tape := newRecordingTape()
	x := tensor.MustFromSlice([]float64{1, 2}, tensor.Shape{2}).RequireGrad()

	y, err := tape.Scale(x, 3)
	require.NoError(t, err)
	loss, err := tape.Sum(y)
	require.NoError(t, err)

	grads, err := tape.Gradients(loss)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 3}, grads.Get(x).Data())
	assert.Nil(t, x.Grad())
}

func TestBackward_NonScalar(t *testing.T) {
	tape := newRecordingTape()
	x := tensor.MustFromSlice([]float64{1, 2}, tensor.Shape{2}).RequireGrad()

	y, err := tape.ReLU(x)
	require.NoError(t, err)

	err = tape.Backward(y)
	var ge *GradientError
	require.True(t, errors.As(err, &ge))
	assert.Contains(t, err.Error(), "scalar")
}

func TestBackward_NoGradRequired(t *testing.T) {
	tape := newRecordingTape()
	x := tensor.MustFromSlice([]float64{1, 2}, tensor.Shape{2})

	loss, err := tape.Sum(x)
	require.NoError(t, err)
	assert.False(t, loss.RequiresGrad())
	assert.Zero(t, tape.NumNodes())

	var ge *GradientError
	assert.True(t, errors.As(tape.Backward(loss), &ge))
}

func TestSkipsInputsWithoutGrad(t *testing.T) {
	tape := newRecordingTape()
	w := tensor.MustFromSlice([]float64{2, 3}, tensor.Shape{2}).RequireGrad()
	x := tensor.MustFromSlice([]float64{5, 7}, tensor.Shape{2})

	y, err := tape.Mul(w, x)
	require.NoError(t, err)
	loss, err := tape.Sum(y)
	require.NoError(t, err)
	require.NoError(t, tape.Backward(loss))

	assert.Equal(t, []float64{5, 7}, w.Grad().Data())
	assert.Nil(t, x.Grad())
}

func TestReusedTensorAccumulates(t *testing.T) {
	// loss = sum(x + x*x) -> dx = 1 + 2x
	tape := newRecordingTape()
	x := tensor.MustFromSlice([]float64{1, -2}, tensor.Shape{2}).RequireGrad()

	sq, err := tape.Mul(x, x)
	require.NoError(t, err)
	y, err := tape.Add(x, sq)
	require.NoError(t, err)
	loss, err := tape.Sum(y)
	require.NoError(t, err)
	require.NoError(t, tape.Backward(loss))

	assert.Equal(t, []float64{3, -3}, x.Grad().Data())
}

func TestBroadcastGradientReduced(t *testing.T) {
	tape := newRecordingTape()
	x := tensor.MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}).RequireGrad()
	bias := tensor.MustFromSlice([]float64{0.5, 0.5, 0.5}, tensor.Shape{3}).RequireGrad()

	y, err := tape.Add(x, bias)
	require.NoError(t, err)
	loss, err := tape.Sum(y)
	require.NoError(t, err)
	require.NoError(t, tape.Backward(loss))

	assert.Equal(t, tensor.Shape{3}, bias.Grad().Shape())
	assert.Equal(t, []float64{2, 2, 2}, bias.Grad().Data())
}

func TestNotRecording(t *testing.T) {
	tape := NewTape(cpu.New())
	assert.False(t, tape.IsRecording())

	x := tensor.MustFromSlice([]float64{1, 2}, tensor.Shape{2}).RequireGrad()
	y, err := tape.Exp(x)
	require.NoError(t, err)

	assert.Zero(t, tape.NumNodes())
	assert.False(t, y.RequiresGrad())
	assert.True(t, y.IsLeaf())
}

func TestResetStartsNewGeneration(t *testing.T) {
	tape := newRecordingTape()
	x := tensor.MustFromSlice([]float64{1, 2}, tensor.Shape{2}).RequireGrad()

	y, err := tape.Tanh(x)
	require.NoError(t, err)
	_, ok := tape.NodeOf(y)
	require.True(t, ok)

	gen := tape.Graph()
	tape.Reset()
	assert.NotEqual(t, gen, tape.Graph())
	assert.Zero(t, tape.NumNodes())
	assert.True(t, tape.IsRecording())

	// y's handle is stale: it is treated as a leaf of the new generation.
	_, ok = tape.NodeOf(y)
	assert.False(t, ok)

	loss, err := tape.Sum(y)
	require.NoError(t, err)
	require.NoError(t, tape.Backward(loss))
	assert.Equal(t, []float64{1, 1}, y.Grad().Data())
	assert.Nil(t, x.Grad())
}

func TestSeparateTapesHaveDistinctGraphs(t *testing.T) {
	a := NewTape(cpu.New())
	b := NewTape(cpu.New())
	assert.NotEqual(t, a.Graph(), b.Graph())
}

func TestValidate(t *testing.T) {
	tape := newRecordingTape()
	x := tensor.MustFromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2}).RequireGrad()

	h, err := tape.MatMul(x, x)
	require.NoError(t, err)
	h, err = tape.Sigmoid(h)
	require.NoError(t, err)
	_, err = tape.Mean(h)
	require.NoError(t, err)

	require.Equal(t, 3, tape.NumNodes())
	require.NoError(t, tape.Validate())

	op, ok := tape.Node(0)
	require.True(t, ok)
	assert.Equal(t, ops.KindMatMul, op.Kind())

	_, ok = tape.Node(3)
	assert.False(t, ok)
}

func TestValidate_DetectsForwardReference(t *testing.T) {
	tape := newRecordingTape()
	x := tensor.MustFromSlice([]float64{1}, tensor.Shape{1}).RequireGrad()

	y, err := tape.Exp(x)
	require.NoError(t, err)
	_, err = tape.Exp(y)
	require.NoError(t, err)

	// Corrupt the handle so the first node's input claims a later creator.
	x.SetCreator(tensor.Creator{Graph: tape.Graph(), Node: 1})

	var ge *GradientError
	assert.True(t, errors.As(tape.Validate(), &ge))
}

func TestShapeErrorsPassThrough(t *testing.T) {
	tape := newRecordingTape()
	a := tensor.Zeros(tensor.Shape{2, 3}).RequireGrad()
	b := tensor.Zeros(tensor.Shape{2, 3})

	_, err := tape.MatMul(a, b)
	var se *tensor.ShapeError
	assert.True(t, errors.As(err, &se))
	assert.Zero(t, tape.NumNodes())
}
