// Package interp executes parsed pipeline scripts.
//
// An Evaluator owns one Environment of named Values and runs Commands
// against it, delegating to the data, nn, train and export packages. A
// Session adds the line-oriented front end used by script files and the
// interactive shell.
package interp

import (
	"fmt"
	"strconv"

	"github.com/luma-ml/luma/internal/data"
	"github.com/luma-ml/luma/internal/nn"
	"github.com/luma-ml/luma/internal/tensor"
)

// Value is a runtime value bound to a name. The set of implementations is
// closed: *TensorValue, *DatasetValue, *ModelValue, ScalarValue and
// TextValue.
type Value interface {
	value()
}

// TensorValue holds a tensor.
type TensorValue struct {
	T *tensor.Tensor
}

// DatasetValue holds a dataset handle.
type DatasetValue struct {
	D data.Dataset
}

// ModelValue holds a model definition and, once its input width is known,
// the built network.
type ModelValue struct {
	Net  *nn.Sequential // nil until built
	Spec []nn.LayerSpec
	Seed int64  // Weight initialization seed
	Loss string // Loss of the last training run
}

// ScalarValue is a number.
type ScalarValue float64

// TextValue is a string.
type TextValue string

func (*TensorValue) value()  {}
func (*DatasetValue) value() {}
func (*ModelValue) value()   {}
func (ScalarValue) value()   {}
func (TextValue) value()     {}

// Value kind names.
const (
	KindTensor  = "tensor"
	KindDataset = "dataset"
	KindModel   = "model"
	KindScalar  = "scalar"
	KindText    = "text"
)

// KindOf names the variant of v.
func KindOf(v Value) string {
	switch v.(type) {
	case *TensorValue:
		return KindTensor
	case *DatasetValue:
		return KindDataset
	case *ModelValue:
		return KindModel
	case ScalarValue:
		return KindScalar
	case TextValue:
		return KindText
	}
	return fmt.Sprintf("%T", v)
}

// Describe renders v for print and list.
func Describe(v Value) string {
	switch v := v.(type) {
	case *TensorValue:
		return v.T.Format()
	case *DatasetValue:
		return fmt.Sprintf("dataset(%d samples, %d features)", v.D.Size(), v.D.FeatureCount())
	case *ModelValue:
		if v.Net == nil {
			return fmt.Sprintf("model(%d layers, not built)", len(v.Spec))
		}
		return fmt.Sprintf("model(%d layers, %d params)", len(v.Net.Layers()), v.Net.NumParams())
	case ScalarValue:
		return strconv.FormatFloat(float64(v), 'g', -1, 64)
	case TextValue:
		return string(v)
	}
	return fmt.Sprintf("%v", v)
}
