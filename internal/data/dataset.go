// Package data provides the datasets consumed by training and evaluation:
// an in-memory table of feature and label rows, views and splits over it,
// a CSV loader (local or gs:// paths, optionally lazy) and the registry of
// preprocessing and augmentation transforms.
package data

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/luma-ml/luma/internal/tensor"
)

// Dataset is a fixed-size table of samples.
//
// GetBatch returns rows [start, start+n) as x of shape [n, FeatureCount()]
// and y of shape [n, label width]. y is nil for unlabeled datasets.
type Dataset interface {
	Size() int
	FeatureCount() int
	GetBatch(start, n int) (x, y *tensor.Tensor, err error)
}

// InMemory holds every sample as float64 rows.
type InMemory struct {
	features [][]float64
	labels   [][]float64
	classes  []string // Class names when labels were encoded from strings
}

var _ Dataset = (*InMemory)(nil)

// NewInMemory creates a dataset from feature and label rows.
// Rows are not copied. labels may be nil for an unlabeled dataset.
func NewInMemory(features, labels [][]float64) (*InMemory, error) {
	if labels != nil && len(labels) != len(features) {
		return nil, fmt.Errorf("dataset has %d feature rows but %d label rows", len(features), len(labels))
	}
	if err := checkWidth("feature", features); err != nil {
		return nil, err
	}
	if err := checkWidth("label", labels); err != nil {
		return nil, err
	}
	return &InMemory{features: features, labels: labels}, nil
}

func checkWidth(what string, rows [][]float64) error {
	for i, row := range rows {
		if len(row) != len(rows[0]) {
			return fmt.Errorf("%s row %d has %d columns, want %d", what, i, len(row), len(rows[0]))
		}
	}
	return nil
}

// Size returns the number of samples.
func (d *InMemory) Size() int {
	return len(d.features)
}

// FeatureCount returns the number of feature columns.
func (d *InMemory) FeatureCount() int {
	if len(d.features) == 0 {
		return 0
	}
	return len(d.features[0])
}

// LabelCount returns the number of label columns.
func (d *InMemory) LabelCount() int {
	if len(d.labels) == 0 {
		return 0
	}
	return len(d.labels[0])
}

// Classes returns the class names for string-encoded labels, indexed by
// class id, or nil.
func (d *InMemory) Classes() []string {
	return d.classes
}

// Row returns the feature and label rows of sample i. They alias the
// dataset's storage.
func (d *InMemory) Row(i int) (features, labels []float64) {
	if d.labels != nil {
		labels = d.labels[i]
	}
	return d.features[i], labels
}

// GetBatch implements Dataset.
func (d *InMemory) GetBatch(start, n int) (*tensor.Tensor, *tensor.Tensor, error) {
	if err := checkRange(start, n, d.Size()); err != nil {
		return nil, nil, err
	}
	x, err := stackRows(d.features[start:start+n], d.FeatureCount())
	if err != nil {
		return nil, nil, err
	}
	if d.labels == nil {
		return x, nil, nil
	}
	y, err := stackRows(d.labels[start:start+n], d.LabelCount())
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

func checkRange(start, n, size int) error {
	if start < 0 || n <= 0 || start+n > size {
		return fmt.Errorf("batch [%d, %d) out of range for dataset of size %d", start, start+n, size)
	}
	return nil
}

func stackRows(rows [][]float64, width int) (*tensor.Tensor, error) {
	buf := make([]float64, 0, len(rows)*width)
	for _, row := range rows {
		buf = append(buf, row...)
	}
	return tensor.New(buf, tensor.Shape{len(rows), width})
}

// Materialize returns ds as an *InMemory, reading every sample if needed.
func Materialize(ds Dataset) (*InMemory, error) {
	switch d := ds.(type) {
	case *InMemory:
		return d, nil
	case *Lazy:
		return d.load()
	}
	if ds.Size() == 0 {
		return &InMemory{}, nil
	}
	x, y, err := ds.GetBatch(0, ds.Size())
	if err != nil {
		return nil, err
	}
	out := &InMemory{features: splitRows(x)}
	if y != nil {
		out.labels = splitRows(y)
	}
	return out, nil
}

func splitRows(t *tensor.Tensor) [][]float64 {
	shape := t.Shape()
	rows := make([][]float64, shape[0])
	width := shape[1]
	data := t.Data()
	for i := range rows {
		rows[i] = data[i*width : (i+1)*width]
	}
	return rows
}

// Subset is a view of selected samples of a base dataset.
type Subset struct {
	base    *InMemory
	indices []int
}

var _ Dataset = (*Subset)(nil)

// NewSubset returns the samples of ds at indices, in that order.
func NewSubset(ds Dataset, indices []int) (*Subset, error) {
	base, err := Materialize(ds)
	if err != nil {
		return nil, err
	}
	for _, i := range indices {
		if i < 0 || i >= base.Size() {
			return nil, fmt.Errorf("subset index %d out of range for dataset of size %d", i, base.Size())
		}
	}
	return &Subset{base: base, indices: indices}, nil
}

// Size implements Dataset.
func (s *Subset) Size() int {
	return len(s.indices)
}

// FeatureCount implements Dataset.
func (s *Subset) FeatureCount() int {
	return s.base.FeatureCount()
}

// Indices returns the base indices of the view.
func (s *Subset) Indices() []int {
	return s.indices
}

// GetBatch implements Dataset.
func (s *Subset) GetBatch(start, n int) (*tensor.Tensor, *tensor.Tensor, error) {
	if err := checkRange(start, n, s.Size()); err != nil {
		return nil, nil, err
	}
	return Gather(s.base, s.indices[start:start+n])
}

// Gather returns the samples of ds at indices stacked into x and y.
func Gather(ds Dataset, indices []int) (x, y *tensor.Tensor, err error) {
	if s, ok := ds.(*Subset); ok {
		mapped := make([]int, len(indices))
		for k, i := range indices {
			if i < 0 || i >= s.Size() {
				return nil, nil, fmt.Errorf("gather: index %d out of range for dataset of size %d", i, s.Size())
			}
			mapped[k] = s.indices[i]
		}
		return Gather(s.base, mapped)
	}
	base, err := Materialize(ds)
	if err != nil {
		return nil, nil, err
	}
	if len(indices) == 0 {
		return nil, nil, fmt.Errorf("gather: no indices")
	}
	features := make([][]float64, len(indices))
	var labels [][]float64
	if base.labels != nil {
		labels = make([][]float64, len(indices))
	}
	for k, i := range indices {
		if i < 0 || i >= base.Size() {
			return nil, nil, fmt.Errorf("gather: index %d out of range for dataset of size %d", i, base.Size())
		}
		features[k], _ = base.Row(i)
		if labels != nil {
			_, labels[k] = base.Row(i)
		}
	}
	x, err = stackRows(features, base.FeatureCount())
	if err != nil {
		return nil, nil, err
	}
	if labels == nil {
		return x, nil, nil
	}
	y, err = stackRows(labels, base.LabelCount())
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

// Split divides ds into a training part of round(n*ratio) samples and a
// test part holding the rest. With shuffle the sample order is a
// permutation drawn from seed; otherwise the original order is kept.
// The two parts are disjoint and together cover ds.
func Split(ds Dataset, ratio float64, shuffle bool, seed int64) (train, test *Subset, err error) {
	if !(ratio > 0 && ratio < 1) {
		return nil, nil, fmt.Errorf("split ratio must be in (0, 1), got %v", ratio)
	}
	n := ds.Size()
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if shuffle {
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(n, func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })
	}
	nTrain := int(math.Round(float64(n) * ratio))

	train, err = NewSubset(ds, indices[:nTrain])
	if err != nil {
		return nil, nil, err
	}
	test, err = NewSubset(ds, indices[nTrain:])
	if err != nil {
		return nil, nil, err
	}
	return train, test, nil
}
