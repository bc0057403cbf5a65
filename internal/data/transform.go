package data

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sort"
)

// Transform derives a new dataset from ds. The input is never modified.
type Transform interface {
	Apply(ctx context.Context, ds Dataset, args []float64) (Dataset, error)
}

// TransformFunc adapts a function to Transform.
type TransformFunc func(ctx context.Context, ds Dataset, args []float64) (Dataset, error)

// Apply implements Transform.
func (f TransformFunc) Apply(ctx context.Context, ds Dataset, args []float64) (Dataset, error) {
	return f(ctx, ds, args)
}

// Registry maps method names to transforms.
type Registry struct {
	transforms map[string]Transform
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{transforms: make(map[string]Transform)}
}

// Register adds t under name, replacing any previous entry.
func (r *Registry) Register(name string, t Transform) {
	r.transforms[name] = t
}

// Lookup returns the transform registered under name.
func (r *Registry) Lookup(name string) (Transform, bool) {
	t, ok := r.transforms[name]
	return t, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.transforms))
	for name := range r.transforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preprocessors returns the registry used by the preprocess command:
//
//	normalize       per-feature z-score
//	minmax(lo, hi)  per-feature rescale to [lo, hi] (default [0, 1])
func Preprocessors() *Registry {
	r := NewRegistry()
	r.Register("normalize", TransformFunc(normalize))
	r.Register("minmax", TransformFunc(minMax))
	return r
}

// Augmentations returns the registry used by the augment command:
//
//	noise(scale[, seed])  add uniform noise in [-scale, scale) to every feature
//	flip                  reverse the feature order of every sample
//	scale(f)              multiply every feature by f
func Augmentations() *Registry {
	r := NewRegistry()
	r.Register("noise", TransformFunc(noise))
	r.Register("flip", TransformFunc(flip))
	r.Register("scale", TransformFunc(scaleFeatures))
	return r
}

func checkArgs(method string, args []float64, lo, hi int) error {
	if len(args) < lo || len(args) > hi {
		if lo == hi {
			return fmt.Errorf("%s takes %d argument(s), got %d", method, lo, len(args))
		}
		return fmt.Errorf("%s takes %d to %d arguments, got %d", method, lo, hi, len(args))
	}
	return nil
}

// mapFeatures copies ds with every feature row replaced by fn(i, row).
func mapFeatures(ds Dataset, fn func(i int, row []float64) []float64) (*InMemory, error) {
	src, err := Materialize(ds)
	if err != nil {
		return nil, err
	}
	out := &InMemory{
		features: make([][]float64, src.Size()),
		labels:   src.labels,
		classes:  src.classes,
	}
	for i, row := range src.features {
		out.features[i] = fn(i, slices.Clone(row))
	}
	return out, nil
}

// columnStats returns per-feature mean and population standard deviation.
func columnStats(ds *InMemory) (mean, std []float64) {
	width := ds.FeatureCount()
	mean = make([]float64, width)
	std = make([]float64, width)
	n := float64(ds.Size())
	if n == 0 {
		return mean, std
	}
	for _, row := range ds.features {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= n
	}
	for _, row := range ds.features {
		for j, v := range row {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / n)
	}
	return mean, std
}

// normalize subtracts each feature's mean and divides by its standard
// deviation. Constant features are only centered.
func normalize(_ context.Context, ds Dataset, args []float64) (Dataset, error) {
	if err := checkArgs("normalize", args, 0, 0); err != nil {
		return nil, err
	}
	src, err := Materialize(ds)
	if err != nil {
		return nil, err
	}
	mean, std := columnStats(src)
	return mapFeatures(src, func(_ int, row []float64) []float64 {
		for j := range row {
			row[j] -= mean[j]
			if std[j] != 0 {
				row[j] /= std[j]
			}
		}
		return row
	})
}

// minMax rescales each feature to [lo, hi]. Constant features map to lo.
func minMax(_ context.Context, ds Dataset, args []float64) (Dataset, error) {
	if err := checkArgs("minmax", args, 0, 2); err != nil {
		return nil, err
	}
	lo, hi := 0.0, 1.0
	if len(args) == 2 {
		lo, hi = args[0], args[1]
	} else if len(args) == 1 {
		return nil, fmt.Errorf("minmax takes both bounds or none")
	}
	if !(lo < hi) {
		return nil, fmt.Errorf("minmax lower bound %v must be below upper bound %v", lo, hi)
	}
	src, err := Materialize(ds)
	if err != nil {
		return nil, err
	}
	width := src.FeatureCount()
	colMin := make([]float64, width)
	colMax := make([]float64, width)
	for j := range width {
		colMin[j] = math.Inf(1)
		colMax[j] = math.Inf(-1)
	}
	for _, row := range src.features {
		for j, v := range row {
			colMin[j] = math.Min(colMin[j], v)
			colMax[j] = math.Max(colMax[j], v)
		}
	}
	return mapFeatures(src, func(_ int, row []float64) []float64 {
		for j, v := range row {
			span := colMax[j] - colMin[j]
			if span == 0 {
				row[j] = lo
				continue
			}
			row[j] = lo + (v-colMin[j])*(hi-lo)/span
		}
		return row
	})
}

func noise(_ context.Context, ds Dataset, args []float64) (Dataset, error) {
	if err := checkArgs("noise", args, 1, 2); err != nil {
		return nil, err
	}
	scale := args[0]
	if scale < 0 || math.IsNaN(scale) {
		return nil, fmt.Errorf("noise scale must be non-negative, got %v", scale)
	}
	var seed int64
	if len(args) == 2 {
		seed = int64(args[1])
	}
	rng := rand.New(rand.NewSource(seed))
	return mapFeatures(ds, func(_ int, row []float64) []float64 {
		for j := range row {
			row[j] += (2*rng.Float64() - 1) * scale
		}
		return row
	})
}

func flip(_ context.Context, ds Dataset, args []float64) (Dataset, error) {
	if err := checkArgs("flip", args, 0, 0); err != nil {
		return nil, err
	}
	return mapFeatures(ds, func(_ int, row []float64) []float64 {
		slices.Reverse(row)
		return row
	})
}

func scaleFeatures(_ context.Context, ds Dataset, args []float64) (Dataset, error) {
	if err := checkArgs("scale", args, 1, 1); err != nil {
		return nil, err
	}
	f := args[0]
	return mapFeatures(ds, func(_ int, row []float64) []float64 {
		for j := range row {
			row[j] *= f
		}
		return row
	})
}
