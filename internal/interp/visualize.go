package interp

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/luma-ml/luma/internal/data"
	"github.com/luma-ml/luma/internal/nn"
)

// VisualizeOptions controls a rendering.
type VisualizeOptions struct {
	Rows int // Sample rows previewed for datasets
}

// Visualizer renders a bound value for the visualize command.
type Visualizer interface {
	Visualize(w io.Writer, name string, v Value, opts VisualizeOptions) error
}

// TextVisualizer renders values as plain-text tables.
type TextVisualizer struct{}

var _ Visualizer = TextVisualizer{}

// Visualize implements Visualizer.
func (TextVisualizer) Visualize(w io.Writer, name string, v Value, opts VisualizeOptions) error {
	switch v := v.(type) {
	case *ModelValue:
		return visualizeModel(w, name, v)
	case *DatasetValue:
		return visualizeDataset(w, name, v.D, opts.Rows)
	case *TensorValue:
		fmt.Fprintf(w, "%s: tensor %s\n%s\n", name, v.T.Shape(), v.T.Format())
		if g := v.T.Grad(); g != nil {
			fmt.Fprintf(w, "grad:\n%s\n", g.Format())
		}
		return nil
	default:
		_, err := fmt.Fprintf(w, "%s: %s %s\n", name, KindOf(v), Describe(v))
		return err
	}
}

func visualizeModel(w io.Writer, name string, mv *ModelValue) error {
	if mv.Net != nil {
		_, err := fmt.Fprintf(w, "%s:\n%s\n", name, mv.Net.Summary())
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s: not built\n", name)
	fmt.Fprintln(tw, "#\tlayer\tparams")
	for i, spec := range mv.Spec {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i, spec.Kind, specParams(spec))
	}
	return tw.Flush()
}

func specParams(spec nn.LayerSpec) string {
	keys := make([]string, 0, len(spec.Params))
	for k := range spec.Params {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, spec.Params[k])
	}
	return strings.Join(parts, " ")
}

func visualizeDataset(w io.Writer, name string, ds data.Dataset, rows int) error {
	mem, err := data.Materialize(ds)
	if err != nil {
		return err
	}
	n, width := mem.Size(), mem.FeatureCount()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%s: %d samples, %d features\n", name, n, width)
	if n == 0 {
		return tw.Flush()
	}

	fmt.Fprintln(tw, "feature\tmean\tstd\tmin\tmax\t")
	for j := range width {
		mean, std, lo, hi := featureStats(mem, j)
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t\n", j, num(mean), num(std), num(lo), num(hi))
	}

	rows = min(rows, n)
	if rows > 0 {
		fmt.Fprintln(tw, "\t\t\t\t\t")
		header := "row\t"
		for j := range width {
			header += "x" + strconv.Itoa(j) + "\t"
		}
		if mem.LabelCount() > 0 {
			header += "label\t"
		}
		fmt.Fprintln(tw, header)
		for i := range rows {
			features, labels := mem.Row(i)
			line := strconv.Itoa(i) + "\t"
			for _, f := range features {
				line += num(f) + "\t"
			}
			if labels != nil {
				line += labelText(mem, labels) + "\t"
			}
			fmt.Fprintln(tw, line)
		}
	}
	return tw.Flush()
}

// featureStats returns the mean, population standard deviation, minimum and
// maximum of column j.
func featureStats(ds *data.InMemory, j int) (mean, std, lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	n := float64(ds.Size())
	for i := range ds.Size() {
		row, _ := ds.Row(i)
		mean += row[j] / n
		lo = math.Min(lo, row[j])
		hi = math.Max(hi, row[j])
	}
	for i := range ds.Size() {
		row, _ := ds.Row(i)
		d := row[j] - mean
		std += d * d / n
	}
	return mean, math.Sqrt(std), lo, hi
}

func labelText(ds *data.InMemory, labels []float64) string {
	classes := ds.Classes()
	if len(labels) == 1 && classes != nil {
		if k := int(labels[0]); k >= 0 && k < len(classes) {
			return classes[k]
		}
	}
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = num(l)
	}
	return strings.Join(parts, ",")
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'g', 4, 64)
}
