package data

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/luma-ml/luma/internal/blobs"
	"k8s.io/klog/v2"
)

// HeaderMode controls how the first CSV row is treated.
type HeaderMode int

const (
	HeaderAuto    HeaderMode = iota // Header if any field of the first row is not a number
	HeaderPresent                   // First row is a header
	HeaderAbsent                    // First row is data
)

// Options configures a Loader.
type Options struct {
	// Label selects the label column by header name or 0-based index.
	// Empty selects the last column.
	Label string

	// NoLabel loads every column as a feature.
	NoLabel bool

	Header HeaderMode

	// Lazy defers reading until the dataset is first used.
	Lazy bool

	// Comma is the field delimiter (default ',').
	Comma rune
}

// Loader reads a dataset from a local path or a gs:// URI.
type Loader interface {
	Load(ctx context.Context, path string, opts Options) (Dataset, error)
}

// CSVLoader reads delimited text files.
//
// Feature columns must be numeric. A label column that is not numeric is
// encoded as class indices in sorted order of the distinct values.
type CSVLoader struct {
	// Store fetches gs:// paths (default: GCS).
	Store blobs.Store
}

var _ Loader = (*CSVLoader)(nil)

// LoaderFor returns the loader for format, or for the extension of path when
// format is empty.
func LoaderFor(format, path string, store blobs.Store) (Loader, Options, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	switch format {
	case "csv", "":
		return &CSVLoader{Store: store}, Options{}, nil
	case "tsv":
		return &CSVLoader{Store: store}, Options{Comma: '\t'}, nil
	default:
		return nil, Options{}, fmt.Errorf("unsupported dataset format %q (want csv or tsv)", format)
	}
}

// Load implements Loader.
func (l *CSVLoader) Load(ctx context.Context, path string, opts Options) (Dataset, error) {
	if !blobs.IsRemote(path) {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("load dataset: %w", err)
		}
	}
	load := func() (*InMemory, error) {
		return l.load(ctx, path, opts)
	}
	if opts.Lazy {
		klog.FromContext(ctx).V(1).Info("deferring dataset load", "path", path)
		return NewLazy(load), nil
	}
	return load()
}

func (l *CSVLoader) load(ctx context.Context, path string, opts Options) (*InMemory, error) {
	log := klog.FromContext(ctx)

	local := path
	if blobs.IsRemote(path) {
		store := l.Store
		if store == nil {
			store = &blobs.GCSStore{}
		}
		tmp, err := blobs.Fetch(ctx, store, path)
		if err != nil {
			return nil, fmt.Errorf("load dataset: %w", err)
		}
		defer os.Remove(tmp)
		local = tmp
	}

	f, err := os.Open(local)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	defer f.Close()

	ds, err := ReadCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", path, err)
	}
	log.Info("loaded dataset", "path", path, "samples", ds.Size(), "features", ds.FeatureCount())
	return ds, nil
}

// ReadCSV parses delimited text into an in-memory dataset.
func ReadCSV(r io.Reader, opts Options) (*InMemory, error) {
	cr := csv.NewReader(r)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("empty file")
	}

	var header []string
	switch opts.Header {
	case HeaderPresent:
		header = records[0]
	case HeaderAuto:
		if slices.ContainsFunc(records[0], func(s string) bool { return !isNumber(s) }) {
			header = records[0]
		}
	}
	if header != nil {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, errors.New("no data rows")
	}

	width := len(records[0])
	label := -1
	if !opts.NoLabel {
		label, err = labelColumn(opts.Label, header, width)
		if err != nil {
			return nil, err
		}
		if width < 2 {
			return nil, fmt.Errorf("need at least one feature column besides the label, got %d columns", width)
		}
	}

	features := make([][]float64, len(records))
	rawLabels := make([]string, 0, len(records))
	for i, rec := range records {
		line := i + 1
		if header != nil {
			line++
		}
		row := make([]float64, 0, width)
		for j, field := range rec {
			if j == label {
				rawLabels = append(rawLabels, field)
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %d: not a number: %q", line, j+1, field)
			}
			row = append(row, v)
		}
		features[i] = row
	}

	ds := &InMemory{features: features}
	if label >= 0 {
		ds.labels, ds.classes, err = encodeLabels(rawLabels)
		if err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func labelColumn(spec string, header []string, width int) (int, error) {
	if spec == "" {
		return width - 1, nil
	}
	if idx := slices.Index(header, spec); idx >= 0 {
		return idx, nil
	}
	idx, err := strconv.Atoi(spec)
	if err != nil {
		return 0, fmt.Errorf("label column %q not found", spec)
	}
	if idx < 0 || idx >= width {
		return 0, fmt.Errorf("label column %d out of range (file has %d columns)", idx, width)
	}
	return idx, nil
}

// encodeLabels parses numeric labels as is and maps string labels to class
// indices.
func encodeLabels(raw []string) ([][]float64, []string, error) {
	labels := make([][]float64, len(raw))
	if !slices.ContainsFunc(raw, func(s string) bool { return !isNumber(s) }) {
		for i, s := range raw {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, nil, err
			}
			labels[i] = []float64{v}
		}
		return labels, nil, nil
	}

	classes := slices.Clone(raw)
	for i := range classes {
		classes[i] = strings.TrimSpace(classes[i])
	}
	slices.Sort(classes)
	classes = slices.Compact(classes)
	for i, s := range raw {
		idx, _ := slices.BinarySearch(classes, strings.TrimSpace(s))
		labels[i] = []float64{float64(idx)}
	}
	return labels, classes, nil
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}
