package dataset

import (
	"sort"
	"strconv"

	cverrors "github.com/YuminosukeSato/cvbench/pkg/errors"
)

// LabelEncoder maps raw class labels to 0..C-1 in sorted order. Labels sort
// numerically when every label parses as a number, lexically otherwise.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

// NewLabelEncoder creates an unfitted encoder.
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{}
}

// Fit learns the distinct labels.
func (e *LabelEncoder) Fit(labels []string) error {
	if len(labels) == 0 {
		return cverrors.ErrEmptyData
	}
	seen := make(map[string]struct{})
	classes := make([]string, 0)
	for _, l := range labels {
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			classes = append(classes, l)
		}
	}
	sortLabels(classes)

	e.classes = classes
	e.index = make(map[string]int, len(classes))
	for i, c := range classes {
		e.index[c] = i
	}
	return nil
}

// Transform encodes labels. Unseen labels are a ValueError.
func (e *LabelEncoder) Transform(labels []string) ([]float64, error) {
	if e.index == nil {
		return nil, cverrors.NewNotFittedError("LabelEncoder", "Transform")
	}
	out := make([]float64, len(labels))
	for i, l := range labels {
		code, ok := e.index[l]
		if !ok {
			return nil, cverrors.NewValueError("LabelEncoder.Transform", "previously unseen label "+strconv.Quote(l))
		}
		out[i] = float64(code)
	}
	return out, nil
}

// FitTransform fits and encodes labels.
func (e *LabelEncoder) FitTransform(labels []string) ([]float64, error) {
	if err := e.Fit(labels); err != nil {
		return nil, err
	}
	return e.Transform(labels)
}

// Classes returns the learned labels; Classes()[i] is encoded as i.
func (e *LabelEncoder) Classes() []string {
	out := make([]string, len(e.classes))
	copy(out, e.classes)
	return out
}

// InverseTransform maps a code back to its label.
func (e *LabelEncoder) InverseTransform(code int) (string, error) {
	if code < 0 || code >= len(e.classes) {
		return "", cverrors.NewValueError("LabelEncoder.InverseTransform", "code "+strconv.Itoa(code)+" out of range")
	}
	return e.classes[code], nil
}

func sortLabels(labels []string) {
	numeric := make([]float64, len(labels))
	for i, l := range labels {
		v, err := strconv.ParseFloat(l, 64)
		if err != nil {
			sort.Strings(labels)
			return
		}
		numeric[i] = v
	}
	sort.Sort(byValue{labels, numeric})
}

type byValue struct {
	labels []string
	values []float64
}

func (b byValue) Len() int           { return len(b.labels) }
func (b byValue) Less(i, j int) bool { return b.values[i] < b.values[j] }
func (b byValue) Swap(i, j int) {
	b.labels[i], b.labels[j] = b.labels[j], b.labels[i]
	b.values[i], b.values[j] = b.values[j], b.values[i]
}
