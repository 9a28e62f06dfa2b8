package dataset

import (
	"bufio"
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/mat"

	cverrors "github.com/YuminosukeSato/cvbench/pkg/errors"
	"github.com/YuminosukeSato/cvbench/pkg/log"
)

// missingTokens are cell values read as NaN.
var missingTokens = map[string]struct{}{
	"":    {},
	"?":   {},
	"NA":  {},
	"NaN": {},
	"nan": {},
}

// LoadCSV reads a CSV file whose first row is a header. The column named
// labelColumn holds the class labels; every other column is a feature.
func LoadCSV(path, name, labelColumn string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cvbench: open dataset %s", path)
	}
	defer file.Close()

	return ReadCSV(bufio.NewReader(file), name, labelColumn)
}

// ReadCSV is LoadCSV over an arbitrary reader.
func ReadCSV(r io.Reader, name, labelColumn string) (*Dataset, error) {
	logger := log.GetLoggerWithName("dataset")

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, cverrors.ErrEmptyData
	}
	if err != nil {
		return nil, errors.Wrap(err, "cvbench: read csv header")
	}

	labelIdx := -1
	for i, h := range header {
		if strings.TrimSpace(h) == labelColumn {
			labelIdx = i
			break
		}
	}
	if labelIdx < 0 {
		return nil, cverrors.NewConfigurationErrorf("dataset.ReadCSV", "label column %q not found in %s", labelColumn, name)
	}

	featureNames := make([]string, 0, len(header)-1)
	for i, h := range header {
		if i != labelIdx {
			featureNames = append(featureNames, strings.TrimSpace(h))
		}
	}

	var (
		values  []float64
		labels  []string
		missing int
		line    = 1
	)
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.Wrapf(err, "cvbench: read csv line %d", line)
		}
		if len(rec) != len(header) {
			return nil, cverrors.NewDataShapeError("dataset.ReadCSV", "columns on line "+strconv.Itoa(line), len(header), len(rec))
		}
		for i, cell := range rec {
			cell = strings.TrimSpace(cell)
			if i == labelIdx {
				labels = append(labels, cell)
				continue
			}
			if _, ok := missingTokens[cell]; ok {
				values = append(values, math.NaN())
				missing++
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, cverrors.NewValueError("dataset.ReadCSV", "line "+strconv.Itoa(line)+": non-numeric feature value "+strconv.Quote(cell))
			}
			values = append(values, v)
		}
	}
	if len(labels) == 0 {
		return nil, cverrors.ErrEmptyData
	}

	if missing > 0 {
		cverrors.Warn(cverrors.NewDataConversionWarning("missing value", "NaN",
			strconv.Itoa(missing)+" cells in "+name))
	}

	enc := NewLabelEncoder()
	y, err := enc.FitTransform(labels)
	if err != nil {
		return nil, err
	}

	X := mat.NewDense(len(labels), len(featureNames), values)
	ds, err := New(name, X, mat.NewVecDense(len(y), y))
	if err != nil {
		return nil, err
	}
	ds.FeatureNames = featureNames
	ds.Classes = enc.Classes()

	logger.Info("dataset loaded",
		log.DatasetKey, name,
		log.SamplesKey, len(labels),
		log.FeaturesKey, len(featureNames),
		log.ClassesKey, len(ds.Classes),
	)
	return ds, nil
}
