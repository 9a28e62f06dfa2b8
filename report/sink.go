package report

import (
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/YuminosukeSato/cvbench/evaluation"
	"github.com/YuminosukeSato/cvbench/pkg/log"
	"github.com/YuminosukeSato/cvbench/search"
)

// FileSink lays results out under Root:
//
//	<Root>/<dataset>/aug/results.csv   augmentation folds
//	<Root>/<dataset>/aug/results.png   optional box plot
//	<Root>/<dataset>.json              best search configuration
//	<Root>/<dataset>.csv               full search table
type FileSink struct {
	Root string
	Plot bool
}

// AugPath returns where SaveAug writes the fold table of dataset.
func (s FileSink) AugPath(dataset string) string {
	return filepath.Join(s.Root, dataset, "aug", "results.csv")
}

// SearchPaths returns where SaveSearch writes the best configuration and
// the table of dataset.
func (s FileSink) SearchPaths(dataset string) (bestPath, tablePath string) {
	return filepath.Join(s.Root, dataset+".json"), filepath.Join(s.Root, dataset+".csv")
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.Wrapf(err, "report: create %s", filepath.Dir(path))
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "report: create %s", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.Wrapf(cerr, "report: close %s", path)
		}
	}()
	return write(f)
}

// SaveAug writes the augmentation fold table (and plot when enabled) and
// returns the CSV path.
func (s FileSink) SaveAug(dataset string, rs *evaluation.ResultSet) (string, error) {
	path := s.AugPath(dataset)
	if err := writeFile(path, func(w io.Writer) error { return WriteFolds(w, rs) }); err != nil {
		return "", err
	}
	logger := log.GetLoggerWithName("report")
	if s.Plot {
		plotPath := filepath.Join(filepath.Dir(path), "results.png")
		if err := PlotFolds(rs, dataset, plotPath); err != nil {
			return "", err
		}
		logger.Debug("plot written", "path", plotPath)
	}
	logger.Info("results written", log.DatasetKey, dataset, "path", path, log.RunIDKey, rs.RunID)
	return path, nil
}

// SaveSearch writes the best configuration and the full table.
func (s FileSink) SaveSearch(dataset string, res *search.Result) (bestPath, tablePath string, err error) {
	bestPath, tablePath = s.SearchPaths(dataset)
	if err := writeFile(bestPath, func(w io.Writer) error { return WriteBest(w, res) }); err != nil {
		return "", "", err
	}
	if err := writeFile(tablePath, func(w io.Writer) error { return WriteSearch(w, res) }); err != nil {
		return "", "", err
	}
	log.GetLoggerWithName("report").Info("search results written",
		log.DatasetKey, dataset, "best", bestPath, "table", tablePath, log.RunIDKey, res.RunID)
	return bestPath, tablePath, nil
}
