package dataset

import (
	"path/filepath"
)

// Source loads a dataset by name.
type Source interface {
	Load(name string) (*Dataset, error)
}

// DefaultLabelColumn is the label column DirSource uses when none is set.
const DefaultLabelColumn = "class"

// DirSource reads <Dir>/<name>.csv.
type DirSource struct {
	Dir         string
	LabelColumn string
}

// Load implements Source.
func (s DirSource) Load(name string) (*Dataset, error) {
	label := s.LabelColumn
	if label == "" {
		label = DefaultLabelColumn
	}
	return LoadCSV(filepath.Join(s.Dir, name+".csv"), name, label)
}

// ToySource reads the SPECTF heart training file. The file has no header,
// so its first row is consumed as one and the label column is named "1".
type ToySource struct {
	Dir string
}

const (
	toyFile        = "SPECTF.train"
	toyLabelColumn = "1"
)

// Load implements Source. The name is ignored.
func (s ToySource) Load(string) (*Dataset, error) {
	dir := s.Dir
	if dir == "" {
		dir = filepath.Join("data", "toy")
	}
	return LoadCSV(filepath.Join(dir, toyFile), "toy", toyLabelColumn)
}

// Catalog dispatches named datasets to dedicated sources and everything
// else to Fallback.
type Catalog struct {
	Named    map[string]Source
	Fallback Source
}

// NewCatalog returns a catalog serving "toy" from <dataDir>/toy and every
// other name from <dataDir>/<name>.csv.
func NewCatalog(dataDir string) *Catalog {
	return &Catalog{
		Named:    map[string]Source{"toy": ToySource{Dir: filepath.Join(dataDir, "toy")}},
		Fallback: DirSource{Dir: dataDir},
	}
}

// Load implements Source.
func (c *Catalog) Load(name string) (*Dataset, error) {
	if s, ok := c.Named[name]; ok {
		return s.Load(name)
	}
	return c.Fallback.Load(name)
}
