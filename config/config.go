// Package config loads experiment settings from YAML.
package config

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	cverrors "github.com/YuminosukeSato/cvbench/pkg/errors"
	"github.com/YuminosukeSato/cvbench/sklearn/model_selection"
)

// Run modes.
const (
	ModeAug    = "aug"
	ModeSearch = "search"
)

// Experiment is one experiment run.
type Experiment struct {
	Dataset string `yaml:"dataset" validate:"required"`
	DataDir string `yaml:"data_dir" validate:"required"`
	Mode    string `yaml:"mode" validate:"oneof=aug search"`

	// Aug mode only.
	FeatureSelection string `yaml:"feature_selection" validate:"required_if=Mode aug"`
	Classifier       string `yaml:"classifier" validate:"required_if=Mode aug"`
	K                int    `yaml:"k" validate:"gte=0"`

	Policy        model_selection.Policy `yaml:"policy"`
	Metrics       []string               `yaml:"metrics" validate:"dive,required"`
	PrimaryMetric string                 `yaml:"primary_metric" validate:"required"`

	Workers       int           `yaml:"workers" validate:"gte=0"`
	SearchWorkers int           `yaml:"search_workers" validate:"gte=0"`
	FoldTimeout   time.Duration `yaml:"fold_timeout" validate:"gte=0"`
	Lenient       bool          `yaml:"lenient"`

	CacheDir   string `yaml:"cache_dir"`
	ResultsDir string `yaml:"results_dir" validate:"required"`
	Plot       bool   `yaml:"plot"`
	LogLevel   string `yaml:"log_level" validate:"oneof=debug info warn error"`
	Seed       uint64 `yaml:"seed"`
}

// Default returns the settings of the original scripts: k=10, AUC as the
// refit metric, the default fold policy, results under "results".
func Default() Experiment {
	return Experiment{
		DataDir:       "data",
		Mode:          ModeAug,
		K:             10,
		Policy:        model_selection.DefaultPolicy(),
		PrimaryMetric: "AUC",
		ResultsDir:    "results",
		LogLevel:      "info",
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints. Failures are ConfigurationErrors.
func (e Experiment) Validate() error {
	if err := validate.Struct(e); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return cverrors.NewConfigurationErrorf("config.Validate", "field %s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return cverrors.NewConfigurationError("config.Validate", err.Error())
	}
	return nil
}

// Parse decodes YAML over Default and validates the result. Unknown keys
// are rejected.
func Parse(data []byte) (Experiment, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Experiment{}, cverrors.NewConfigurationErrorf("config.Parse", "decode yaml: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return Experiment{}, err
	}
	return cfg, nil
}

// Load reads and parses the YAML file at path.
func Load(path string) (Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Experiment{}, errors.Wrapf(err, "config: read %s", path)
	}
	return Parse(data)
}
