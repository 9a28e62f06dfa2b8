package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Stage phases reported by StageFitError.
const (
	PhaseFit       = "fit"
	PhaseTransform = "transform"
	PhaseResample  = "resample"
	PhasePredict   = "predict"
)

// ConfigurationError reports an infeasible or invalid experiment setup: a
// fold/class-count combination that cannot be split, an unknown metric name,
// or an empty configuration space.
type ConfigurationError struct {
	Op     string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("cvbench: %s: invalid configuration: %s", e.Op, e.Reason)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *ConfigurationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("reason", e.Reason).
		Str("type", "ConfigurationError")
}

// NewConfigurationError creates a ConfigurationError with a stack trace.
func NewConfigurationError(op, reason string) error {
	return errors.WithStack(&ConfigurationError{Op: op, Reason: reason})
}

// NewConfigurationErrorf is NewConfigurationError with a formatted reason.
func NewConfigurationErrorf(op, format string, args ...interface{}) error {
	return NewConfigurationError(op, fmt.Sprintf(format, args...))
}

// StageFitError reports a pluggable stage that failed while fitting,
// transforming, resampling or predicting. Fold and Config are -1 until the
// evaluation engine or searcher annotates them.
type StageFitError struct {
	Stage  string
	Phase  string
	Fold   int
	Config int
	Err    error
}

func (e *StageFitError) Error() string {
	where := ""
	if e.Config >= 0 {
		where += fmt.Sprintf(" config %d", e.Config)
	}
	if e.Fold >= 0 {
		where += fmt.Sprintf(" fold %d", e.Fold)
	}
	if where != "" {
		where = " (" + where[1:] + ")"
	}
	return fmt.Sprintf("cvbench: stage %q failed during %s%s: %v", e.Stage, e.Phase, where, e.Err)
}

func (e *StageFitError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *StageFitError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("stage", e.Stage).
		Str("phase", e.Phase).
		Int("fold", e.Fold).
		Int("config", e.Config).
		Str("type", "StageFitError")
	if e.Err != nil {
		event.Str("cause", e.Err.Error())
	}
}

// NewStageFitError wraps err as a StageFitError for the named stage. A nil
// err yields nil, and an err that already carries a StageFitError is
// returned unchanged so the innermost stage name wins.
func NewStageFitError(stage, phase string, err error) error {
	if err == nil {
		return nil
	}
	var existing *StageFitError
	if errors.As(err, &existing) {
		return err
	}
	return errors.WithStack(&StageFitError{Stage: stage, Phase: phase, Fold: -1, Config: -1, Err: err})
}

// AnnotateFold records the fold index on the StageFitError or
// DataShapeError carried by err, if any, and returns err.
func AnnotateFold(err error, fold int) error {
	var sfe *StageFitError
	if errors.As(err, &sfe) && sfe.Fold < 0 {
		sfe.Fold = fold
	}
	var dse *DataShapeError
	if errors.As(err, &dse) && dse.Fold < 0 {
		dse.Fold = fold
	}
	return err
}

// AnnotateConfig records the configuration index on the StageFitError
// carried by err, if any, and returns err.
func AnnotateConfig(err error, config int) error {
	var sfe *StageFitError
	if errors.As(err, &sfe) && sfe.Config < 0 {
		sfe.Config = config
	}
	return err
}

// DataShapeError reports a row-count mismatch between a feature matrix and
// its labels, or a column mismatch between train and test transforms. Fold
// is -1 outside cross-validation.
type DataShapeError struct {
	Op       string
	Detail   string
	Expected int
	Got      int
	Fold     int
}

func (e *DataShapeError) Error() string {
	where := ""
	if e.Fold >= 0 {
		where = fmt.Sprintf(" in fold %d", e.Fold)
	}
	return fmt.Sprintf("cvbench: %s: shape mismatch (%s)%s: expected %d, got %d", e.Op, e.Detail, where, e.Expected, e.Got)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *DataShapeError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("detail", e.Detail).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("fold", e.Fold).
		Str("type", "DataShapeError")
}

// NewDataShapeError creates a DataShapeError with a stack trace.
func NewDataShapeError(op, detail string, expected, got int) error {
	return errors.WithStack(&DataShapeError{Op: op, Detail: detail, Expected: expected, Got: got, Fold: -1})
}

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsStageFitError reports whether err carries a StageFitError.
func IsStageFitError(err error) bool {
	var sfe *StageFitError
	return errors.As(err, &sfe)
}

// IsDataShapeError reports whether err carries a DataShapeError.
func IsDataShapeError(err error) bool {
	var dse *DataShapeError
	return errors.As(err, &dse)
}
