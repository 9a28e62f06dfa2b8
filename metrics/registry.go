// Package metrics provides classification scoring functions and the named
// registry the evaluation engine scores folds with.
package metrics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cvbench/pkg/errors"
)

// ScoreFunc scores predicted against true labels of one held-out fold.
type ScoreFunc func(yTrue, yPred *mat.VecDense) (float64, error)

// Registered metric names.
const (
	NameAccuracy         = "accuracy"
	NameAUC              = "AUC"
	NameROCAUC           = "ROC_AUC"
	NameBalancedAccuracy = "balanced_accuracy"
	NameF1Macro          = "f1_macro"
	NamePrecisionMacro   = "precision_macro"
	NameRecallMacro      = "recall_macro"
)

var aliases = map[string]string{NameROCAUC: NameAUC}

// Registry is an ordered name → ScoreFunc mapping. Scoring iterates in
// registration order.
type Registry struct {
	names []string
	funcs map[string]ScoreFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]ScoreFunc)}
}

// Register adds a metric. Empty or duplicate names are a ConfigurationError.
func (r *Registry) Register(name string, fn ScoreFunc) error {
	if name == "" || fn == nil {
		return errors.NewConfigurationError("metrics.Register", "metric needs a name and a function")
	}
	if _, ok := r.funcs[name]; ok {
		return errors.NewConfigurationErrorf("metrics.Register", "metric %q registered twice", name)
	}
	r.names = append(r.names, name)
	r.funcs[name] = fn
	return nil
}

// MustRegister is Register that panics on error, for static tables.
func (r *Registry) MustRegister(name string, fn ScoreFunc) *Registry {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
	return r
}

// Names returns the metric names in order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Len returns the number of metrics.
func (r *Registry) Len() int { return len(r.names) }

// Get resolves a name, following aliases such as ROC_AUC.
func (r *Registry) Get(name string) (ScoreFunc, error) {
	if fn, ok := r.funcs[name]; ok {
		return fn, nil
	}
	if target, ok := aliases[name]; ok {
		if fn, ok := r.funcs[target]; ok {
			return fn, nil
		}
	}
	return nil, errors.NewConfigurationErrorf("metrics.Get", "unknown metric %q", name)
}

// Canonical returns the registered spelling of name, resolving aliases.
func (r *Registry) Canonical(name string) (string, error) {
	if _, ok := r.funcs[name]; ok {
		return name, nil
	}
	if target, ok := aliases[name]; ok {
		if _, ok := r.funcs[target]; ok {
			return target, nil
		}
	}
	return "", errors.NewConfigurationErrorf("metrics.Canonical", "unknown metric %q", name)
}

// Has reports whether name (or its alias target) is registered.
func (r *Registry) Has(name string) bool {
	_, err := r.Get(name)
	return err == nil
}

// Subset returns a registry holding only names, in the given order and
// under the given spelling.
func (r *Registry) Subset(names []string) (*Registry, error) {
	if len(names) == 0 {
		return nil, errors.NewConfigurationError("metrics.Subset", "no metrics selected")
	}
	out := NewRegistry()
	for _, name := range names {
		fn, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		if err := out.Register(name, fn); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Score evaluates every metric on one fold, in order.
func (r *Registry) Score(yTrue, yPred *mat.VecDense) ([]float64, error) {
	out := make([]float64, len(r.names))
	for i, name := range r.names {
		v, err := r.funcs[name](yTrue, yPred)
		if err != nil {
			return nil, errors.Wrapf(err, "metric %s", name)
		}
		out[i] = v
	}
	return out, nil
}

// Default returns a fresh registry with accuracy, AUC, balanced_accuracy,
// f1_macro, precision_macro and recall_macro, in that order.
func Default() *Registry {
	return NewRegistry().
		MustRegister(NameAccuracy, Accuracy).
		MustRegister(NameAUC, MacroAUC).
		MustRegister(NameBalancedAccuracy, BalancedAccuracy).
		MustRegister(NameF1Macro, F1Macro).
		MustRegister(NamePrecisionMacro, PrecisionMacro).
		MustRegister(NameRecallMacro, RecallMacro)
}
