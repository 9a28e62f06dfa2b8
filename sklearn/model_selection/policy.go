package model_selection

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cvbench/dataset"
	"github.com/YuminosukeSato/cvbench/pkg/log"
)

// Default fold policy values.
const (
	DefaultLeaveOneOutBelow = 50
	DefaultK                = 5
	DefaultMaxSamples       = 1000
)

// Policy chooses a splitter from the sample count.
//
// Below LeaveOneOutBelow samples every sample is held out once; otherwise a
// stratified K-fold is used, or a plain K-fold when Unstratified is set.
// MaxSamples > 0 restricts splitting to the first
// MaxSamples rows; the rest are left out of every fold.
type Policy struct {
	LeaveOneOutBelow int    `yaml:"leave_one_out_below" validate:"gte=0"`
	K                int    `yaml:"k" validate:"gte=0"`
	MaxSamples       int    `yaml:"max_samples" validate:"gte=0"`
	Unstratified     bool   `yaml:"unstratified"`
	Shuffle          bool   `yaml:"shuffle"`
	Seed             uint64 `yaml:"seed"`
}

// DefaultPolicy returns leave-one-out below 50 samples, stratified 5-fold
// otherwise, capped at 1000 rows, without shuffling.
func DefaultPolicy() Policy {
	return Policy{
		LeaveOneOutBelow: DefaultLeaveOneOutBelow,
		K:                DefaultK,
		MaxSamples:       DefaultMaxSamples,
	}
}

func (p Policy) k() int {
	if p.K <= 0 {
		return DefaultK
	}
	return p.K
}

// RowCap returns how many of n rows the policy uses.
func (p Policy) RowCap(n int) int {
	if p.MaxSamples > 0 && n > p.MaxSamples {
		return p.MaxSamples
	}
	return n
}

// Splitter returns the splitter used for n samples.
func (p Policy) Splitter(n int) Splitter {
	if n < p.LeaveOneOutBelow {
		return LeaveOneOut{}
	}
	if p.Unstratified {
		return NewKFold(p.k(), p.Shuffle, p.Seed)
	}
	return NewStratifiedKFold(p.k(), p.Shuffle, p.Seed)
}

// Split partitions y under the policy. The returned strategy name is the
// splitter that produced the folds.
func (p Policy) Split(y mat.Vector) ([]Fold, string, error) {
	n := y.Len()
	used := p.RowCap(n)
	if used < n {
		log.GetLoggerWithName("model_selection").Warn("sample cap applied before splitting",
			log.SamplesKey, n,
			"samples.used", used,
		)
		head := make([]int, used)
		for i := range head {
			head[i] = i
		}
		y = dataset.SelectLabels(y, head)
	}

	splitter := p.Splitter(used)
	folds, err := splitter.Split(y)
	if err != nil {
		return nil, splitter.Name(), err
	}
	return folds, splitter.Name(), nil
}
