package model

import (
	"sync"

	cverrors "github.com/YuminosukeSato/cvbench/pkg/errors"
)

// StateManager manages the fitted state of a stage in a thread-safe manner.
// Stages embed it by composition and create a fresh one on CloneUnfitted.
type StateManager struct {
	mu     sync.RWMutex
	fitted bool

	// Dimensions seen during fitting.
	nFeatures int
	nSamples  int
}

// NewStateManager creates a new StateManager instance.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted returns whether the model has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fitted
}

// SetFitted marks the model as fitted with the dimensions of its training data.
func (s *StateManager) SetFitted(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = true
	s.nFeatures = nFeatures
	s.nSamples = nSamples
}

// Reset resets the fitted state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = false
	s.nFeatures = 0
	s.nSamples = 0
}

// Dimensions returns the number of features and samples seen during fitting.
func (s *StateManager) Dimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nFeatures, s.nSamples
}

// RequireFitted returns a NotFittedError naming the stage and method if the
// stage has not been fitted.
func (s *StateManager) RequireFitted(stage, method string) error {
	if !s.IsFitted() {
		return cverrors.NewNotFittedError(stage, method)
	}
	return nil
}

// RequireFeatures checks a fitted stage against the column count of X.
func (s *StateManager) RequireFeatures(stage, method string, nFeatures int) error {
	if err := s.RequireFitted(stage, method); err != nil {
		return err
	}
	want, _ := s.Dimensions()
	if want != nFeatures {
		return cverrors.NewDimensionError(stage+"."+method, want, nFeatures, 1)
	}
	return nil
}
