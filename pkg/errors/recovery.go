package errors

import (
	"fmt"
	"runtime/debug"
)

// PanicError は recover したパニックを error として運ぶ。
type PanicError struct {
	Operation  string
	Value      interface{}
	StackTrace string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.Value)
}

// String includes the stack captured at recovery.
func (e *PanicError) String() string {
	return e.Error() + "\n" + e.StackTrace
}

// NewPanicError captures the current stack for value.
func NewPanicError(operation string, value interface{}) *PanicError {
	return &PanicError{Operation: operation, Value: value, StackTrace: string(debug.Stack())}
}

// Recover must be deferred directly. A recovered panic is stored in *err;
// if *err already holds an error it is kept as the cause.
//
//	func (s *Stage) Fit(X mat.Matrix, y mat.Vector) (err error) {
//		defer errors.Recover(&err, "Stage.Fit")
//		...
//	}
func Recover(err *error, operation string) {
	r := recover()
	if r == nil {
		return
	}
	if *err != nil {
		*err = fmt.Errorf("panic in %s: %v (original error: %w)", operation, r, *err)
		return
	}
	*err = NewPanicError(operation, r)
}

// SafeExecute runs fn, turning a panic into a *PanicError.
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}

// SafeStage runs one phase of a pluggable stage. Returned errors and
// recovered panics both come back as a StageFitError naming the stage.
func SafeStage(stage, phase string, fn func() error) error {
	return NewStageFitError(stage, phase, SafeExecute(stage+"."+phase, fn))
}
