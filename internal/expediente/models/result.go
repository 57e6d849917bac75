package models

import (
	"fmt"

	dErrors "expediente/pkg/domain-errors"
)

// PassResult is the outcome of one optional sub-analysis. A pass that fails
// carries Err and a zero Value; callers omit it from the output.
type PassResult[T any] struct {
	Pass  string
	Value T
	Err   error
}

// Available reports whether the pass produced a value.
func (r PassResult[T]) Available() bool {
	return r.Err == nil
}

// Get returns a pointer to the value, or nil when the pass failed.
func (r PassResult[T]) Get() *T {
	if r.Err != nil {
		return nil
	}
	v := r.Value
	return &v
}

// RunPass runs fn and converts a returned error or a panic into a failed
// result, so one pass never takes the rest of the analysis down.
func RunPass[T any](name string, fn func() (T, error)) (res PassResult[T]) {
	res.Pass = name
	defer func() {
		if r := recover(); r != nil {
			var zero T
			res.Value = zero
			res.Err = dErrors.New(dErrors.CodeInternal, fmt.Sprintf("%s: %v", name, r))
		}
	}()
	v, err := fn()
	if err != nil {
		res.Err = dErrors.Wrap(err, dErrors.CodeInternal, name)
		return res
	}
	res.Value = v
	return res
}
