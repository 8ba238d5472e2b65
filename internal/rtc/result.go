package rtc

import "errors"

// Status is the outcome class of a facade operation.
type Status uint8

const (
	// StatusOK indicates the operation ran.
	StatusOK Status = iota
	// StatusUnsupported indicates the active runtime has no implementation.
	StatusUnsupported
	// StatusFailed indicates an error occurred.
	StatusFailed
	// StatusSkipped indicates the operation was deliberately not run.
	StatusSkipped
)

// String returns a string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnsupported:
		return "unsupported"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Empty is the value of operations that produce nothing.
type Empty struct{}

// Result is the outcome of a facade operation.
type Result[T any] struct {
	Status Status

	// Value is set when Status is StatusOK.
	Value T

	// Feature names the missing capability when Status is StatusUnsupported.
	Feature string

	// Err is set for unsupported and failed results.
	Err error
}

// OK returns a successful result.
func OK[T any](v T) Result[T] {
	return Result[T]{Status: StatusOK, Value: v}
}

// Unsupported returns a result for a capability the runtime lacks.
func Unsupported[T any](feature string) Result[T] {
	return Result[T]{
		Status:  StatusUnsupported,
		Feature: feature,
		Err:     &UnsupportedError{Feature: feature},
	}
}

// Failed returns a failed result. An UnsupportedError cause produces an
// unsupported result instead.
func Failed[T any](err error) Result[T] {
	var ue *UnsupportedError
	if errors.As(err, &ue) {
		return Result[T]{Status: StatusUnsupported, Feature: ue.Feature, Err: err}
	}
	return Result[T]{Status: StatusFailed, Err: err}
}

// Skipped returns a result for an operation that was not run.
func Skipped[T any]() Result[T] {
	return Result[T]{Status: StatusSkipped}
}

// From returns OK(v) when err is nil and Failed(err) otherwise.
func From[T any](v T, err error) Result[T] {
	if err != nil {
		return Failed[T](err)
	}
	return OK(v)
}

// IsOK returns true if the operation ran.
func (r Result[T]) IsOK() bool {
	return r.Status == StatusOK
}

// IsUnsupported returns true if the capability has no implementation.
func (r Result[T]) IsUnsupported() bool {
	return r.Status == StatusUnsupported
}

// IsSkipped returns true if the operation was not run.
func (r Result[T]) IsSkipped() bool {
	return r.Status == StatusSkipped
}

// Unwrap converts the result into a value and error. Skipped results return
// the zero value and no error.
func (r Result[T]) Unwrap() (T, error) {
	if r.Status == StatusOK || r.Status == StatusSkipped {
		return r.Value, nil
	}
	return r.Value, r.Err
}

// mapResult converts r into a Result[U], applying fn to an OK value. An
// error from fn turns the result into Failed.
func mapResult[T, U any](r Result[T], fn func(T) (U, error)) Result[U] {
	if r.Status != StatusOK {
		return Result[U]{Status: r.Status, Feature: r.Feature, Err: r.Err}
	}
	v, err := fn(r.Value)
	return From(v, err)
}
