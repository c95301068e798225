package status

// Result is the Go analogue of the original util::StatusOr<T>: either a
// value with an OK status, or a non-OK status with no value.
type Result[T any] struct {
	value T
	st    Status
}

// From constructs a Result holding a value and an OK status. A non-OK Result
// is constructed with Err, which panics if given an OK status.
func From[T any](value T) Result[T] {
	return Result[T]{value: value, st: Ok()}
}

// Err constructs a Result holding the given non-OK status. st must not be OK.
func Err[T any](st Status) Result[T] {
	if st.IsOK() {
		panic("status: Err called with an OK status")
	}
	return Result[T]{st: st}
}

func (r Result[T]) Ok() bool          { return r.st.IsOK() }
func (r Result[T]) Status() Status    { return r.st }

// Unwrap returns the value, panicking if this Result holds an error. Mirrors
// ConsumeValueOrDie: only call where the error case is already impossible or
// already handled.
func (r Result[T]) Unwrap() T {
	if !r.Ok() {
		panic("status: Unwrap called on a non-ok Result: " + r.st.Error())
	}
	return r.value
}

// Value decomposes the Result into Go's usual (value, error) idiom.
func (r Result[T]) Value() (T, Status) {
	return r.value, r.st
}
