package retry

type resultKind uint8

const (
	kindNotFound resultKind = iota
	kindFound
	kindFailed
)

// Result is the outcome of one lookup: Found(v), NotFound() or Failed(err).
// The zero value is NotFound.
type Result[T any] struct {
	kind  resultKind
	value T
	err   error
}

// Found wraps a present value.
func Found[T any](v T) Result[T] {
	return Result[T]{kind: kindFound, value: v}
}

// NotFound signals the value does not exist (yet).
func NotFound[T any]() Result[T] {
	return Result[T]{kind: kindNotFound}
}

// Failed wraps a real error.
func Failed[T any](err error) Result[T] {
	return Result[T]{kind: kindFailed, err: err}
}

// Value returns the value and whether it was found.
func (r Result[T]) Value() (T, bool) {
	return r.value, r.kind == kindFound
}

// IsFound reports a Found result.
func (r Result[T]) IsFound() bool { return r.kind == kindFound }

// IsNotFound reports a NotFound result.
func (r Result[T]) IsNotFound() bool { return r.kind == kindNotFound }

// Err returns the error of a Failed result, nil otherwise.
func (r Result[T]) Err() error {
	if r.kind != kindFailed {
		return nil
	}
	return r.err
}
