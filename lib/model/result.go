package model

// Result holds either the value computed by a stage or the error message it failed with.
type Result[V any] struct {
	value  V
	err    string
	failed bool
}

func Ok[V any](value V) Result[V] {
	return Result[V]{value: value}
}

func Err[V any](message string) Result[V] {
	return Result[V]{err: message, failed: true}
}

func (r Result[V]) IsErr() bool {
	return r.failed
}

func (r Result[V]) Value() (V, bool) {
	return r.value, !r.failed
}

func (r Result[V]) Error() (string, bool) {
	return r.err, r.failed
}
