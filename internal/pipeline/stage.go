// internal/pipeline/stage.go
package pipeline

// Stage transforms one value into the next, or returns nil when it cannot.
type Stage[T, U any] func(*T) *U

// Then runs next on the output of first. A nil from first short-circuits.
func Then[T, U, V any](first Stage[T, U], next Stage[U, V]) Stage[T, V] {
	return func(in *T) *V {
		if in == nil {
			return nil
		}
		mid := first(in)
		if mid == nil {
			return nil
		}
		return next(mid)
	}
}
