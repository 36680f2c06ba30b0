// Package collectionutil holds generic slice helpers used by the command
// layer.
package collectionutil

// Filter returns the elements of arr for which keep reports true,
// preserving order. The input is never modified.
func Filter[T any](arr []T, keep func(T) bool) []T {
	out := make([]T, 0, len(arr))
	for _, v := range arr {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
