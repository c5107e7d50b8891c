// Package patch resolves partial-update fields against current values.
package patch

// Coalesce returns *v when the field was sent, otherwise current.
func Coalesce[T any](v *T, current T) T {
	if v != nil {
		return *v
	}
	return current
}

// Slice treats a nil slice as "not sent". An empty non-nil slice is a value.
func Slice[T any](v []T, current []T) []T {
	if v != nil {
		return v
	}
	return current
}
