package utils

// Value dereferences a pointer, returning the zero value for nil.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

// Ptr returns a pointer to v, for building partial-update payloads.
func Ptr[T any](v T) *T {
	return &v
}
