package api

import (
	"bytes"
	"encoding/json"
)

// Field is one entry of an update delta. The zero value is absent and is
// omitted from the payload (unchanged). Null sends JSON null (cleared).
type Field[T any] struct {
	value T
	set   bool
	null  bool
}

// Set returns a field carrying v.
func Set[T any](v T) Field[T] {
	return Field[T]{value: v, set: true}
}

// Null returns a field that clears the server-side value.
func Null[T any]() Field[T] {
	return Field[T]{set: true, null: true}
}

// IsZero reports whether the field is absent. encoding/json consults it for
// the omitzero tag option.
func (f Field[T]) IsZero() bool { return !f.set }

// IsNull reports whether the field explicitly clears the value.
func (f Field[T]) IsNull() bool { return f.set && f.null }

// Get returns the carried value when the field is set and not null.
func (f Field[T]) Get() (T, bool) {
	if !f.set || f.null {
		var zero T
		return zero, false
	}
	return f.value, true
}

// Ptr returns nil for null, or a pointer to a copy of the value. It must only
// be called on a set field.
func (f Field[T]) Ptr() *T {
	if f.null {
		return nil
	}
	v := f.value
	return &v
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.set || f.null {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.null = true
		var zero T
		f.value = zero
		return nil
	}
	f.null = false
	return json.Unmarshal(data, &f.value)
}
