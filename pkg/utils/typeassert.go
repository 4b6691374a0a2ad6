package utils

import (
	"errors"
	"fmt"
)

var (
	// ErrFieldMissing reports an absent key or one holding nil.
	ErrFieldMissing = errors.New("field not found")
	// ErrFieldType reports a value of the wrong dynamic type.
	ErrFieldType = errors.New("field has wrong type")
)

// GetMapField returns m[key] asserted to T.
func GetMapField[T any](m map[string]any, key string) (T, error) {
	var zero T
	value, exists := m[key]
	if !exists || value == nil {
		return zero, fmt.Errorf("%w: %q", ErrFieldMissing, key)
	}
	typed, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q expected %T, got %T", ErrFieldType, key, zero, value)
	}
	return typed, nil
}
