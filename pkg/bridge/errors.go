package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrBinding matches every BindingError.
	ErrBinding = errors.New("parameter binding failed")
	// ErrReturnTooLarge is returned when a return type does not fit the
	// return buffer.
	ErrReturnTooLarge = errors.New("return value too large")
)

// BindingError reports a required parameter that received no usable value.
type BindingError struct {
	Function string
	Index    int
	Type     string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("Function '%s' parameter %d must be %s.", e.Function, e.Index, e.Type)
}

func (e *BindingError) Is(target error) bool {
	return target == ErrBinding
}

// PropertyError reports a property write whose value could not be converted.
type PropertyError struct {
	Class    string
	Property string
	Type     string
}

func (e *PropertyError) Error() string {
	return fmt.Sprintf("Property '%s' of '%s' must be %s.", e.Property, e.Class, e.Type)
}

func (e *PropertyError) Is(target error) bool {
	return target == ErrBinding
}
