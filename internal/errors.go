package valbind

import (
	"fmt"
)

// ConversionError reports that a value could not be converted between its
// native and host representation. TypeName is the display name of the
// destination type.
type ConversionError struct {
	TypeName string
	Reason   string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("could not convert %s: %s", e.TypeName, e.Reason)
}

func conversionError(typeName string, format string, args ...any) *ConversionError {
	return &ConversionError{
		TypeName: typeName,
		Reason:   fmt.Sprintf(format, args...),
	}
}

// DuplicateTypeError reports a second registration for a native type that
// already has a descriptor.
type DuplicateTypeError struct {
	Name string
}

func (e *DuplicateTypeError) Error() string {
	return fmt.Sprintf("type %s is already registered", e.Name)
}

// InvocationError reports a structural call failure: unknown symbol, wrong
// argument count, or calling through an empty callable.
type InvocationError struct {
	Name   string
	Reason string
}

func (e *InvocationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("could not invoke %s", e.Name)
	}
	return fmt.Sprintf("could not invoke %s: %s", e.Name, e.Reason)
}

// HostError wraps an error raised inside the host runtime. When a host
// primitive fails and a conversion error would be reported for the same
// step, the host error wins.
type HostError struct {
	Err error
}

func (e *HostError) Error() string {
	return fmt.Sprintf("host error: %s", e.Err)
}

func (e *HostError) Unwrap() error {
	return e.Err
}
