package valbind

import (
	"context"
)

// Policy is the incoming conversion policy of a parameter slot. It is fixed
// when the binding is declared, never per call.
type Policy uint8

const (
	// ByValue copies or moves the host value into a fresh native value.
	// Move is selected when the source handle is uniquely referenced and
	// the type is move-capable.
	ByValue Policy = iota
	// LValueRef borrows the embedded native storage; mutations are visible
	// through the original handle.
	LValueRef
	// RValueRef borrows the embedded storage with move-out permission; the
	// callee may leave it in a valid but unspecified state.
	RValueRef
	// Pointer borrows and is nullable: none converts to a nil pointer.
	Pointer
	// TakeOwnership moves ownership of the embedded storage to the native
	// side; the handle no longer destroys it.
	TakeOwnership
)

func (p Policy) String() string {
	switch p {
	case ByValue:
		return "by-value"
	case LValueRef:
		return "lvalue-reference"
	case RValueRef:
		return "rvalue-reference"
	case Pointer:
		return "pointer"
	case TakeOwnership:
		return "take-ownership"
	}
	return "unknown"
}

// ReturnPolicy is the outgoing conversion policy of a return slot.
type ReturnPolicy uint8

const (
	// ReturnCopy embeds a copy the host now owns.
	ReturnCopy ReturnPolicy = iota
	// ReturnMove moves the native value into host-owned storage.
	ReturnMove
	// ReturnTakeOwnership wraps the returned pointer and makes the host
	// responsible for destroying it.
	ReturnTakeOwnership
	// ReturnReference wraps the returned pointer without taking ownership.
	ReturnReference
	// ReturnReferenceInternal is ReturnReference with the owner's lifetime
	// extended: the receiver handle of the call stays alive at least as
	// long as the returned handle.
	ReturnReferenceInternal
)

func (rp ReturnPolicy) String() string {
	switch rp {
	case ReturnCopy:
		return "copy"
	case ReturnMove:
		return "move"
	case ReturnTakeOwnership:
		return "take-ownership"
	case ReturnReference:
		return "reference"
	case ReturnReferenceInternal:
		return "reference-internal"
	}
	return "unknown"
}

// Caster converts values between their native Go representation and host
// runtime handles. Composite casters are parameterized by element casters
// and never hard-code element types.
//
// FromHost returns the native value for a handle; temporary handles the
// conversion allocates must be appended to the cleanup list. ToHost returns
// a new reference the caller owns.
type Caster interface {
	Name() string
	FromHost(ctx context.Context, cleanup *CleanupList, h Handle) (any, error)
	ToHost(ctx context.Context, cleanup *CleanupList, rp ReturnPolicy, o any) (Handle, error)
}

type baseCaster struct {
	name string
}

func (bc *baseCaster) Name() string {
	return bc.name
}

// checkHostPending converts a pending host error into a HostError. It is
// consulted after primitive calls so that a host-raised error wins over a
// locally-detected conversion error at the same step.
func checkHostPending(host Host) error {
	if err := host.TakePending(); err != nil {
		return &HostError{Err: err}
	}
	return nil
}
