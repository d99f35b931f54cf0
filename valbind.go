package valbind

import (
	internal "github.com/valbind/valbind/internal"
)

// Handle references a value in the host runtime.
type Handle = internal.Handle

// Kind classifies the value a handle wraps.
type Kind = internal.Kind

const (
	KindInvalid   = internal.KindInvalid
	KindUndefined = internal.KindUndefined
	KindNone      = internal.KindNone
	KindBool      = internal.KindBool
	KindInt       = internal.KindInt
	KindFloat     = internal.KindFloat
	KindString    = internal.KindString
	KindList      = internal.KindList
	KindDict      = internal.KindDict
	KindFunction  = internal.KindFunction
	KindInstance  = internal.KindInstance
)

// Host is the primitive surface of the host runtime.
type Host = internal.Host

// HostFunc is the native signature of a host function value.
type HostFunc = internal.HostFunc

// NativeFunc is the native shape of a function crossing the boundary.
type NativeFunc = internal.NativeFunc

// CleanupList collects the temporary handles of one boundary crossing.
type CleanupList = internal.CleanupList

// NewCleanupList returns a cleanup list for one call with the given
// receiver; pass host.Undefined() for free functions.
func NewCleanupList(host Host, self Handle) *CleanupList {
	return internal.NewCleanupList(host, self)
}

// Caster converts values between native Go and host handles.
type Caster = internal.Caster

// Policy is the incoming conversion policy of a parameter slot.
type Policy = internal.Policy

const (
	ByValue       = internal.ByValue
	LValueRef     = internal.LValueRef
	RValueRef     = internal.RValueRef
	Pointer       = internal.Pointer
	TakeOwnership = internal.TakeOwnership
)

// ReturnPolicy is the outgoing conversion policy of a return slot.
type ReturnPolicy = internal.ReturnPolicy

const (
	ReturnCopy              = internal.ReturnCopy
	ReturnMove              = internal.ReturnMove
	ReturnTakeOwnership     = internal.ReturnTakeOwnership
	ReturnReference         = internal.ReturnReference
	ReturnReferenceInternal = internal.ReturnReferenceInternal
)

// Dict is the native ordered key-value container.
type Dict = internal.Dict

func NewDict() *Dict {
	return internal.NewDict()
}

// Invocable is a host function held by native code.
type Invocable = internal.Invocable

// Func describes one exposed native function.
type Func = internal.Func

// Copier, Mover and Destroyer declare copy, move and destructor support on
// a registered type; NoCopy suppresses the default field-wise copy.
type (
	Copier    = internal.Copier
	Mover     = internal.Mover
	Destroyer = internal.Destroyer
	NoCopy    = internal.NoCopy
)

// ImplicitConversion produces a destination-typed value from an arbitrary
// handle, or nil when the handle does not match.
type ImplicitConversion = internal.ImplicitConversion

type (
	ConversionError    = internal.ConversionError
	DuplicateTypeError = internal.DuplicateTypeError
	InvocationError    = internal.InvocationError
	HostError          = internal.HostError
)

// Scalar casters.
func Bool() Caster                           { return internal.Bool() }
func Int() Caster                            { return internal.Int() }
func IntSized(size int32, signed bool) Caster { return internal.IntSized(size, signed) }
func Float() Caster                          { return internal.Float() }
func Float32() Caster                        { return internal.Float32() }
func String() Caster                         { return internal.String() }

// Instance casters for registered types, one per conversion policy.
func Value(prototype any) Caster  { return internal.Value(prototype) }
func Ref(prototype any) Caster    { return internal.Ref(prototype) }
func RValue(prototype any) Caster { return internal.RValue(prototype) }
func Ptr(prototype any) Caster    { return internal.Ptr(prototype) }
func Take(prototype any) Caster   { return internal.Take(prototype) }

// Composite casters.
func Sequence(elem Caster) Caster             { return internal.Sequence(elem) }
func Mapping(key, value Caster) Caster        { return internal.Mapping(key, value) }
func Optional(elem Caster) Caster             { return internal.Optional(elem) }
func Union(alternatives ...Caster) Caster     { return internal.Union(alternatives...) }
func Empty() Caster                           { return internal.Empty() }
func Tuple(elements ...Caster) Caster         { return internal.Tuple(elements...) }
func Callable(result Caster, args ...Caster) Caster {
	return internal.Callable(result, args...)
}
