package valbind

import (
	"context"
	"fmt"
	"reflect"
)

// IEngineConfig configures engine creation.
type IEngineConfig interface {
	// InitialHandleCapacity pre-sizes the handle slab.
	InitialHandleCapacity() int
}

type engineConfig struct {
	initialHandleCapacity int
}

func (ec *engineConfig) InitialHandleCapacity() int {
	return ec.initialHandleCapacity
}

// NewConfig returns the default engine configuration.
func NewConfig() IEngineConfig {
	return &engineConfig{}
}

// ImplicitConversion attempts to produce a native value of the destination
// type from an arbitrary handle. It returns nil (not an error) when the
// handle does not match; temporary handles it allocates must be appended to
// the cleanup list.
type ImplicitConversion func(ctx context.Context, host Host, cleanup *CleanupList, h Handle) (any, error)

// Copier is implemented by registered types that define their own copy
// construction. The returned value must be a fresh pointer of the same
// type.
type Copier interface {
	CopyValue() any
}

// Mover is implemented by registered types that support destructive move
// construction. The source must be left valid but unspecified.
type Mover interface {
	MoveValue() any
}

// Destroyer is implemented by registered types that need a destructor when
// host-owned storage dies.
type Destroyer interface {
	Destroy()
}

// NoCopy can be embedded in a registered type to suppress the default
// field-wise copy. A type embedding it converts by value only if it
// implements Copier or Mover.
type NoCopy struct{}

func (NoCopy) DisableCopy() {}

type copyDisabled interface {
	DisableCopy()
}

// typeDescriptor is the static capability table compiled for a native type
// at registration time. Immutable afterwards except for appended implicit
// conversions.
type typeDescriptor struct {
	name     string
	identity reflect.Type // pointer type of the registered prototype
	canCopy  bool
	canMove  bool
	copyFn   func(any) any
	moveFn   func(any) any
	dtor     func(any)

	// Tried in registration order, first match wins.
	conversions []ImplicitConversion
}

type engine struct {
	config IEngineConfig
	host   *hostRuntime

	typesByIdentity map[reflect.Type]*typeDescriptor
	typesByName     map[string]*typeDescriptor

	// instances maps a live native pointer to the handle wrapping it, so
	// that converting the same address twice yields handles recognized as
	// the same host object.
	instances map[any]Handle

	// keepAlive records lifetime ties: the dependent handle keys the
	// owners whose lifetime it extends. The table holds the strong
	// references; the dependent handle itself never increments the owner.
	keepAlive map[Handle][]Handle

	publicSymbols map[string]*publicSymbol
}

// Engine is the boundary engine: type registration, value embedding and
// extraction, and dispatch of exposed native functions.
type Engine interface {
	Attach(ctx context.Context) context.Context
	Host() Host
	RegisterType(prototype any, name string) error
	RegisterConversion(prototype any, conv ImplicitConversion) error
	Expose(name string, fn *Func) error
	ExposeAsHostFunction(name string) (Handle, error)
	Call(ctx context.Context, name string, this Handle, args ...Handle) (Handle, error)
	CountLiveHandles() int
	CountLiveInstances() int
}

// EngineKey adds the engine to a context:
// ctx = context.WithValue(ctx, valbind.EngineKey{}, engine)
type EngineKey struct{}

// CreateEngine returns a new boundary engine. Attach it to the context
// before running conversions.
func CreateEngine(config IEngineConfig) Engine {
	if config == nil {
		config = NewConfig()
	}

	e := &engine{
		config:          config,
		host:            newHostRuntime(),
		typesByIdentity: map[reflect.Type]*typeDescriptor{},
		typesByName:     map[string]*typeDescriptor{},
		instances:       map[any]Handle{},
		keepAlive:       map[Handle][]Handle{},
		publicSymbols:   map[string]*publicSymbol{},
	}

	if n := config.InitialHandleCapacity(); n > 0 {
		slab := make([]*handleEntry, len(e.host.allocator.allocated), len(e.host.allocator.allocated)+n)
		copy(slab, e.host.allocator.allocated)
		e.host.allocator.allocated = slab
	}

	e.host.allocator.finalize = e.finalizeValue
	return e
}

func GetEngineFromContext(ctx context.Context) (Engine, error) {
	raw := ctx.Value(EngineKey{})
	if raw == nil {
		return nil, fmt.Errorf("valbind engine not found in context")
	}

	value, ok := raw.(Engine)
	if !ok {
		return nil, fmt.Errorf("context value %v not of type %T", raw, new(Engine))
	}

	return value, nil
}

func MustGetEngineFromContext(ctx context.Context) Engine {
	e, err := GetEngineFromContext(ctx)
	if err != nil {
		panic(fmt.Errorf("could not get valbind engine from context: %w, make sure to create an engine with valbind.CreateEngine() and to attach it with engine.Attach(ctx)", err))
	}
	return e
}

func (e *engine) Attach(ctx context.Context) context.Context {
	return context.WithValue(ctx, EngineKey{}, e)
}

func (e *engine) Host() Host {
	return e.host
}

func (e *engine) CountLiveHandles() int {
	return e.host.allocator.countLive()
}

func (e *engine) CountLiveInstances() int {
	return len(e.instances)
}

// RegisterType compiles the capability table for a native type and records
// it under its structural identity. The prototype must be a pointer to a
// struct; its pointed-to value is never used.
func (e *engine) RegisterType(prototype any, name string) error {
	identity := reflect.TypeOf(prototype)
	if identity == nil || identity.Kind() != reflect.Ptr {
		return fmt.Errorf("could not register type %s with prototype %T, given value should be a pointer type", name, prototype)
	}

	if _, ok := e.typesByIdentity[identity]; ok {
		return &DuplicateTypeError{Name: name}
	}

	desc := &typeDescriptor{
		name:     name,
		identity: identity,
	}

	if _, ok := prototype.(Copier); ok {
		desc.canCopy = true
		desc.copyFn = func(v any) any {
			return v.(Copier).CopyValue()
		}
	} else if _, disabled := prototype.(copyDisabled); !disabled {
		elem := identity.Elem()
		desc.canCopy = true
		desc.copyFn = func(v any) any {
			fresh := reflect.New(elem)
			fresh.Elem().Set(reflect.ValueOf(v).Elem())
			return fresh.Interface()
		}
	}

	if _, ok := prototype.(Mover); ok {
		desc.canMove = true
		desc.moveFn = func(v any) any {
			return v.(Mover).MoveValue()
		}
	}

	if _, ok := prototype.(Destroyer); ok {
		desc.dtor = func(v any) {
			v.(Destroyer).Destroy()
		}
	}

	e.typesByIdentity[identity] = desc
	e.typesByName[name] = desc
	return nil
}

// RegisterConversion appends an implicit conversion predicate to an already
// registered destination type. Predicates run in registration order.
func (e *engine) RegisterConversion(prototype any, conv ImplicitConversion) error {
	desc, err := e.requireDescriptor(reflect.TypeOf(prototype))
	if err != nil {
		return err
	}
	desc.conversions = append(desc.conversions, conv)
	return nil
}

func (e *engine) lookupDescriptor(identity reflect.Type) (*typeDescriptor, bool) {
	desc, ok := e.typesByIdentity[identity]
	return desc, ok
}

func (e *engine) requireDescriptor(identity reflect.Type) (*typeDescriptor, error) {
	desc, ok := e.typesByIdentity[identity]
	if !ok {
		return nil, fmt.Errorf("type %s is not registered", identity)
	}
	return desc, nil
}

// extract obtains a native pointer of the requested identity from a handle.
// The exact type wins; otherwise the destination type's implicit
// conversions run in registration order, short-circuiting on the first
// match. A miss is reported as absence, not as an error.
func (e *engine) extract(ctx context.Context, cleanup *CleanupList, h Handle, identity reflect.Type) (any, bool, error) {
	if inst, ok := e.host.instanceEntry(h); ok {
		if reflect.TypeOf(inst.value) == identity {
			return inst.value, true, nil
		}
	}

	desc, ok := e.typesByIdentity[identity]
	if !ok {
		return nil, false, nil
	}

	for _, conv := range desc.conversions {
		v, err := conv(ctx, e.host, cleanup, h)
		if err != nil {
			return nil, false, err
		}
		if v != nil {
			return v, true, nil
		}
	}

	return nil, false, nil
}

// embed wraps a native pointer in a host handle under a return policy. A
// pointer already wrapped by a live handle is aliased for the
// reference-sharing policies: the existing handle is re-referenced instead
// of creating a duplicate wrapper.
func (e *engine) embed(cleanup *CleanupList, value any, rp ReturnPolicy) (Handle, error) {
	rv := reflect.ValueOf(value)
	if value == nil || (rv.Kind() == reflect.Ptr && rv.IsNil()) {
		return noneHandle, nil
	}

	desc, ok := e.typesByIdentity[reflect.TypeOf(value)]
	if !ok {
		return invalidHandle, conversionError(fmt.Sprintf("%T", value), "type is not registered")
	}

	switch rp {
	case ReturnReference, ReturnReferenceInternal, ReturnTakeOwnership:
		if existing, ok := e.instances[value]; ok {
			if err := e.host.IncRef(existing); err != nil {
				return invalidHandle, err
			}
			return existing, nil
		}
	}

	switch rp {
	case ReturnCopy:
		if !desc.canCopy {
			return invalidHandle, conversionError(desc.name, "type is not copy constructible")
		}
		return e.wrapInstance(desc.copyFn(value), desc, true), nil

	case ReturnMove:
		if desc.canMove {
			return e.wrapInstance(desc.moveFn(value), desc, true), nil
		}
		if !desc.canCopy {
			return invalidHandle, conversionError(desc.name, "type is neither move nor copy constructible")
		}
		return e.wrapInstance(desc.copyFn(value), desc, true), nil

	case ReturnTakeOwnership:
		return e.wrapInstance(value, desc, true), nil

	case ReturnReference:
		return e.wrapInstance(value, desc, false), nil

	case ReturnReferenceInternal:
		h := e.wrapInstance(value, desc, false)
		owner := cleanup.Self()
		if owner != invalidHandle {
			if err := e.host.IncRef(owner); err != nil {
				return invalidHandle, err
			}
			e.keepAlive[h] = append(e.keepAlive[h], owner)
		}
		return h, nil
	}

	return invalidHandle, fmt.Errorf("unknown return policy %d", rp)
}

func (e *engine) wrapInstance(value any, desc *typeDescriptor, owned bool) Handle {
	h := e.host.allocator.allocate(&hostInstance{
		value: value,
		desc:  desc,
		owned: owned,
	})
	e.instances[value] = h
	return h
}

// finalizeValue runs just before a handle slot is freed. Instances run
// their destructor when owned, leave the live-instance table, and release
// any keep-alive owners; containers are handled by the host runtime.
func (e *engine) finalizeValue(h Handle, value any) {
	v, ok := value.(*hostInstance)
	if !ok {
		e.host.finalizeValue(h, value)
		return
	}

	if existing, ok := e.instances[v.value]; ok && existing == h {
		delete(e.instances, v.value)
	}
	if v.owned && v.desc.dtor != nil {
		v.desc.dtor(v.value)
	}
	if owners, ok := e.keepAlive[h]; ok {
		delete(e.keepAlive, h)
		for _, owner := range owners {
			e.mustDecref(owner)
		}
	}
}

func (e *engine) mustDecref(h Handle) {
	if err := e.host.DecRef(h); err != nil {
		panic(fmt.Errorf("could not release handle %d: %w", h, err))
	}
}
