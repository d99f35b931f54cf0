package valbind

import (
	"context"
	"fmt"
	"reflect"
)

// instanceCaster converts registered native types under a conversion policy
// fixed at binding-declaration time.
type instanceCaster struct {
	baseCaster
	identity reflect.Type // pointer type of the registered prototype
	policy   Policy
}

func newInstanceCaster(prototype any, policy Policy) Caster {
	identity := reflect.TypeOf(prototype)
	if identity == nil || identity.Kind() != reflect.Ptr {
		panic(fmt.Errorf("instance caster prototype %T must be a pointer type", prototype))
	}
	return &instanceCaster{
		baseCaster: baseCaster{name: fmt.Sprintf("%s (%s)", identity.Elem(), policy)},
		identity:   identity,
		policy:     policy,
	}
}

// Value converts a registered type by value: move when the source handle is
// uniquely referenced and the type is move-capable, copy otherwise.
func Value(prototype any) Caster {
	return newInstanceCaster(prototype, ByValue)
}

// Ref borrows the embedded storage; native mutations are visible through
// the original handle.
func Ref(prototype any) Caster {
	return newInstanceCaster(prototype, LValueRef)
}

// RValue borrows the embedded storage with move-out permission.
func RValue(prototype any) Caster {
	return newInstanceCaster(prototype, RValueRef)
}

// Ptr borrows and is nullable: none converts to a typed nil pointer.
func Ptr(prototype any) Caster {
	return newInstanceCaster(prototype, Pointer)
}

// Take transfers ownership of the embedded storage to the native side.
func Take(prototype any) Caster {
	return newInstanceCaster(prototype, TakeOwnership)
}

func (ic *instanceCaster) FromHost(ctx context.Context, cleanup *CleanupList, h Handle) (any, error) {
	e := MustGetEngineFromContext(ctx).(*engine)

	if e.host.IsNone(h) {
		if ic.policy == Pointer {
			return reflect.Zero(ic.identity).Interface(), nil
		}
		return nil, conversionError(ic.name, "none is not a valid value")
	}

	v, found, err := e.extract(ctx, cleanup, h, ic.identity)
	if err != nil {
		return nil, err
	}
	if !found {
		if hostErr := checkHostPending(e.host); hostErr != nil {
			return nil, hostErr
		}
		return nil, conversionError(ic.name, "handle %d does not wrap a matching native value", h)
	}

	switch ic.policy {
	case ByValue:
		return ic.byValue(e, h, v)

	case LValueRef, RValueRef, Pointer:
		return v, nil

	case TakeOwnership:
		if inst, ok := e.host.instanceEntry(h); ok && inst.value == v {
			if !inst.owned {
				return nil, conversionError(ic.name, "cannot take ownership of borrowed storage")
			}
			inst.owned = false
		}
		return v, nil
	}

	return nil, fmt.Errorf("unknown policy %d", ic.policy)
}

// byValue constructs a fresh native value. Moving is only safe when the
// handle owns its storage and nothing else references it.
func (ic *instanceCaster) byValue(e *engine, h Handle, v any) (any, error) {
	desc, err := e.requireDescriptor(ic.identity)
	if err != nil {
		return nil, err
	}

	inst, direct := e.host.instanceEntry(h)
	uniquelyOwned := direct && inst.value == v && inst.owned && e.host.RefCount(h) == 1

	if uniquelyOwned && desc.canMove {
		return desc.moveFn(v), nil
	}
	if desc.canCopy {
		return desc.copyFn(v), nil
	}

	return nil, conversionError(ic.name, "type is neither copyable nor safely movable here")
}

func (ic *instanceCaster) ToHost(ctx context.Context, cleanup *CleanupList, rp ReturnPolicy, o any) (Handle, error) {
	e := MustGetEngineFromContext(ctx).(*engine)

	if o == nil {
		return e.host.None(), nil
	}

	t := reflect.TypeOf(o)

	// A native struct returned by value is already a unique copy; wrap it
	// without another allocation.
	if t == ic.identity.Elem() {
		fresh := reflect.New(ic.identity.Elem())
		fresh.Elem().Set(reflect.ValueOf(o))
		return e.embed(cleanup, fresh.Interface(), ReturnTakeOwnership)
	}

	if t != ic.identity {
		return invalidHandle, conversionError(ic.name, "value must be of type %s, is %T", ic.identity, o)
	}

	return e.embed(cleanup, o, rp)
}
