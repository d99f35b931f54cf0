package valbind

import (
	"context"
	"strings"
)

// NativeFunc is the native shape of a function crossing the boundary in
// either direction.
type NativeFunc func(ctx context.Context, args ...any) (any, error)

// Invocable is a host function held by native code. The zero value is the
// empty state: Valid reports false and Call fails with an InvocationError.
// A non-empty Invocable retains a reference to the host function; Release
// drops it.
type Invocable struct {
	name   string
	fn     Handle
	result Caster
	args   []Caster
}

func (iv *Invocable) Valid() bool {
	return iv != nil && iv.fn != invalidHandle
}

// Handle returns the retained host function handle as a borrowed reference,
// or the invalid handle when empty.
func (iv *Invocable) Handle() Handle {
	if iv == nil {
		return invalidHandle
	}
	return iv.fn
}

// Release drops the retained reference. The Invocable is empty afterwards.
func (iv *Invocable) Release(ctx context.Context) error {
	if !iv.Valid() {
		return nil
	}
	e := MustGetEngineFromContext(ctx).(*engine)
	h := iv.fn
	iv.fn = invalidHandle
	return e.host.DecRef(h)
}

// Call invokes the host function with natively-typed arguments and converts
// the result back. Temporaries live only for the duration of the call.
func (iv *Invocable) Call(ctx context.Context, args ...any) (any, error) {
	if !iv.Valid() {
		name := "callable"
		if iv != nil && iv.name != "" {
			name = iv.name
		}
		return nil, &InvocationError{Name: name, Reason: "callable is empty"}
	}
	if len(args) != len(iv.args) {
		return nil, &InvocationError{Name: iv.name, Reason: "wrong argument count"}
	}

	e := MustGetEngineFromContext(ctx).(*engine)

	cleanup := NewCleanupList(e.host, e.host.Undefined())
	defer cleanup.Release()

	handles := make([]Handle, len(args))
	for i, arg := range args {
		h, err := iv.args[i].ToHost(ctx, cleanup, ReturnCopy, arg)
		if err != nil {
			return nil, err
		}
		cleanup.Append(h)
		handles[i] = h
	}

	result, err := e.host.Invoke(ctx, iv.fn, handles...)
	if err != nil {
		if hostErr := checkHostPending(e.host); hostErr != nil {
			return nil, hostErr
		}
		return nil, err
	}
	cleanup.Append(result)

	if iv.result == nil {
		return nil, nil
	}
	return iv.result.FromHost(ctx, cleanup, result)
}

// callableCaster converts function values. A host function converts to an
// Invocable; a NativeFunc converts to a host function wrapping it. The host
// none converts to the empty Invocable.
type callableCaster struct {
	baseCaster
	result Caster
	args   []Caster
}

// Callable returns the caster for a function with the given result and
// argument casters. A nil result caster declares a void function.
func Callable(result Caster, args ...Caster) Caster {
	names := make([]string, 0, len(args)+1)
	if result == nil {
		names = append(names, "void")
	} else {
		names = append(names, result.Name())
	}
	for _, arg := range args {
		names = append(names, arg.Name())
	}
	return &callableCaster{
		baseCaster: baseCaster{name: "callable<" + strings.Join(names, ", ") + ">"},
		result:     result,
		args:       args,
	}
}

func (cc *callableCaster) FromHost(ctx context.Context, cleanup *CleanupList, h Handle) (any, error) {
	e := MustGetEngineFromContext(ctx).(*engine)

	if e.host.IsNone(h) {
		return &Invocable{name: cc.name}, nil
	}

	if e.host.KindOf(h) != KindFunction {
		return nil, conversionError(cc.name, "handle %d is not callable", h)
	}

	if err := e.host.IncRef(h); err != nil {
		return nil, err
	}

	return &Invocable{
		name:   cc.name,
		fn:     h,
		result: cc.result,
		args:   cc.args,
	}, nil
}

func (cc *callableCaster) ToHost(ctx context.Context, cleanup *CleanupList, rp ReturnPolicy, o any) (Handle, error) {
	e := MustGetEngineFromContext(ctx).(*engine)

	switch fn := o.(type) {
	case nil:
		return e.host.None(), nil

	case *Invocable:
		// Round-trips yield the identical host function, not a wrapper
		// around a wrapper.
		if !fn.Valid() {
			return e.host.None(), nil
		}
		if err := e.host.IncRef(fn.fn); err != nil {
			return invalidHandle, err
		}
		return fn.fn, nil

	case NativeFunc:
		return e.host.NewFunction(cc.name, cc.wrap(fn)), nil

	case func(ctx context.Context, args ...any) (any, error):
		return e.host.NewFunction(cc.name, cc.wrap(fn)), nil
	}

	return invalidHandle, conversionError(cc.name, "value of type %T is not callable", o)
}

// wrap adapts a native function to the host calling convention.
func (cc *callableCaster) wrap(fn NativeFunc) HostFunc {
	return func(ctx context.Context, handles []Handle) (Handle, error) {
		e := MustGetEngineFromContext(ctx).(*engine)

		if len(handles) != len(cc.args) {
			return invalidHandle, &InvocationError{Name: cc.name, Reason: "wrong argument count"}
		}

		cleanup := NewCleanupList(e.host, e.host.Undefined())
		defer cleanup.Release()

		args := make([]any, len(handles))
		for i, h := range handles {
			v, err := cc.args[i].FromHost(ctx, cleanup, h)
			if err != nil {
				return invalidHandle, err
			}
			args[i] = v
		}

		result, err := fn(ctx, args...)
		if err != nil {
			return invalidHandle, err
		}

		if cc.result == nil {
			return e.host.Undefined(), nil
		}
		return cc.result.ToHost(ctx, cleanup, ReturnCopy, result)
	}
}
