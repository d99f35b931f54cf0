package valbind

import (
	"context"
	"fmt"
)

// Func describes one exposed native function. For a method, Args[0] is the
// receiver caster and the receiver arrives as the `this` handle of the
// call, not in the argument list.
type Func struct {
	Args   []Caster
	Result Caster // nil for void; the call then yields undefined
	Method bool

	// ReturnPolicy governs how the result embeds into the host.
	ReturnPolicy ReturnPolicy

	Fn func(ctx context.Context, args []any) (any, error)
}

// arity is the number of host-side arguments the function takes.
func (f *Func) arity() int {
	if f.Method {
		return len(f.Args) - 1
	}
	return len(f.Args)
}

// publicSymbol is one exposed name with its overloads keyed by argument
// count.
type publicSymbol struct {
	name      string
	overloads map[int]*Func
}

// Expose registers a native function under a public name. Exposing two
// functions with the same name and argument count is an error; differing
// counts become overloads dispatched on arity.
func (e *engine) Expose(name string, fn *Func) error {
	if fn == nil || fn.Fn == nil {
		return fmt.Errorf("could not expose %s: no function given", name)
	}
	if fn.Method && len(fn.Args) == 0 {
		return fmt.Errorf("could not expose %s: method needs a receiver caster", name)
	}

	symbol, ok := e.publicSymbols[name]
	if !ok {
		symbol = &publicSymbol{name: name, overloads: map[int]*Func{}}
		e.publicSymbols[name] = symbol
	}

	argc := fn.arity()
	if _, ok := symbol.overloads[argc]; ok {
		return fmt.Errorf("could not expose %s: an overload with %d arguments already exists", name, argc)
	}

	symbol.overloads[argc] = fn
	return nil
}

// Call invokes an exposed function by name. The receiver handle `this` is
// borrowed; pass the undefined handle for free functions. The argument
// handles are borrowed; the returned handle is a new reference the caller
// owns. Temporaries of the crossing are released before Call returns, on
// every path.
func (e *engine) Call(ctx context.Context, name string, this Handle, args ...Handle) (Handle, error) {
	symbol, ok := e.publicSymbols[name]
	if !ok {
		return invalidHandle, &InvocationError{Name: name, Reason: "unknown symbol"}
	}

	fn, ok := symbol.overloads[len(args)]
	if !ok {
		return invalidHandle, &InvocationError{Name: name, Reason: fmt.Sprintf("no overload takes %d arguments", len(args))}
	}

	cleanup := NewCleanupList(e.host, this)
	defer cleanup.Release()

	native := make([]any, 0, len(fn.Args))
	casters := fn.Args
	if fn.Method {
		receiver, err := casters[0].FromHost(ctx, cleanup, this)
		if err != nil {
			return invalidHandle, err
		}
		native = append(native, receiver)
		casters = casters[1:]
	}

	for i, caster := range casters {
		v, err := caster.FromHost(ctx, cleanup, args[i])
		if err != nil {
			return invalidHandle, err
		}
		native = append(native, v)
	}

	out, err := fn.Fn(ctx, native)
	if err != nil {
		// An error the host raised during the native body outranks the
		// error value returned alongside it.
		if hostErr := checkHostPending(e.host); hostErr != nil {
			return invalidHandle, hostErr
		}
		return invalidHandle, err
	}

	if fn.Result == nil {
		return e.host.Undefined(), nil
	}

	return fn.Result.ToHost(ctx, cleanup, fn.ReturnPolicy, out)
}

// ExposeAsHostFunction wraps an exposed symbol in a host function value, so
// host code can hold and invoke it like any other function. Methods receive
// their receiver as the first argument of the invocation.
func (e *engine) ExposeAsHostFunction(name string) (Handle, error) {
	symbol, ok := e.publicSymbols[name]
	if !ok {
		return invalidHandle, &InvocationError{Name: name, Reason: "unknown symbol"}
	}

	return e.host.NewFunction(symbol.name, func(ctx context.Context, handles []Handle) (Handle, error) {
		this := e.host.Undefined()
		args := handles
		if fn, ok := symbol.overloads[len(handles)]; !ok || fn.Method {
			if len(handles) > 0 {
				this = handles[0]
				args = handles[1:]
			}
		}
		return e.Call(ctx, name, this, args...)
	}), nil
}
