package valbind

import (
	"context"
	"strings"
)

// tupleCaster converts fixed-size heterogeneous tuples. The host side is a
// list whose length must match the declared arity exactly, including zero.
type tupleCaster struct {
	baseCaster
	elements []Caster
}

// Tuple returns the caster for a fixed tuple with the given element casters.
func Tuple(elements ...Caster) Caster {
	names := make([]string, 0, len(elements))
	for _, elem := range elements {
		names = append(names, elem.Name())
	}
	return &tupleCaster{
		baseCaster: baseCaster{name: "tuple<" + strings.Join(names, ", ") + ">"},
		elements:   elements,
	}
}

func (tc *tupleCaster) FromHost(ctx context.Context, cleanup *CleanupList, h Handle) (any, error) {
	e := MustGetEngineFromContext(ctx).(*engine)

	length, err := e.host.Length(h)
	if err != nil {
		if hostErr := checkHostPending(e.host); hostErr != nil {
			return nil, hostErr
		}
		return nil, conversionError(tc.name, "handle %d is not a sequence: %v", h, err)
	}
	if length != len(tc.elements) {
		return nil, conversionError(tc.name, "expected %d elements, got %d", len(tc.elements), length)
	}

	out := make([]any, len(tc.elements))
	for i, elem := range tc.elements {
		item, err := e.host.Item(h, i)
		if err != nil {
			return nil, conversionError(tc.name, "could not read element %d: %v", i, err)
		}
		cleanup.Append(item)

		out[i], err = elem.FromHost(ctx, cleanup, item)
		if err != nil {
			if hostErr, ok := err.(*HostError); ok {
				return nil, hostErr
			}
			return nil, conversionError(tc.name, "element %d: %v", i, err)
		}
	}

	return out, nil
}

func (tc *tupleCaster) ToHost(ctx context.Context, cleanup *CleanupList, rp ReturnPolicy, o any) (Handle, error) {
	e := MustGetEngineFromContext(ctx).(*engine)

	elems, ok := o.([]any)
	if !ok {
		return invalidHandle, conversionError(tc.name, "value must be of type []any, is %T", o)
	}
	if len(elems) != len(tc.elements) {
		return invalidHandle, conversionError(tc.name, "expected %d elements, got %d", len(tc.elements), len(elems))
	}

	list := e.host.NewList(len(tc.elements))
	for i, elem := range tc.elements {
		item, err := elem.ToHost(ctx, cleanup, rp, elems[i])
		if err != nil {
			e.mustDecref(list)
			if hostErr, ok := err.(*HostError); ok {
				return invalidHandle, hostErr
			}
			return invalidHandle, conversionError(tc.name, "element %d: %v", i, err)
		}

		if err := e.host.ListAppend(list, item); err != nil {
			e.mustDecref(item)
			e.mustDecref(list)
			return invalidHandle, conversionError(tc.name, "could not append element %d: %v", i, err)
		}
	}

	return list, nil
}
