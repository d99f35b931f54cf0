package valbind

import (
	"context"
	"fmt"
)

// sequenceCaster converts ordered homogeneous variable-length containers.
// The element caster is a parameter; element types are never hard-coded.
type sequenceCaster struct {
	baseCaster
	elem Caster
}

// Sequence returns the caster for a native []any with elements converted by
// elem.
func Sequence(elem Caster) Caster {
	return &sequenceCaster{
		baseCaster: baseCaster{name: fmt.Sprintf("sequence<%s>", elem.Name())},
		elem:       elem,
	}
}

func (sc *sequenceCaster) FromHost(ctx context.Context, cleanup *CleanupList, h Handle) (any, error) {
	e := MustGetEngineFromContext(ctx).(*engine)

	length, err := e.host.Length(h)
	if err != nil {
		if hostErr := checkHostPending(e.host); hostErr != nil {
			return nil, hostErr
		}
		return nil, conversionError(sc.name, "handle %d is not a sequence: %v", h, err)
	}

	// Elements accumulate in a local; no partially-built container is ever
	// visible to native code when an element fails.
	out := make([]any, 0, length)
	for i := 0; i < length; i++ {
		item, err := e.host.Item(h, i)
		if err != nil {
			return nil, conversionError(sc.name, "could not read element %d: %v", i, err)
		}
		cleanup.Append(item)

		converted, err := sc.elem.FromHost(ctx, cleanup, item)
		if err != nil {
			if hostErr, ok := err.(*HostError); ok {
				return nil, hostErr
			}
			return nil, conversionError(sc.name, "element %d: %v", i, err)
		}
		out = append(out, converted)
	}

	return out, nil
}

func (sc *sequenceCaster) ToHost(ctx context.Context, cleanup *CleanupList, rp ReturnPolicy, o any) (Handle, error) {
	e := MustGetEngineFromContext(ctx).(*engine)

	arr, ok := o.([]any)
	if !ok {
		return invalidHandle, conversionError(sc.name, "value must be of type []any, is %T", o)
	}

	list := e.host.NewList(len(arr))
	for i := range arr {
		item, err := sc.elem.ToHost(ctx, cleanup, rp, arr[i])
		if err != nil {
			e.mustDecref(list)
			return invalidHandle, conversionError(sc.name, "element %d: %v", i, err)
		}
		if err := e.host.ListAppend(list, item); err != nil {
			e.mustDecref(item)
			e.mustDecref(list)
			return invalidHandle, err
		}
	}

	return list, nil
}
