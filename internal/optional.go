package valbind

import (
	"context"
	"fmt"
)

// optionalCaster maps the host none sentinel to the native empty state
// (nil) and converts any other value through the element caster.
type optionalCaster struct {
	baseCaster
	elem Caster
}

// Optional returns the caster for an optional value. A nil element caster
// is allowed: the optional then still round-trips none, and only a present
// value fails. This keeps an optional of an unregistered type usable.
func Optional(elem Caster) Caster {
	name := "optional<unbound>"
	if elem != nil {
		name = fmt.Sprintf("optional<%s>", elem.Name())
	}
	return &optionalCaster{
		baseCaster: baseCaster{name: name},
		elem:       elem,
	}
}

func (oc *optionalCaster) FromHost(ctx context.Context, cleanup *CleanupList, h Handle) (any, error) {
	e := MustGetEngineFromContext(ctx).(*engine)

	if e.host.IsNone(h) {
		return nil, nil
	}

	if oc.elem == nil {
		return nil, conversionError(oc.name, "inner type is not convertible")
	}

	return oc.elem.FromHost(ctx, cleanup, h)
}

func (oc *optionalCaster) ToHost(ctx context.Context, cleanup *CleanupList, rp ReturnPolicy, o any) (Handle, error) {
	e := MustGetEngineFromContext(ctx).(*engine)

	if o == nil {
		return e.host.None(), nil
	}

	if oc.elem == nil {
		return invalidHandle, conversionError(oc.name, "inner type is not convertible")
	}

	return oc.elem.ToHost(ctx, cleanup, rp, o)
}
