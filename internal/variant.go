package valbind

import (
	"context"
	"strings"

	"github.com/valbind/valbind/types"
)

// emptyCaster converts the host none sentinel to the native Monostate and
// back. It exists to declare an explicit empty variant in a tagged union.
type emptyCaster struct {
	baseCaster
}

// Empty returns the caster for the explicit empty variant of a union.
func Empty() Caster {
	return &emptyCaster{baseCaster{name: "monostate"}}
}

func (ec *emptyCaster) FromHost(ctx context.Context, cleanup *CleanupList, h Handle) (any, error) {
	e := MustGetEngineFromContext(ctx).(*engine)
	if !e.host.IsNone(h) {
		return nil, conversionError(ec.name, "handle %d is not none", h)
	}
	return types.Monostate, nil
}

func (ec *emptyCaster) ToHost(ctx context.Context, cleanup *CleanupList, rp ReturnPolicy, o any) (Handle, error) {
	e := MustGetEngineFromContext(ctx).(*engine)
	if o != types.Monostate {
		return invalidHandle, conversionError(ec.name, "value must be Monostate, is %T", o)
	}
	return e.host.None(), nil
}

// unionCaster converts tagged unions. Alternatives are tried in declaration
// order and the first success commits; an ambiguous value always resolves
// to the earliest-declared alternative. A nil alternative stands for an
// unbound type and is skipped, so the remaining alternatives still
// round-trip.
type unionCaster struct {
	baseCaster
	alternatives []Caster
}

// Union returns the caster for a tagged union over the given alternatives.
func Union(alternatives ...Caster) Caster {
	names := make([]string, 0, len(alternatives))
	for _, alt := range alternatives {
		if alt == nil {
			names = append(names, "unbound")
			continue
		}
		names = append(names, alt.Name())
	}
	return &unionCaster{
		baseCaster:   baseCaster{name: "union<" + strings.Join(names, ", ") + ">"},
		alternatives: alternatives,
	}
}

func (uc *unionCaster) FromHost(ctx context.Context, cleanup *CleanupList, h Handle) (any, error) {
	e := MustGetEngineFromContext(ctx).(*engine)

	for _, alt := range uc.alternatives {
		if alt == nil {
			continue
		}
		v, err := alt.FromHost(ctx, cleanup, h)
		if err == nil {
			return v, nil
		}
		// A host-raised error is not a mismatch; it always propagates.
		if hostErr, ok := err.(*HostError); ok {
			return nil, hostErr
		}
	}

	if hostErr := checkHostPending(e.host); hostErr != nil {
		return nil, hostErr
	}
	return nil, conversionError(uc.name, "handle %d matches no alternative", h)
}

func (uc *unionCaster) ToHost(ctx context.Context, cleanup *CleanupList, rp ReturnPolicy, o any) (Handle, error) {
	for _, alt := range uc.alternatives {
		if alt == nil {
			continue
		}
		h, err := alt.ToHost(ctx, cleanup, rp, o)
		if err == nil {
			return h, nil
		}
		if hostErr, ok := err.(*HostError); ok {
			return invalidHandle, hostErr
		}
	}

	return invalidHandle, conversionError(uc.name, "value of type %T matches no alternative", o)
}
