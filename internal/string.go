package valbind

import (
	"context"
)

type stringCaster struct {
	baseCaster
}

// String returns the caster for native string values.
func String() Caster {
	return &stringCaster{baseCaster{name: "string"}}
}

func (sc *stringCaster) FromHost(ctx context.Context, cleanup *CleanupList, h Handle) (any, error) {
	e := MustGetEngineFromContext(ctx).(*engine)

	val, err := e.host.String(h)
	if err != nil {
		if hostErr := checkHostPending(e.host); hostErr != nil {
			return nil, hostErr
		}
		return nil, conversionError(sc.name, "%v", err)
	}

	return val, nil
}

func (sc *stringCaster) ToHost(ctx context.Context, cleanup *CleanupList, rp ReturnPolicy, o any) (Handle, error) {
	e := MustGetEngineFromContext(ctx).(*engine)

	val, ok := o.(string)
	if !ok {
		return invalidHandle, conversionError(sc.name, "value must be of type string, is %T", o)
	}

	return e.host.NewString(val), nil
}
