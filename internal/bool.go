package valbind

import (
	"context"
)

type boolCaster struct {
	baseCaster
}

// Bool returns the caster for native bool values.
func Bool() Caster {
	return &boolCaster{baseCaster{name: "bool"}}
}

func (bc *boolCaster) FromHost(ctx context.Context, cleanup *CleanupList, h Handle) (any, error) {
	e := MustGetEngineFromContext(ctx).(*engine)

	val, err := e.host.Bool(h)
	if err != nil {
		if hostErr := checkHostPending(e.host); hostErr != nil {
			return nil, hostErr
		}
		return nil, conversionError(bc.name, "%v", err)
	}

	return val, nil
}

func (bc *boolCaster) ToHost(ctx context.Context, cleanup *CleanupList, rp ReturnPolicy, o any) (Handle, error) {
	e := MustGetEngineFromContext(ctx).(*engine)

	val, ok := o.(bool)
	if !ok {
		return invalidHandle, conversionError(bc.name, "value must be of type bool, is %T", o)
	}

	return e.host.NewBool(val), nil
}
