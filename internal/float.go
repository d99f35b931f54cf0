package valbind

import (
	"context"
)

type floatCaster struct {
	baseCaster
	size int32 // in bytes
}

// Float returns the caster for native float64 values.
func Float() Caster {
	return &floatCaster{baseCaster{name: "float64"}, 8}
}

// Float32 returns the caster for native float32 values.
func Float32() Caster {
	return &floatCaster{baseCaster{name: "float32"}, 4}
}

func (fc *floatCaster) FromHost(ctx context.Context, cleanup *CleanupList, h Handle) (any, error) {
	e := MustGetEngineFromContext(ctx).(*engine)

	var val float64
	switch e.host.KindOf(h) {
	case KindFloat:
		var err error
		val, err = e.host.Float(h)
		if err != nil {
			return nil, err
		}
	case KindInt:
		// Host integers convert implicitly, matching the usual numeric
		// tower of dynamic runtimes.
		intVal, err := e.host.Int(h)
		if err != nil {
			return nil, err
		}
		val = float64(intVal)
	default:
		if hostErr := checkHostPending(e.host); hostErr != nil {
			return nil, hostErr
		}
		return nil, conversionError(fc.name, "handle %d is not a number", h)
	}

	if fc.size == 4 {
		return float32(val), nil
	}
	return val, nil
}

func (fc *floatCaster) ToHost(ctx context.Context, cleanup *CleanupList, rp ReturnPolicy, o any) (Handle, error) {
	e := MustGetEngineFromContext(ctx).(*engine)

	if fc.size == 4 {
		if v, ok := o.(float32); ok {
			return e.host.NewFloat(float64(v)), nil
		}
		return invalidHandle, conversionError(fc.name, "value must be of type float32, is %T", o)
	}

	if v, ok := o.(float64); ok {
		return e.host.NewFloat(v), nil
	}
	return invalidHandle, conversionError(fc.name, "value must be of type float64, is %T", o)
}
