package valbind

import (
	"context"
	"fmt"
	"math"
)

type intCaster struct {
	baseCaster
	size   int32 // in bytes
	signed bool
}

// Int returns the caster for native int64 values.
func Int() Caster {
	return &intCaster{baseCaster{name: "int64"}, 8, true}
}

// IntSized returns an integer caster of the given byte size and signedness.
// Out-of-range host values fail the conversion instead of wrapping.
func IntSized(size int32, signed bool) Caster {
	prefix := "int"
	if !signed {
		prefix = "uint"
	}
	return &intCaster{baseCaster{name: fmt.Sprintf("%s%d", prefix, size*8)}, size, signed}
}

func (ic *intCaster) rangeFor() (int64, uint64) {
	switch ic.size {
	case 1:
		return math.MinInt8, math.MaxUint8
	case 2:
		return math.MinInt16, math.MaxUint16
	case 4:
		return math.MinInt32, math.MaxUint32
	}
	return math.MinInt64, math.MaxUint64
}

func (ic *intCaster) FromHost(ctx context.Context, cleanup *CleanupList, h Handle) (any, error) {
	e := MustGetEngineFromContext(ctx).(*engine)

	val, err := e.host.Int(h)
	if err != nil {
		if hostErr := checkHostPending(e.host); hostErr != nil {
			return nil, hostErr
		}
		return nil, conversionError(ic.name, "%v", err)
	}

	min, max := ic.rangeFor()
	if ic.signed {
		if ic.size < 8 && (val < min || val > int64(max>>1)) {
			return nil, conversionError(ic.name, "value %d out of range", val)
		}
	} else {
		if val < 0 || (ic.size < 8 && uint64(val) > max) {
			return nil, conversionError(ic.name, "value %d out of range", val)
		}
	}

	switch ic.size {
	case 1:
		if !ic.signed {
			return uint8(val), nil
		}
		return int8(val), nil
	case 2:
		if !ic.signed {
			return uint16(val), nil
		}
		return int16(val), nil
	case 4:
		if !ic.signed {
			return uint32(val), nil
		}
		return int32(val), nil
	}

	if !ic.signed {
		return uint64(val), nil
	}
	return val, nil
}

func (ic *intCaster) ToHost(ctx context.Context, cleanup *CleanupList, rp ReturnPolicy, o any) (Handle, error) {
	e := MustGetEngineFromContext(ctx).(*engine)

	switch ic.size {
	case 1:
		if !ic.signed {
			if v, ok := o.(uint8); ok {
				return e.host.NewInt(int64(v)), nil
			}
			return invalidHandle, conversionError(ic.name, "value must be of type uint8, is %T", o)
		}
		if v, ok := o.(int8); ok {
			return e.host.NewInt(int64(v)), nil
		}
		return invalidHandle, conversionError(ic.name, "value must be of type int8, is %T", o)
	case 2:
		if !ic.signed {
			if v, ok := o.(uint16); ok {
				return e.host.NewInt(int64(v)), nil
			}
			return invalidHandle, conversionError(ic.name, "value must be of type uint16, is %T", o)
		}
		if v, ok := o.(int16); ok {
			return e.host.NewInt(int64(v)), nil
		}
		return invalidHandle, conversionError(ic.name, "value must be of type int16, is %T", o)
	case 4:
		if !ic.signed {
			if v, ok := o.(uint32); ok {
				return e.host.NewInt(int64(v)), nil
			}
			return invalidHandle, conversionError(ic.name, "value must be of type uint32, is %T", o)
		}
		if v, ok := o.(int32); ok {
			return e.host.NewInt(int64(v)), nil
		}
		return invalidHandle, conversionError(ic.name, "value must be of type int32, is %T", o)
	}

	if !ic.signed {
		if v, ok := o.(uint64); ok {
			// The host integer is 64-bit signed; larger values would wrap.
			if v > math.MaxInt64 {
				return invalidHandle, conversionError(ic.name, "value %d out of range", v)
			}
			return e.host.NewInt(int64(v)), nil
		}
		return invalidHandle, conversionError(ic.name, "value must be of type uint64, is %T", o)
	}

	switch v := o.(type) {
	case int64:
		return e.host.NewInt(v), nil
	case int:
		return e.host.NewInt(int64(v)), nil
	}
	return invalidHandle, conversionError(ic.name, "value must be of type int64, is %T", o)
}
