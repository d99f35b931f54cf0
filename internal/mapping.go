package valbind

import (
	"context"
	"fmt"
	"reflect"
)

// Dict is the native representation of an ordered key-value container.
// Keys are unique and must be comparable; insertion order is preserved and
// a re-inserted key keeps its original slot (last write wins).
type Dict struct {
	keys   []any
	values []any
	index  map[any]int
}

func NewDict() *Dict {
	return &Dict{index: map[any]int{}}
}

func (d *Dict) Len() int {
	return len(d.keys)
}

func (d *Dict) Set(key, value any) {
	if i, ok := d.index[key]; ok {
		d.values[i] = value
		return
	}
	d.index[key] = len(d.keys)
	d.keys = append(d.keys, key)
	d.values = append(d.values, value)
}

func (d *Dict) Get(key any) (any, bool) {
	i, ok := d.index[key]
	if !ok {
		return nil, false
	}
	return d.values[i], true
}

func (d *Dict) At(i int) (any, any) {
	return d.keys[i], d.values[i]
}

func (d *Dict) Keys() []any {
	return append([]any{}, d.keys...)
}

// mappingCaster converts ordered key-value containers, with independent key
// and value casters.
type mappingCaster struct {
	baseCaster
	key   Caster
	value Caster
}

// Mapping returns the caster for a native *Dict with keys and values
// converted by the given casters.
func Mapping(key, value Caster) Caster {
	return &mappingCaster{
		baseCaster: baseCaster{name: fmt.Sprintf("mapping<%s, %s>", key.Name(), value.Name())},
		key:        key,
		value:      value,
	}
}

func (mc *mappingCaster) FromHost(ctx context.Context, cleanup *CleanupList, h Handle) (any, error) {
	e := MustGetEngineFromContext(ctx).(*engine)

	length, err := e.host.Length(h)
	if err != nil {
		if hostErr := checkHostPending(e.host); hostErr != nil {
			return nil, hostErr
		}
		return nil, conversionError(mc.name, "handle %d is not a mapping: %v", h, err)
	}

	out := NewDict()
	for i := 0; i < length; i++ {
		key, value, err := e.host.DictEntry(h, i)
		if err != nil {
			return nil, conversionError(mc.name, "could not read entry %d: %v", i, err)
		}
		cleanup.Append(key)
		cleanup.Append(value)

		convertedKey, err := mc.key.FromHost(ctx, cleanup, key)
		if err != nil {
			if hostErr, ok := err.(*HostError); ok {
				return nil, hostErr
			}
			return nil, conversionError(mc.name, "key %d: %v", i, err)
		}
		// Keys index a map; a non-comparable native key cannot.
		if convertedKey != nil && !reflect.TypeOf(convertedKey).Comparable() {
			return nil, conversionError(mc.name, "key %d: type %T is not comparable", i, convertedKey)
		}
		convertedValue, err := mc.value.FromHost(ctx, cleanup, value)
		if err != nil {
			if hostErr, ok := err.(*HostError); ok {
				return nil, hostErr
			}
			return nil, conversionError(mc.name, "value %d: %v", i, err)
		}

		// Two host keys may convert to an equal native key; the later
		// entry overwrites, mirroring associative-container insert.
		out.Set(convertedKey, convertedValue)
	}

	return out, nil
}

func (mc *mappingCaster) ToHost(ctx context.Context, cleanup *CleanupList, rp ReturnPolicy, o any) (Handle, error) {
	e := MustGetEngineFromContext(ctx).(*engine)

	dict, ok := o.(*Dict)
	if !ok {
		return invalidHandle, conversionError(mc.name, "value must be of type *Dict, is %T", o)
	}

	out := e.host.NewDict()
	for i := 0; i < dict.Len(); i++ {
		nativeKey, nativeValue := dict.At(i)

		key, err := mc.key.ToHost(ctx, cleanup, rp, nativeKey)
		if err != nil {
			e.mustDecref(out)
			return invalidHandle, conversionError(mc.name, "key %d: %v", i, err)
		}
		value, err := mc.value.ToHost(ctx, cleanup, rp, nativeValue)
		if err != nil {
			e.mustDecref(key)
			e.mustDecref(out)
			return invalidHandle, conversionError(mc.name, "value %d: %v", i, err)
		}

		if err := e.host.DictSet(out, key, value); err != nil {
			e.mustDecref(key)
			e.mustDecref(value)
			e.mustDecref(out)
			return invalidHandle, err
		}
	}

	return out, nil
}
