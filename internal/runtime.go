package valbind

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/valbind/valbind/types"
)

var undefined = types.Undefined

// Kind classifies the value a handle wraps.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUndefined
	KindNone
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindDict
	KindFunction
	KindInstance
)

// HostFunc is the native signature of a function value living in the host
// runtime. The arguments are borrowed; the result is a new reference the
// caller owns.
type HostFunc func(ctx context.Context, args []Handle) (Handle, error)

// Host is the narrow primitive surface every conversion is built on.
// Unless stated otherwise, a returned Handle is a new reference the caller
// must release, and Handle parameters are borrowed.
//
// ListAppend and DictSet are the exceptions on the parameter side: they
// steal the reference to the appended item and to both key and value.
type Host interface {
	IncRef(h Handle) error
	DecRef(h Handle) error
	RefCount(h Handle) int

	Undefined() Handle
	None() Handle
	IsNone(h Handle) bool
	KindOf(h Handle) Kind

	NewBool(v bool) Handle
	NewInt(v int64) Handle
	NewFloat(v float64) Handle
	NewString(v string) Handle

	Bool(h Handle) (bool, error)
	Int(h Handle) (int64, error)
	Float(h Handle) (float64, error)
	String(h Handle) (string, error)

	NewList(sizeHint int) Handle
	ListAppend(list, item Handle) error
	Item(list Handle, i int) (Handle, error)
	SetItem(list Handle, i int, item Handle) error

	NewDict() Handle
	DictSet(dict, key, value Handle) error
	DictGet(dict, key Handle) (Handle, error)
	DictEntry(dict Handle, i int) (Handle, Handle, error)

	Length(h Handle) (int, error)

	GetAttr(h Handle, name string) (Handle, error)
	SetAttr(h Handle, name string, value Handle) error

	NewFunction(name string, fn HostFunc) Handle
	Invoke(ctx context.Context, fn Handle, args ...Handle) (Handle, error)

	// Instance returns the native value wrapped by an instance handle.
	Instance(h Handle) (any, bool)

	// Raise records a host-side error; TakePending clears and returns it.
	Raise(err error)
	TakePending() error
}

type hostList struct {
	items []Handle
}

type hostDict struct {
	keys   []Handle
	values []Handle
	index  map[any]int
}

type hostFuncValue struct {
	name string
	fn   HostFunc
}

type hostInstance struct {
	value any
	desc  *typeDescriptor
	owned bool
}

// hostRuntime is the in-process host object runtime. It is the reference
// Host implementation; a guest runtime reaches the same surface through the
// exported module functions.
type hostRuntime struct {
	allocator *handleAllocator
	pending   error
}

func newHostRuntime() *hostRuntime {
	r := &hostRuntime{allocator: newHandleAllocator()}
	r.allocator.finalize = r.finalizeValue
	return r
}

// finalizeValue runs just before a handle slot is freed. Containers release
// the references they hold to their elements.
func (r *hostRuntime) finalizeValue(h Handle, value any) {
	switch v := value.(type) {
	case *hostList:
		for _, item := range v.items {
			r.mustDecref(item)
		}

	case *hostDict:
		for i := range v.keys {
			r.mustDecref(v.keys[i])
			r.mustDecref(v.values[i])
		}
	}
}

func (r *hostRuntime) mustDecref(h Handle) {
	if err := r.allocator.decref(h); err != nil {
		panic(fmt.Errorf("could not release handle %d: %w", h, err))
	}
}

func (r *hostRuntime) IncRef(h Handle) error {
	return r.allocator.incref(h)
}

func (r *hostRuntime) DecRef(h Handle) error {
	return r.allocator.decref(h)
}

func (r *hostRuntime) RefCount(h Handle) int {
	if h < reservedHandles {
		return 1
	}
	return r.allocator.refCount(h)
}

func (r *hostRuntime) Undefined() Handle {
	return undefinedHandle
}

func (r *hostRuntime) None() Handle {
	return noneHandle
}

func (r *hostRuntime) IsNone(h Handle) bool {
	return h == noneHandle
}

func (r *hostRuntime) KindOf(h Handle) Kind {
	switch h {
	case invalidHandle:
		return KindInvalid
	case undefinedHandle:
		return KindUndefined
	case noneHandle:
		return KindNone
	case trueHandle, falseHandle:
		return KindBool
	}

	entry, err := r.allocator.get(h)
	if err != nil {
		return KindInvalid
	}

	switch entry.value.(type) {
	case bool:
		return KindBool
	case int64:
		return KindInt
	case float64:
		return KindFloat
	case string:
		return KindString
	case *hostList:
		return KindList
	case *hostDict:
		return KindDict
	case *hostFuncValue:
		return KindFunction
	case *hostInstance:
		return KindInstance
	}
	return KindInvalid
}

func (r *hostRuntime) NewBool(v bool) Handle {
	if v {
		return trueHandle
	}
	return falseHandle
}

func (r *hostRuntime) NewInt(v int64) Handle {
	return r.allocator.allocate(v)
}

func (r *hostRuntime) NewFloat(v float64) Handle {
	return r.allocator.allocate(v)
}

func (r *hostRuntime) NewString(v string) Handle {
	return r.allocator.allocate(v)
}

func (r *hostRuntime) Bool(h Handle) (bool, error) {
	switch h {
	case trueHandle:
		return true, nil
	case falseHandle:
		return false, nil
	}

	entry, err := r.allocator.get(h)
	if err != nil {
		return false, err
	}
	v, ok := entry.value.(bool)
	if !ok {
		return false, fmt.Errorf("handle %d is not a bool", h)
	}
	return v, nil
}

func (r *hostRuntime) Int(h Handle) (int64, error) {
	entry, err := r.allocator.get(h)
	if err != nil {
		return 0, err
	}
	v, ok := entry.value.(int64)
	if !ok {
		return 0, fmt.Errorf("handle %d is not an integer", h)
	}
	return v, nil
}

func (r *hostRuntime) Float(h Handle) (float64, error) {
	entry, err := r.allocator.get(h)
	if err != nil {
		return 0, err
	}
	v, ok := entry.value.(float64)
	if !ok {
		return 0, fmt.Errorf("handle %d is not a float", h)
	}
	return v, nil
}

func (r *hostRuntime) String(h Handle) (string, error) {
	entry, err := r.allocator.get(h)
	if err != nil {
		return "", err
	}
	v, ok := entry.value.(string)
	if !ok {
		return "", fmt.Errorf("handle %d is not a string", h)
	}
	return v, nil
}

func (r *hostRuntime) NewList(sizeHint int) Handle {
	var items []Handle
	if sizeHint > 0 {
		items = make([]Handle, 0, sizeHint)
	}
	return r.allocator.allocate(&hostList{items: items})
}

func (r *hostRuntime) list(h Handle) (*hostList, error) {
	entry, err := r.allocator.get(h)
	if err != nil {
		return nil, err
	}
	v, ok := entry.value.(*hostList)
	if !ok {
		return nil, fmt.Errorf("handle %d is not a list", h)
	}
	return v, nil
}

// ListAppend steals the reference to item.
func (r *hostRuntime) ListAppend(list, item Handle) error {
	l, err := r.list(list)
	if err != nil {
		return err
	}
	if item <= invalidHandle {
		return fmt.Errorf("handle %d is out of range", item)
	}
	if item >= reservedHandles {
		if _, err := r.allocator.get(item); err != nil {
			return err
		}
	}

	l.items = append(l.items, item)
	return nil
}

func (r *hostRuntime) Item(list Handle, i int) (Handle, error) {
	l, err := r.list(list)
	if err != nil {
		return invalidHandle, err
	}
	if i < 0 || i >= len(l.items) {
		return invalidHandle, fmt.Errorf("index %d out of range for list of %d", i, len(l.items))
	}

	h := l.items[i]
	if err := r.allocator.incref(h); err != nil {
		return invalidHandle, err
	}
	return h, nil
}

// SetItem steals the reference to item and releases the replaced element.
func (r *hostRuntime) SetItem(list Handle, i int, item Handle) error {
	l, err := r.list(list)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(l.items) {
		return fmt.Errorf("index %d out of range for list of %d", i, len(l.items))
	}
	if item >= reservedHandles {
		if _, err := r.allocator.get(item); err != nil {
			return err
		}
	} else if item <= invalidHandle {
		return fmt.Errorf("handle %d is out of range", item)
	}

	old := l.items[i]
	l.items[i] = item
	return r.allocator.decref(old)
}

func (r *hostRuntime) NewDict() Handle {
	return r.allocator.allocate(&hostDict{index: map[any]int{}})
}

func (r *hostRuntime) dict(h Handle) (*hostDict, error) {
	entry, err := r.allocator.get(h)
	if err != nil {
		return nil, err
	}
	v, ok := entry.value.(*hostDict)
	if !ok {
		return nil, fmt.Errorf("handle %d is not a dict", h)
	}
	return v, nil
}

// dictKey normalizes a key handle for equality: scalar keys compare by
// value, everything else by handle identity.
func (r *hostRuntime) dictKey(h Handle) any {
	entry, err := r.allocator.get(h)
	if err != nil {
		return h
	}
	switch v := entry.value.(type) {
	case bool, int64, float64, string:
		return v
	case nil:
		return nil
	}
	return h
}

// DictSet steals the references to both key and value. Re-inserting a key
// keeps its original slot and releases the replaced key and value.
func (r *hostRuntime) DictSet(dict, key, value Handle) error {
	d, err := r.dict(dict)
	if err != nil {
		return err
	}

	k := r.dictKey(key)
	if i, ok := d.index[k]; ok {
		oldKey, oldValue := d.keys[i], d.values[i]
		d.keys[i], d.values[i] = key, value
		if err := r.allocator.decref(oldKey); err != nil {
			return err
		}
		return r.allocator.decref(oldValue)
	}

	d.index[k] = len(d.keys)
	d.keys = append(d.keys, key)
	d.values = append(d.values, value)
	return nil
}

func (r *hostRuntime) DictGet(dict, key Handle) (Handle, error) {
	d, err := r.dict(dict)
	if err != nil {
		return invalidHandle, err
	}

	i, ok := d.index[r.dictKey(key)]
	if !ok {
		return invalidHandle, fmt.Errorf("key not found")
	}

	h := d.values[i]
	if err := r.allocator.incref(h); err != nil {
		return invalidHandle, err
	}
	return h, nil
}

func (r *hostRuntime) DictEntry(dict Handle, i int) (Handle, Handle, error) {
	d, err := r.dict(dict)
	if err != nil {
		return invalidHandle, invalidHandle, err
	}
	if i < 0 || i >= len(d.keys) {
		return invalidHandle, invalidHandle, fmt.Errorf("index %d out of range for dict of %d", i, len(d.keys))
	}

	key, value := d.keys[i], d.values[i]
	if err := r.allocator.incref(key); err != nil {
		return invalidHandle, invalidHandle, err
	}
	if err := r.allocator.incref(value); err != nil {
		return invalidHandle, invalidHandle, err
	}
	return key, value, nil
}

func (r *hostRuntime) Length(h Handle) (int, error) {
	entry, err := r.allocator.get(h)
	if err != nil {
		return 0, err
	}
	switch v := entry.value.(type) {
	case *hostList:
		return len(v.items), nil
	case *hostDict:
		return len(v.keys), nil
	case string:
		return len(v), nil
	}
	return 0, fmt.Errorf("handle %d has no length", h)
}

func (r *hostRuntime) instanceEntry(h Handle) (*hostInstance, bool) {
	entry, err := r.allocator.get(h)
	if err != nil {
		return nil, false
	}
	inst, ok := entry.value.(*hostInstance)
	return inst, ok
}

func (r *hostRuntime) Instance(h Handle) (any, bool) {
	inst, ok := r.instanceEntry(h)
	if !ok {
		return nil, false
	}
	return inst.value, true
}

// getElemField resolves an attribute name to a struct field. A `bind` tag
// wins, then the exact name, then the name with its first rune upper-cased.
func getElemField(elem reflect.Value, name string) (reflect.Value, bool) {
	t := elem.Type()
	for i := 0; i < t.NumField(); i++ {
		if tag, ok := t.Field(i).Tag.Lookup("bind"); ok && tag == name {
			return elem.Field(i), true
		}
	}
	if f := elem.FieldByName(name); f.IsValid() {
		return f, true
	}
	upper := string(unicode.ToUpper(rune(name[0]))) + name[1:]
	if f := elem.FieldByName(upper); f.IsValid() {
		return f, true
	}
	return reflect.Value{}, false
}

func (r *hostRuntime) GetAttr(h Handle, name string) (Handle, error) {
	inst, ok := r.instanceEntry(h)
	if !ok || name == "" {
		return invalidHandle, fmt.Errorf("handle %d has no attributes", h)
	}

	elem := reflect.ValueOf(inst.value).Elem()
	field, ok := getElemField(elem, name)
	if !ok {
		return invalidHandle, fmt.Errorf("%s has no attribute %s", inst.desc.name, name)
	}

	switch field.Kind() {
	case reflect.Bool:
		return r.NewBool(field.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return r.NewInt(field.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return r.NewInt(int64(field.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return r.NewFloat(field.Float()), nil
	case reflect.String:
		return r.NewString(field.String()), nil
	}
	return invalidHandle, fmt.Errorf("attribute %s of %s is not a scalar", name, inst.desc.name)
}

func (r *hostRuntime) SetAttr(h Handle, name string, value Handle) error {
	inst, ok := r.instanceEntry(h)
	if !ok || name == "" {
		return fmt.Errorf("handle %d has no attributes", h)
	}

	elem := reflect.ValueOf(inst.value).Elem()
	field, ok := getElemField(elem, name)
	if !ok {
		return fmt.Errorf("%s has no attribute %s", inst.desc.name, name)
	}
	if !field.CanSet() {
		return fmt.Errorf("attribute %s of %s is not settable", name, inst.desc.name)
	}

	switch field.Kind() {
	case reflect.Bool:
		v, err := r.Bool(value)
		if err != nil {
			return err
		}
		field.SetBool(v)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := r.Int(value)
		if err != nil {
			return err
		}
		field.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := r.Int(value)
		if err != nil {
			return err
		}
		field.SetUint(uint64(v))
	case reflect.Float32, reflect.Float64:
		v, err := r.Float(value)
		if err != nil {
			return err
		}
		field.SetFloat(v)
	case reflect.String:
		v, err := r.String(value)
		if err != nil {
			return err
		}
		field.SetString(v)
	default:
		return fmt.Errorf("attribute %s of %s is not a scalar", name, inst.desc.name)
	}
	return nil
}

func (r *hostRuntime) NewFunction(name string, fn HostFunc) Handle {
	return r.allocator.allocate(&hostFuncValue{name: name, fn: fn})
}

func (r *hostRuntime) Invoke(ctx context.Context, fn Handle, args ...Handle) (Handle, error) {
	entry, err := r.allocator.get(fn)
	if err != nil {
		return invalidHandle, err
	}
	f, ok := entry.value.(*hostFuncValue)
	if !ok {
		return invalidHandle, fmt.Errorf("handle %d is not callable", fn)
	}

	result, err := f.fn(ctx, args)
	if err != nil {
		return invalidHandle, err
	}
	if result == invalidHandle {
		return undefinedHandle, nil
	}
	return result, nil
}

func (r *hostRuntime) Raise(err error) {
	r.pending = err
}

func (r *hostRuntime) TakePending() error {
	err := r.pending
	r.pending = nil
	return err
}

// debugString renders a handle for diagnostics and tests.
func (r *hostRuntime) debugString(h Handle) string {
	switch h {
	case invalidHandle:
		return "<invalid>"
	case undefinedHandle:
		return "undefined"
	case noneHandle:
		return "none"
	}

	entry, err := r.allocator.get(h)
	if err != nil {
		return "<dead>"
	}

	switch v := entry.value.(type) {
	case bool, int64:
		return fmt.Sprintf("%v", v)
	case float64:
		return fmt.Sprintf("%g", v)
	case string:
		return fmt.Sprintf("%q", v)
	case *hostList:
		parts := make([]string, len(v.items))
		for i, item := range v.items {
			parts[i] = r.debugString(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *hostDict:
		parts := make([]string, len(v.keys))
		for i := range v.keys {
			parts[i] = r.debugString(v.keys[i]) + ": " + r.debugString(v.values[i])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *hostFuncValue:
		return fmt.Sprintf("<function %s>", v.name)
	case *hostInstance:
		return fmt.Sprintf("<%s instance>", v.desc.name)
	}
	return "<unknown>"
}
