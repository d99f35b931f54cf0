package valbind

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero/api"
	"golang.org/x/text/encoding/unicode"
)

// The functions in this file expose the Host primitives to a wasm guest as
// importable functions in the "env" module. A guest failure surfaces as a
// raised host error plus the invalid handle on the stack; the guest is
// expected to check for handle 0.

var utf16Decoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// readCString reads a C string byte per byte until the NULL terminator.
func readCString(mod api.Module, addr uint32) (string, error) {
	var sb strings.Builder
	for {
		b, success := mod.Memory().ReadByte(addr)
		if !success {
			return "", errors.New("could not read C string data")
		}
		if b == 0 {
			break
		}
		sb.WriteByte(b)
		addr++
	}
	return sb.String(), nil
}

func guestEngine(ctx context.Context) *engine {
	return MustGetEngineFromContext(ctx).(*engine)
}

// raiseGuest records err for the guest and leaves the invalid handle in the
// result slot.
func raiseGuest(e *engine, stack []uint64, err error) {
	e.host.Raise(err)
	stack[0] = api.EncodeI32(int32(invalidHandle))
}

var ValueIncref = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	e := guestEngine(ctx)
	if err := e.host.IncRef(Handle(api.DecodeI32(stack[0]))); err != nil {
		e.host.Raise(err)
	}
})

var ValueDecref = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	e := guestEngine(ctx)
	if err := e.host.DecRef(Handle(api.DecodeI32(stack[0]))); err != nil {
		e.host.Raise(err)
	}
})

var ValueUndefined = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	stack[0] = api.EncodeI32(int32(guestEngine(ctx).host.Undefined()))
})

var ValueNone = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	stack[0] = api.EncodeI32(int32(guestEngine(ctx).host.None()))
})

var ValueIsNone = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	e := guestEngine(ctx)
	if e.host.IsNone(Handle(api.DecodeI32(stack[0]))) {
		stack[0] = api.EncodeI32(1)
		return
	}
	stack[0] = api.EncodeI32(0)
})

var ValueNewBool = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	e := guestEngine(ctx)
	stack[0] = api.EncodeI32(int32(e.host.NewBool(api.DecodeI32(stack[0]) != 0)))
})

var ValueNewInt = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	e := guestEngine(ctx)
	stack[0] = api.EncodeI32(int32(e.host.NewInt(int64(stack[0]))))
})

var ValueNewFloat = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	e := guestEngine(ctx)
	stack[0] = api.EncodeI32(int32(e.host.NewFloat(api.DecodeF64(stack[0]))))
})

// ValueNewString reads length-prefixed UTF-8 from guest memory.
var ValueNewString = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	e := guestEngine(ctx)
	ptr := uint32(api.DecodeI32(stack[0]))
	length := uint32(api.DecodeI32(stack[1]))

	data, ok := mod.Memory().Read(ptr, length)
	if !ok {
		raiseGuest(e, stack, errors.New("could not read string data"))
		return
	}

	stack[0] = api.EncodeI32(int32(e.host.NewString(string(data))))
})

// ValueNewStringUTF16 reads a UTF-16LE code-unit buffer from guest memory,
// the encoding wasm toolchains with 2-byte wide chars produce.
var ValueNewStringUTF16 = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	e := guestEngine(ctx)
	ptr := uint32(api.DecodeI32(stack[0]))
	units := uint32(api.DecodeI32(stack[1]))

	data, ok := mod.Memory().Read(ptr, units*2)
	if !ok {
		raiseGuest(e, stack, errors.New("could not read string data"))
		return
	}

	decoded, err := utf16Decoder.NewDecoder().Bytes(data)
	if err != nil {
		raiseGuest(e, stack, fmt.Errorf("could not decode UTF-16 string: %w", err))
		return
	}

	stack[0] = api.EncodeI32(int32(e.host.NewString(string(decoded))))
})

var ValueBool = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	e := guestEngine(ctx)
	v, err := e.host.Bool(Handle(api.DecodeI32(stack[0])))
	if err != nil {
		raiseGuest(e, stack, err)
		return
	}
	if v {
		stack[0] = api.EncodeI32(1)
		return
	}
	stack[0] = api.EncodeI32(0)
})

var ValueInt = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	e := guestEngine(ctx)
	v, err := e.host.Int(Handle(api.DecodeI32(stack[0])))
	if err != nil {
		e.host.Raise(err)
		stack[0] = 0
		return
	}
	stack[0] = uint64(v)
})

var ValueFloat = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	e := guestEngine(ctx)
	v, err := e.host.Float(Handle(api.DecodeI32(stack[0])))
	if err != nil {
		e.host.Raise(err)
		stack[0] = api.EncodeF64(0)
		return
	}
	stack[0] = api.EncodeF64(v)
})

// ValueStringInto copies a string value into a guest buffer and yields the
// number of bytes written, or the needed size when the buffer is too small.
var ValueStringInto = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	e := guestEngine(ctx)
	v, err := e.host.String(Handle(api.DecodeI32(stack[0])))
	if err != nil {
		raiseGuest(e, stack, err)
		return
	}

	ptr := uint32(api.DecodeI32(stack[1]))
	capacity := uint32(api.DecodeI32(stack[2]))
	if uint32(len(v)) > capacity {
		stack[0] = api.EncodeI32(int32(len(v)))
		return
	}

	if !mod.Memory().Write(ptr, []byte(v)) {
		raiseGuest(e, stack, errors.New("could not write string data"))
		return
	}
	stack[0] = api.EncodeI32(int32(len(v)))
})

var ValueNewList = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	e := guestEngine(ctx)
	stack[0] = api.EncodeI32(int32(e.host.NewList(int(api.DecodeI32(stack[0])))))
})

var ValueListAppend = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	e := guestEngine(ctx)
	list := Handle(api.DecodeI32(stack[0]))
	item := Handle(api.DecodeI32(stack[1]))
	if err := e.host.ListAppend(list, item); err != nil {
		e.host.Raise(err)
	}
})

var ValueListSet = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	e := guestEngine(ctx)
	list := Handle(api.DecodeI32(stack[0]))
	index := int(api.DecodeI32(stack[1]))
	item := Handle(api.DecodeI32(stack[2]))
	if err := e.host.SetItem(list, index, item); err != nil {
		e.host.Raise(err)
	}
})

var ValueListGet = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	e := guestEngine(ctx)
	item, err := e.host.Item(Handle(api.DecodeI32(stack[0])), int(api.DecodeI32(stack[1])))
	if err != nil {
		raiseGuest(e, stack, err)
		return
	}
	stack[0] = api.EncodeI32(int32(item))
})

var ValueNewDict = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	stack[0] = api.EncodeI32(int32(guestEngine(ctx).host.NewDict()))
})

var ValueDictSet = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	e := guestEngine(ctx)
	dict := Handle(api.DecodeI32(stack[0]))
	key := Handle(api.DecodeI32(stack[1]))
	value := Handle(api.DecodeI32(stack[2]))
	if err := e.host.DictSet(dict, key, value); err != nil {
		e.host.Raise(err)
	}
})

var ValueDictGet = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	e := guestEngine(ctx)
	value, err := e.host.DictGet(Handle(api.DecodeI32(stack[0])), Handle(api.DecodeI32(stack[1])))
	if err != nil {
		raiseGuest(e, stack, err)
		return
	}
	stack[0] = api.EncodeI32(int32(value))
})

var ValueLength = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	e := guestEngine(ctx)
	length, err := e.host.Length(Handle(api.DecodeI32(stack[0])))
	if err != nil {
		raiseGuest(e, stack, err)
		return
	}
	stack[0] = api.EncodeI32(int32(length))
})

var ValueGetProperty = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	e := guestEngine(ctx)
	h := Handle(api.DecodeI32(stack[0]))
	name, err := readCString(mod, uint32(api.DecodeI32(stack[1])))
	if err != nil {
		raiseGuest(e, stack, err)
		return
	}

	value, err := e.host.GetAttr(h, name)
	if err != nil {
		raiseGuest(e, stack, err)
		return
	}
	stack[0] = api.EncodeI32(int32(value))
})

var ValueSetProperty = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	e := guestEngine(ctx)
	h := Handle(api.DecodeI32(stack[0]))
	name, err := readCString(mod, uint32(api.DecodeI32(stack[1])))
	if err != nil {
		e.host.Raise(err)
		return
	}

	if err := e.host.SetAttr(h, name, Handle(api.DecodeI32(stack[2]))); err != nil {
		e.host.Raise(err)
	}
})

// ValueCall invokes an exposed symbol. The argument handles lie in guest
// memory as consecutive 32-bit values at argvPtr.
var ValueCall = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	e := guestEngine(ctx)

	name, err := readCString(mod, uint32(api.DecodeI32(stack[0])))
	if err != nil {
		raiseGuest(e, stack, err)
		return
	}
	this := Handle(api.DecodeI32(stack[1]))
	argvPtr := uint32(api.DecodeI32(stack[2]))
	argc := int(api.DecodeI32(stack[3]))

	args := make([]Handle, argc)
	for i := 0; i < argc; i++ {
		raw, ok := mod.Memory().ReadUint32Le(argvPtr + uint32(i*4))
		if !ok {
			raiseGuest(e, stack, fmt.Errorf("could not read argument %d", i))
			return
		}
		args[i] = Handle(int32(raw))
	}

	result, err := e.Call(ctx, name, this, args...)
	if err != nil {
		raiseGuest(e, stack, err)
		return
	}
	stack[0] = api.EncodeI32(int32(result))
})

var ValueRaiseError = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	e := guestEngine(ctx)
	message, err := readCString(mod, uint32(api.DecodeI32(stack[0])))
	if err != nil {
		e.host.Raise(err)
		return
	}
	e.host.Raise(errors.New(message))
})
