package valbind

import (
	"fmt"
)

// Handle references a host runtime value. Handles are reference counted;
// every handle a caller receives is a reference the caller must release,
// except the identity-stable singletons below.
type Handle int32

const (
	invalidHandle   Handle = 0
	undefinedHandle Handle = 1
	noneHandle      Handle = 2
	trueHandle      Handle = 3
	falseHandle     Handle = 4

	reservedHandles = 5
)

type handleEntry struct {
	value    any
	refCount int
}

// handleAllocator hands out handle slots from a slab, recycling freed slots
// through a freelist. The first reservedHandles slots are singletons that
// ignore reference counting and never die.
type handleAllocator struct {
	allocated []*handleEntry
	freelist  []Handle

	created   int
	destroyed int

	// finalize runs just before a slot is freed, with the value still
	// intact.
	finalize func(h Handle, value any)
}

func newHandleAllocator() *handleAllocator {
	return &handleAllocator{
		allocated: []*handleEntry{
			invalidHandle:   nil,
			undefinedHandle: {value: undefined},
			noneHandle:      {value: nil},
			trueHandle:      {value: true},
			falseHandle:     {value: false},
		},
	}
}

func (a *handleAllocator) get(h Handle) (*handleEntry, error) {
	if h <= invalidHandle || int(h) >= len(a.allocated) {
		return nil, fmt.Errorf("handle %d is out of range", h)
	}
	entry := a.allocated[h]
	if entry == nil {
		return nil, fmt.Errorf("handle %d is not allocated", h)
	}
	return entry, nil
}

func (a *handleAllocator) allocate(value any) Handle {
	a.created++

	entry := &handleEntry{value: value, refCount: 1}
	if n := len(a.freelist); n > 0 {
		h := a.freelist[n-1]
		a.freelist = a.freelist[:n-1]
		a.allocated[h] = entry
		return h
	}

	a.allocated = append(a.allocated, entry)
	return Handle(len(a.allocated) - 1)
}

func (a *handleAllocator) incref(h Handle) error {
	if h < reservedHandles {
		if h <= invalidHandle {
			return fmt.Errorf("handle %d is out of range", h)
		}
		return nil
	}

	entry, err := a.get(h)
	if err != nil {
		return err
	}
	entry.refCount++
	return nil
}

func (a *handleAllocator) decref(h Handle) error {
	if h < reservedHandles {
		if h <= invalidHandle {
			return fmt.Errorf("handle %d is out of range", h)
		}
		return nil
	}

	entry, err := a.get(h)
	if err != nil {
		return err
	}

	// Releasing below zero means a reference was given away twice; the
	// bookkeeping is corrupt and there is no sane way to continue.
	if entry.refCount <= 0 {
		panic(fmt.Errorf("reference count underflow on handle %d", h))
	}

	entry.refCount--
	if entry.refCount == 0 {
		if a.finalize != nil {
			a.finalize(h, entry.value)
		}
		a.allocated[h] = nil
		a.freelist = append(a.freelist, h)
		a.destroyed++
	}
	return nil
}

func (a *handleAllocator) refCount(h Handle) int {
	entry, err := a.get(h)
	if err != nil {
		return 0
	}
	return entry.refCount
}

func (a *handleAllocator) countLive() int {
	return a.created - a.destroyed
}
