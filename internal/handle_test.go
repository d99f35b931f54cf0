package valbind

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAllocatorRecyclesSlots(t *testing.T) {
	a := newHandleAllocator()

	h1 := a.allocate(int64(1))
	h2 := a.allocate(int64(2))
	if h1 == h2 {
		t.Fatalf("expected distinct handles, got %d twice", h1)
	}
	if h1 < reservedHandles || h2 < reservedHandles {
		t.Fatalf("allocated handles %d, %d overlap the reserved range", h1, h2)
	}

	if err := a.decref(h1); err != nil {
		t.Fatal(err)
	}

	h3 := a.allocate(int64(3))
	if h3 != h1 {
		t.Fatalf("expected freed slot %d to be reused, got %d", h1, h3)
	}

	if got := a.countLive(); got != 2 {
		t.Fatalf("expected 2 live handles, got %d", got)
	}
}

func TestAllocatorRefCounting(t *testing.T) {
	a := newHandleAllocator()

	h := a.allocate("value")
	if err := a.incref(h); err != nil {
		t.Fatal(err)
	}
	if got := a.refCount(h); got != 2 {
		t.Fatalf("expected refcount 2, got %d", got)
	}

	if err := a.decref(h); err != nil {
		t.Fatal(err)
	}
	if err := a.decref(h); err != nil {
		t.Fatal(err)
	}

	if _, err := a.get(h); err == nil {
		t.Fatal("expected freed handle to be invalid")
	}
}

func TestAllocatorUnderflowPanics(t *testing.T) {
	a := newHandleAllocator()
	h := a.allocate("value")

	entry := a.allocated[h]
	entry.refCount = 0

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on refcount underflow")
		}
	}()
	_ = a.decref(h)
}

func TestAllocatorSingletonsIgnoreRefCounting(t *testing.T) {
	a := newHandleAllocator()

	for _, h := range []Handle{undefinedHandle, noneHandle, trueHandle, falseHandle} {
		if err := a.decref(h); err != nil {
			t.Fatalf("decref of singleton %d: %v", h, err)
		}
		if err := a.incref(h); err != nil {
			t.Fatalf("incref of singleton %d: %v", h, err)
		}
	}

	if got := a.countLive(); got != 0 {
		t.Fatalf("singletons must not count as live, got %d", got)
	}
}

func TestAllocatorFinalize(t *testing.T) {
	a := newHandleAllocator()

	var finalized []any
	a.finalize = func(h Handle, value any) {
		finalized = append(finalized, value)
	}

	h1 := a.allocate("a")
	h2 := a.allocate("b")
	if err := a.decref(h2); err != nil {
		t.Fatal(err)
	}
	if err := a.decref(h1); err != nil {
		t.Fatal(err)
	}

	want := []any{"b", "a"}
	if diff := cmp.Diff(want, finalized); diff != "" {
		t.Fatalf("finalize order mismatch (-want +got):\n%s", diff)
	}
}
