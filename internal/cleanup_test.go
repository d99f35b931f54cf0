package valbind

import (
	"testing"
)

func TestCleanupListReleasesExactlyOnce(t *testing.T) {
	r := newHostRuntime()

	cl := NewCleanupList(r, r.Undefined())
	h := r.NewInt(1)
	cl.Append(h)

	cl.Release()
	if _, err := r.allocator.get(h); err == nil {
		t.Fatal("expected appended handle to be released")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on second release")
		}
	}()
	cl.Release()
}

func TestCleanupListNeverReleasesSelf(t *testing.T) {
	r := newHostRuntime()

	self := r.NewInt(7)
	cl := NewCleanupList(r, self)
	cl.Release()

	if _, err := r.allocator.get(self); err != nil {
		t.Fatalf("self handle must survive release: %v", err)
	}
	if err := r.DecRef(self); err != nil {
		t.Fatal(err)
	}
}

func TestCleanupListGrowsPastInlineStorage(t *testing.T) {
	r := newHostRuntime()

	cl := NewCleanupList(r, r.Undefined())

	handles := make([]Handle, 0, cleanupInline*3)
	for i := 0; i < cleanupInline*3; i++ {
		h := r.NewInt(int64(i))
		cl.Append(h)
		handles = append(handles, h)
	}

	if got := cl.Size(); got != cleanupInline*3 {
		t.Fatalf("expected size %d, got %d", cleanupInline*3, got)
	}

	cl.Release()
	for _, h := range handles {
		if _, err := r.allocator.get(h); err == nil {
			t.Fatalf("handle %d survived release", h)
		}
	}
	if got := r.allocator.countLive(); got != 0 {
		t.Fatalf("expected no live handles, got %d", got)
	}
}
