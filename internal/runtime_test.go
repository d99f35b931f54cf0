package valbind

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDictOrderAndOverwrite(t *testing.T) {
	d := NewDict()
	d.Set("a", int64(1))
	d.Set("b", int64(2))
	d.Set("a", int64(3))

	want := []any{"a", "b"}
	if diff := cmp.Diff(want, d.Keys()); diff != "" {
		t.Fatalf("key order mismatch (-want +got):\n%s", diff)
	}

	v, ok := d.Get("a")
	if !ok || v != int64(3) {
		t.Fatalf("expected overwritten value 3, got %v", v)
	}
}

func TestHostDictKeysCompareByValue(t *testing.T) {
	r := newHostRuntime()

	d := r.NewDict()
	if err := r.DictSet(d, r.NewString("k"), r.NewInt(1)); err != nil {
		t.Fatal(err)
	}
	// A different handle with an equal string must hit the same slot.
	if err := r.DictSet(d, r.NewString("k"), r.NewInt(2)); err != nil {
		t.Fatal(err)
	}

	length, err := r.Length(d)
	if err != nil {
		t.Fatal(err)
	}
	if length != 1 {
		t.Fatalf("expected 1 entry, got %d", length)
	}

	key := r.NewString("k")
	value, err := r.DictGet(d, key)
	if err != nil {
		t.Fatal(err)
	}
	v, err := r.Int(value)
	if err != nil {
		t.Fatal(err)
	}
	if v != 2 {
		t.Fatalf("expected last write 2, got %d", v)
	}

	for _, h := range []Handle{value, key, d} {
		if err := r.DecRef(h); err != nil {
			t.Fatal(err)
		}
	}
	if got := r.allocator.countLive(); got != 0 {
		t.Fatalf("expected no live handles, got %d", got)
	}
}

func TestListAppendStealsAndItemReturnsNewReference(t *testing.T) {
	r := newHostRuntime()

	list := r.NewList(0)
	item := r.NewInt(5)
	if err := r.ListAppend(list, item); err != nil {
		t.Fatal(err)
	}
	if got := r.RefCount(item); got != 1 {
		t.Fatalf("append must steal the reference, refcount is %d", got)
	}

	got, err := r.Item(list, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != item {
		t.Fatalf("expected item handle %d, got %d", item, got)
	}
	if rc := r.RefCount(item); rc != 2 {
		t.Fatalf("item must return a new reference, refcount is %d", rc)
	}

	if err := r.DecRef(got); err != nil {
		t.Fatal(err)
	}

	replacement := r.NewInt(9)
	if err := r.SetItem(list, 0, replacement); err != nil {
		t.Fatal(err)
	}
	if _, err := r.allocator.get(item); err == nil {
		t.Fatal("replaced element must be released")
	}

	if err := r.DecRef(list); err != nil {
		t.Fatal(err)
	}
	if live := r.allocator.countLive(); live != 0 {
		t.Fatalf("releasing the list must release its elements, %d live", live)
	}
}

func TestKindOf(t *testing.T) {
	r := newHostRuntime()

	cases := []struct {
		h    Handle
		want Kind
	}{
		{r.Undefined(), KindUndefined},
		{r.None(), KindNone},
		{r.NewBool(true), KindBool},
		{r.NewInt(1), KindInt},
		{r.NewFloat(1.5), KindFloat},
		{r.NewString("s"), KindString},
		{r.NewList(0), KindList},
		{r.NewDict(), KindDict},
		{invalidHandle, KindInvalid},
	}

	for _, tc := range cases {
		if got := r.KindOf(tc.h); got != tc.want {
			t.Errorf("KindOf(%d) = %d, want %d", tc.h, got, tc.want)
		}
	}
}

func TestPendingErrorIsTakenOnce(t *testing.T) {
	r := newHostRuntime()

	if err := r.TakePending(); err != nil {
		t.Fatalf("expected no pending error, got %v", err)
	}

	r.Raise(errTest)
	if err := r.TakePending(); err != errTest {
		t.Fatalf("expected raised error, got %v", err)
	}
	if err := r.TakePending(); err != nil {
		t.Fatalf("pending error must clear after take, got %v", err)
	}
}

var errTest = errors.New("raised")
