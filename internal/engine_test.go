package valbind

import (
	"context"
	"errors"
	"testing"
)

type plainType struct {
	Value int64
}

type guardedType struct {
	NoCopy
	Value int64
}

func newTestEngine(t *testing.T) (*engine, context.Context) {
	t.Helper()
	e := CreateEngine(NewConfig()).(*engine)
	return e, e.Attach(context.Background())
}

func TestRegisterTypeCapabilities(t *testing.T) {
	e, _ := newTestEngine(t)

	if err := e.RegisterType(&plainType{}, "plainType"); err != nil {
		t.Fatal(err)
	}

	desc := e.typesByName["plainType"]
	if desc == nil {
		t.Fatal("descriptor not recorded under its name")
	}
	if !desc.canCopy {
		t.Fatal("a plain struct must get the default field-wise copy")
	}
	if desc.canMove {
		t.Fatal("move must require explicit support")
	}

	copied := desc.copyFn(&plainType{Value: 5}).(*plainType)
	if copied.Value != 5 {
		t.Fatalf("default copy lost the value, got %d", copied.Value)
	}
}

func TestRegisterTypeHonorsNoCopy(t *testing.T) {
	e, _ := newTestEngine(t)

	if err := e.RegisterType(&guardedType{}, "guardedType"); err != nil {
		t.Fatal(err)
	}
	if e.typesByName["guardedType"].canCopy {
		t.Fatal("NoCopy must suppress the default copy")
	}
}

func TestRegisterTypeRejectsDuplicates(t *testing.T) {
	e, _ := newTestEngine(t)

	if err := e.RegisterType(&plainType{}, "plainType"); err != nil {
		t.Fatal(err)
	}

	err := e.RegisterType(&plainType{}, "other")
	var dupErr *DuplicateTypeError
	if !errors.As(err, &dupErr) {
		t.Fatalf("expected DuplicateTypeError, got %v", err)
	}
}

func TestRegisterTypeRejectsNonPointerPrototype(t *testing.T) {
	e, _ := newTestEngine(t)

	if err := e.RegisterType(plainType{}, "plainType"); err == nil {
		t.Fatal("expected a non-pointer prototype to be rejected")
	}
}

func TestEmbedRejectsUnregisteredType(t *testing.T) {
	e, _ := newTestEngine(t)

	cleanup := NewCleanupList(e.host, e.host.Undefined())
	defer cleanup.Release()

	_, err := e.embed(cleanup, &plainType{}, ReturnReference)
	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("expected ConversionError, got %v", err)
	}
}

func TestEmbedNilPointerIsNone(t *testing.T) {
	e, _ := newTestEngine(t)

	if err := e.RegisterType(&plainType{}, "plainType"); err != nil {
		t.Fatal(err)
	}

	cleanup := NewCleanupList(e.host, e.host.Undefined())
	defer cleanup.Release()

	var p *plainType
	h, err := e.embed(cleanup, p, ReturnReference)
	if err != nil {
		t.Fatal(err)
	}
	if !e.host.IsNone(h) {
		t.Fatalf("expected none, got handle %d", h)
	}
}

func TestInstanceRegistryDropsDeadPointers(t *testing.T) {
	e, _ := newTestEngine(t)

	if err := e.RegisterType(&plainType{}, "plainType"); err != nil {
		t.Fatal(err)
	}

	cleanup := NewCleanupList(e.host, e.host.Undefined())
	defer cleanup.Release()

	p := &plainType{Value: 1}
	h, err := e.embed(cleanup, p, ReturnTakeOwnership)
	if err != nil {
		t.Fatal(err)
	}
	if e.CountLiveInstances() != 1 {
		t.Fatalf("expected 1 live instance, got %d", e.CountLiveInstances())
	}

	if err := e.host.DecRef(h); err != nil {
		t.Fatal(err)
	}
	if e.CountLiveInstances() != 0 {
		t.Fatalf("expected no live instances, got %d", e.CountLiveInstances())
	}
}
