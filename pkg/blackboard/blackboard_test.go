package blackboard

import (
	"unsafe"

	"testing"

	"robotick/pkg/typeregistry"
)

func testRegistry() *typeregistry.Registry {
	r := typeregistry.NewRegistry()
	typeregistry.RegisterPrimitives(r)
	return r
}

func TestInitializeFieldsComputesOffsets(t *testing.T) {
	b := New(testRegistry())
	err := b.InitializeFields([]FieldDeclaration{
		{Name: "flag", TypeName: "bool"},
		{Name: "count", TypeName: "int"},
		{Name: "ratio", TypeName: "double"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if b.DatablockSize() == 0 {
		t.Fatal("expected non-zero datablock size")
	}

	flag, ok := b.findField("flag")
	if !ok || flag.Offset != 0 {
		t.Fatalf("flag offset = %v (ok=%v), want 0", flag.Offset, ok)
	}

	ratio, ok := b.findField("ratio")
	if !ok || ratio.Offset%8 != 0 {
		t.Fatalf("ratio offset = %d, want 8-byte aligned", ratio.Offset)
	}
}

func TestInitializeFieldsRejectsDuplicates(t *testing.T) {
	b := New(testRegistry())
	err := b.InitializeFields([]FieldDeclaration{
		{Name: "x", TypeName: "int"},
		{Name: "x", TypeName: "int"},
	})
	if err == nil {
		t.Fatal("expected error for duplicate field name")
	}
}

func TestInitializeFieldsRejectsUnknownType(t *testing.T) {
	b := New(testRegistry())
	err := b.InitializeFields([]FieldDeclaration{{Name: "x", TypeName: "nope"}})
	if err == nil {
		t.Fatal("expected error for unknown type name")
	}
}

func TestFieldPtrPanicsBeforeBind(t *testing.T) {
	b := New(testRegistry())
	_ = b.InitializeFields([]FieldDeclaration{{Name: "x", TypeName: "int"}})
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unbound field access")
		}
	}()
	b.FieldPtr("x")
}

func TestSetGetRoundTrip(t *testing.T) {
	b := New(testRegistry())
	if err := b.InitializeFields([]FieldDeclaration{
		{Name: "count", TypeName: "int"},
		{Name: "ratio", TypeName: "double"},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	storage := make([]byte, b.DatablockSize())
	b.Bind(unsafe.Pointer(&storage[0]), 0)

	if err := Set[int32](b, "count", 42); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := Set[float64](b, "ratio", 3.5); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := Get[int32](b, "count")
	if err != nil || got != 42 {
		t.Fatalf("Get(count) = %v, %v; want 42, nil", got, err)
	}

	gotR, err := Get[float64](b, "ratio")
	if err != nil || gotR != 3.5 {
		t.Fatalf("Get(ratio) = %v, %v; want 3.5, nil", gotR, err)
	}
}

func TestSetRejectsSizeMismatch(t *testing.T) {
	b := New(testRegistry())
	_ = b.InitializeFields([]FieldDeclaration{{Name: "count", TypeName: "int"}})
	storage := make([]byte, b.DatablockSize())
	b.Bind(unsafe.Pointer(&storage[0]), 0)

	if err := Set[int64](b, "count", 1); err == nil {
		t.Fatal("expected size-mismatch error for int64 against a 4-byte int field")
	}
}

func TestHasFieldAndUnboundStateBeforeBind(t *testing.T) {
	b := New(testRegistry())
	if b.IsBound() {
		t.Fatal("fresh blackboard should not be bound")
	}
	_ = b.InitializeFields([]FieldDeclaration{{Name: "x", TypeName: "int"}})
	if !b.HasField("x") {
		t.Fatal("expected HasField(x) to be true")
	}
	if b.HasField("y") {
		t.Fatal("expected HasField(y) to be false")
	}
}
