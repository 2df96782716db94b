package typeregistry

import (
	"testing"
	"unsafe"
)

func TestPrimitivesRegistered(t *testing.T) {
	names := []string{"int", "float", "double", "bool", "FixedString8", "FixedString1024"}
	for _, name := range names {
		if _, ok := Global().FindTypeByName(name); !ok {
			t.Fatalf("expected %q to be registered", name)
		}
	}
}

func TestIntRoundTrip(t *testing.T) {
	td, ok := Global().FindTypeByName("int")
	if !ok {
		t.Fatal("int not registered")
	}
	var v int32
	if !td.FromString("42", unsafe.Pointer(&v)) {
		t.Fatal("FromString(42) failed")
	}
	if v != 42 {
		t.Fatalf("v = %d, want 42", v)
	}
	s, ok := td.ToString(unsafe.Pointer(&v))
	if !ok || s != "42" {
		t.Fatalf("ToString = %q, %v; want \"42\", true", s, ok)
	}
}

func TestBoolFromStringVariants(t *testing.T) {
	td, ok := Global().FindTypeByName("bool")
	if !ok {
		t.Fatal("bool not registered")
	}
	cases := map[string]bool{
		"true": true, "TRUE": true, "1": true, "42": true,
		"false": false, "FALSE": false, "0": false,
	}
	for input, want := range cases {
		var v bool
		if !td.FromString(input, unsafe.Pointer(&v)) {
			t.Fatalf("FromString(%q) failed", input)
		}
		if v != want {
			t.Fatalf("FromString(%q) = %v, want %v", input, v, want)
		}
	}
	var v bool
	if td.FromString("banana", unsafe.Pointer(&v)) {
		t.Fatal("FromString(\"banana\") should fail")
	}
}

func TestDuplicateTypeNamePanics(t *testing.T) {
	r := NewRegistry()
	r.RegisterType(TypeDescriptor{Name: "dup", Size: 1, Alignment: 1})
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate type name")
		}
	}()
	r.RegisterType(TypeDescriptor{Name: "dup", Size: 1, Alignment: 1})
}

type lifecycleProbe struct {
	preLoaded, loaded, ticked bool
}

func (p *lifecycleProbe) PreLoad()          { p.preLoaded = true }
func (p *lifecycleProbe) Load()             { p.loaded = true }
func (p *lifecycleProbe) Tick(dt float64)   { p.ticked = true }

func TestRegisterWorkloadDetectsLifecycleMethods(t *testing.T) {
	r := NewRegistry()
	entry := RegisterWorkload[lifecycleProbe](r, "lifecycleProbe", nil, nil)

	if entry.PreLoadFn == nil || entry.LoadFn == nil || entry.TickFn == nil {
		t.Fatal("expected PreLoad/Load/Tick to be detected")
	}
	if entry.SetupFn != nil || entry.StartFn != nil || entry.StopFn != nil {
		t.Fatal("did not expect Setup/Start/Stop to be detected")
	}

	var instance lifecycleProbe
	p := unsafe.Pointer(&instance)
	entry.PreLoadFn(p)
	entry.LoadFn(p)
	entry.TickFn(p, 0.01)

	if !instance.preLoaded || !instance.loaded || !instance.ticked {
		t.Fatal("lifecycle hooks did not reach the underlying instance")
	}
}

func TestFindWorkloadByName(t *testing.T) {
	r := NewRegistry()
	RegisterWorkload[lifecycleProbe](r, "lifecycleProbe", nil, nil)
	if _, ok := r.FindWorkload("lifecycleProbe"); !ok {
		t.Fatal("expected lifecycleProbe to be findable")
	}
	if _, ok := r.FindWorkload("nonexistent"); ok {
		t.Fatal("did not expect nonexistent to be findable")
	}
}
