// Package blackboard implements the dynamic-struct field container used
// by workloads whose field set is only known once the model is loaded
// (as opposed to the config/input/output structs registered at compile
// time). A Blackboard declares its fields during the PreLoad lifecycle
// phase; its actual storage is carved out of the engine's blackboard
// buffer once Bind is called with an offset, and every subsequent Get/Set resolves
// through the field table computed at declaration time.
package blackboard

import (
	"fmt"
	"unsafe"

	"robotick/pkg/typeid"
	"robotick/pkg/typeregistry"
)

// OffsetUnbound marks a Blackboard that has had fields declared but has
// not yet been bound to storage, matching the original's
// OFFSET_UNBOUND sentinel (SIZE_MAX there; the max uintptr here, since
// no real offset can plausibly reach it).
const OffsetUnbound = ^uintptr(0)

// Field describes one dynamically-declared blackboard field: its name,
// its byte offset within the blackboard's own datablock (computed by
// InitializeFields, not by the caller), and its type.
type Field struct {
	Name   string
	Offset uintptr
	TypeID typeid.ID
}

// Blackboard is a dynamic struct: a named, typed field set declared at
// PreLoad time and bound to a fixed region of the blackboard buffer at
// Bind time. It never allocates after Bind; Get and Set resolve to
// plain pointer arithmetic over that region.
type Blackboard struct {
	registry *typeregistry.Registry

	fields          []Field
	datablockSize   uintptr
	datablockOffset uintptr

	datablock unsafe.Pointer
}

// New constructs an unbound, fieldless Blackboard that resolves field
// types against reg.
func New(reg *typeregistry.Registry) *Blackboard {
	return &Blackboard{registry: reg, datablockOffset: OffsetUnbound}
}

// InitializeFields declares the blackboard's field set from a list of
// (name, registered type name) pairs, in the fixed order given. It
// computes each field's offset within the blackboard's datablock using
// the same align-up bump allocation as the original, and must be called
// exactly once, during PreLoad, before the blackboard buffer is sized.
func (b *Blackboard) InitializeFields(declarations []FieldDeclaration) error {
	if len(b.fields) > 0 {
		return fmt.Errorf("blackboard: InitializeFields called more than once")
	}

	fields := make([]Field, 0, len(declarations))
	var size uintptr

	seen := make(map[string]bool, len(declarations))
	for _, decl := range declarations {
		if seen[decl.Name] {
			return fmt.Errorf("blackboard: duplicate field name %q", decl.Name)
		}
		seen[decl.Name] = true

		td, ok := b.registry.FindTypeByName(decl.TypeName)
		if !ok {
			return fmt.Errorf("blackboard: unknown field type %q for field %q", decl.TypeName, decl.Name)
		}

		size = alignUp(size, td.Alignment)
		fields = append(fields, Field{Name: decl.Name, Offset: size, TypeID: td.ID})
		size += td.Size
	}

	b.fields = fields
	b.datablockSize = size
	return nil
}

// FieldDeclaration names one field to declare via InitializeFields.
type FieldDeclaration struct {
	Name     string
	TypeName string
}

func alignUp(value, alignment uintptr) uintptr {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// DatablockSize returns the total size, in bytes, needed to store this
// blackboard's declared fields. It is valid only after InitializeFields.
func (b *Blackboard) DatablockSize() uintptr { return b.datablockSize }

// Bind attaches the blackboard's storage to datablock, a region of at
// least DatablockSize() bytes carved out of the blackboard buffer by the
// placement planner. It must be called exactly once, after
// InitializeFields and before any Get/Set call.
func (b *Blackboard) Bind(datablock unsafe.Pointer, offset uintptr) {
	b.datablock = datablock
	b.datablockOffset = offset
}

// IsBound reports whether Bind has been called.
func (b *Blackboard) IsBound() bool { return b.datablockOffset != OffsetUnbound }

// HasField reports whether name was declared via InitializeFields.
func (b *Blackboard) HasField(name string) bool {
	_, ok := b.findField(name)
	return ok
}

func (b *Blackboard) findField(name string) (Field, bool) {
	for _, f := range b.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldPtr returns a pointer to the given field's storage, and its
// TypeDescriptor, or ok=false if the field is undeclared. It panics if
// the blackboard has not yet been bound — reading an unbound
// blackboard is always a load-ordering bug.
func (b *Blackboard) FieldPtr(name string) (ptr unsafe.Pointer, desc *typeregistry.TypeDescriptor, ok bool) {
	if !b.IsBound() {
		panic("blackboard: field access before Bind")
	}
	field, found := b.findField(name)
	if !found {
		return nil, nil, false
	}
	desc, _ = b.registry.FindTypeByID(field.TypeID)
	return unsafe.Add(b.datablock, field.Offset), desc, true
}

// Fields returns the blackboard's declared fields in declaration order.
func (b *Blackboard) Fields() []Field { return b.fields }
