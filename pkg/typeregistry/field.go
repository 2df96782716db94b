package typeregistry

import (
	"unsafe"

	"robotick/pkg/typeid"
)

// FieldDescriptor describes one field of a registered struct type: its
// name, its byte offset within the owning struct (from unsafe.Offsetof,
// never reflect), and the TypeId of the field's own type so the
// data-connection resolver can validate source/destination compatibility
// purely from these descriptors.
type FieldDescriptor struct {
	Name   string
	Offset uintptr
	Size   uintptr
	TypeID typeid.ID
}

// StructDescriptor describes a config/input/output struct registered
// against the type registry: its own TypeId, total size and alignment,
// and the ordered list of its fields.
type StructDescriptor struct {
	Name      string
	TypeID    typeid.ID
	Size      uintptr
	Alignment uintptr
	Fields    []FieldDescriptor
}

// FieldAt returns a pointer to the field described by fd within a struct
// instance located at base.
func (fd FieldDescriptor) FieldAt(base unsafe.Pointer) unsafe.Pointer {
	return unsafe.Add(base, fd.Offset)
}

// FindField looks up a field by name, returning ok=false if absent.
func (sd StructDescriptor) FindField(name string) (FieldDescriptor, bool) {
	for _, f := range sd.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}
