package blackboard

import (
	"fmt"
	"unsafe"

	"robotick/pkg/typeregistry"
)

// Set writes value into the field named name. T's size must exactly
// match the field's registered type size, mirroring the original's
// ROBOTICK_ASSERT(size == found_field->find_type_descriptor()->size);
// a mismatch here is a wiring bug between the declared schema and the
// caller, so it is reported as an error rather than silently truncated.
func Set[T any](b *Blackboard, name string, value T) error {
	ptr, desc, ok := b.FieldPtr(name)
	if !ok {
		return fmt.Errorf("blackboard: no such field %q", name)
	}
	if uintptr(unsafe.Sizeof(value)) != desc.Size {
		return fmt.Errorf("blackboard: field %q is %d bytes, value is %d bytes", name, desc.Size, unsafe.Sizeof(value))
	}
	*(*T)(ptr) = value
	return nil
}

// Get reads the field named name as T, with the same size-matching
// requirement as Set.
func Get[T any](b *Blackboard, name string) (T, error) {
	var zero T
	ptr, desc, ok := b.FieldPtr(name)
	if !ok {
		return zero, fmt.Errorf("blackboard: no such field %q", name)
	}
	if uintptr(unsafe.Sizeof(zero)) != desc.Size {
		return zero, fmt.Errorf("blackboard: field %q is %d bytes, T is %d bytes", name, desc.Size, unsafe.Sizeof(zero))
	}
	return *(*T)(ptr), nil
}

// ResolveDescriptor builds a typeregistry.StructDescriptor snapshot of
// the blackboard's current field layout, the Go analogue of the
// original's resolve_descriptor hook that lets a generic struct
// reflection path describe a Blackboard the same way it describes any
// other registered struct.
func (b *Blackboard) ResolveDescriptor(name string) typeregistry.StructDescriptor {
	fields := make([]typeregistry.FieldDescriptor, 0, len(b.fields))
	for _, f := range b.fields {
		td, _ := b.registry.FindTypeByID(f.TypeID)
		var size uintptr
		if td != nil {
			size = td.Size
		}
		fields = append(fields, typeregistry.FieldDescriptor{Name: f.Name, Offset: f.Offset, Size: size, TypeID: f.TypeID})
	}
	return typeregistry.StructDescriptor{Name: name, Size: b.datablockSize, Fields: fields}
}
