package blackboard

import (
	"unsafe"

	"robotick/pkg/typeregistry"
)

// FieldTypeName is the registered primitive type name used for a
// config/input/output struct field that holds a pointer to a
// Blackboard. A workload declares such a field as an ordinary pointer-
// sized field of this type; the data-connection resolver recognizes it
// to support the 4-token "workload.section.field.subfield" path needed
// to address one of the blackboard's own dynamically-declared fields.
const FieldTypeName = "blackboard"

func init() {
	var p unsafe.Pointer
	typeregistry.Global().RegisterType(typeregistry.TypeDescriptor{
		Name:      FieldTypeName,
		Size:      unsafe.Sizeof(p),
		Alignment: unsafe.Alignof(p),
		ToString: func(data unsafe.Pointer) (string, bool) {
			return "<blackboard>", true
		},
		FromString: func(str string, out unsafe.Pointer) bool {
			return false
		},
	})
}

// PtrAt reads the *Blackboard stored in a pointer-sized field located
// at p, or nil if none has been set there yet.
func PtrAt(p unsafe.Pointer) *Blackboard {
	return *(**Blackboard)(p)
}

// StoreAt stores b into the pointer-sized field located at p.
func StoreAt(p unsafe.Pointer, b *Blackboard) {
	*(**Blackboard)(p) = b
}
