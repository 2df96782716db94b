package typeregistry

import (
	"fmt"
	"sync"
	"unsafe"

	"robotick/pkg/typeid"
)

// TypeDescriptor describes a primitive or fixed-string type the registry
// knows how to convert to and from its textual representation, the Go
// analogue of the C++ original's function-pointer-table TypeDescriptor.
type TypeDescriptor struct {
	Name      string
	ID        typeid.ID
	Size      uintptr
	Alignment uintptr

	// ToString renders the bytes at data (exactly Size bytes) as text.
	ToString func(data unsafe.Pointer) (string, bool)

	// FromString parses str and writes the result into the Size bytes
	// at out. It returns false if str could not be parsed.
	FromString func(str string, out unsafe.Pointer) bool
}

// Registry is the process-wide catalogue of primitive types, structs and
// workloads. It is safe for concurrent use; registration normally
// happens during package init, but lookups happen continuously during
// model loading and teardown.
type Registry struct {
	mu        sync.RWMutex
	types     map[typeid.ID]*TypeDescriptor
	typesByNm map[string]*TypeDescriptor
	structs   map[typeid.ID]*StructDescriptor
	workloads map[string]*WorkloadDescriptor
}

var global = NewRegistry()

// Global returns the process-wide registry used by package init
// registrations and by the model and engine packages.
func Global() *Registry { return global }

// NewRegistry constructs an empty registry. Most callers want Global();
// NewRegistry exists mainly for isolated tests.
func NewRegistry() *Registry {
	return &Registry{
		types:     make(map[typeid.ID]*TypeDescriptor),
		typesByNm: make(map[string]*TypeDescriptor),
		structs:   make(map[typeid.ID]*StructDescriptor),
		workloads: make(map[string]*WorkloadDescriptor),
	}
}

// RegisterType adds a primitive type descriptor to the registry. It
// panics on a duplicate id or name, matching the original's fatal-error
// behavior on what is, in both languages, a build-time programming
// error rather than a recoverable runtime condition.
func (r *Registry) RegisterType(desc TypeDescriptor) {
	if desc.ID == typeid.Invalid {
		desc.ID = typeid.FromName(desc.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[desc.ID]; exists {
		panic(fmt.Sprintf("typeregistry: duplicate type id for %q", desc.Name))
	}
	if _, exists := r.typesByNm[desc.Name]; exists {
		panic(fmt.Sprintf("typeregistry: duplicate type name %q", desc.Name))
	}

	d := desc
	r.types[d.ID] = &d
	r.typesByNm[d.Name] = &d
}

// FindTypeByID looks up a primitive type descriptor by id.
func (r *Registry) FindTypeByID(id typeid.ID) (*TypeDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.types[id]
	return d, ok
}

// FindTypeByName looks up a primitive type descriptor by registered name.
func (r *Registry) FindTypeByName(name string) (*TypeDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.typesByNm[name]
	return d, ok
}

// RegisteredTypeCount returns the number of primitive types registered.
func (r *Registry) RegisteredTypeCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// RegisterStruct adds a config/input/output struct descriptor, keyed by
// its TypeId, so it can later be attached to a WorkloadDescriptor.
func (r *Registry) RegisterStruct(desc StructDescriptor) {
	if desc.TypeID == typeid.Invalid {
		desc.TypeID = typeid.FromName(desc.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.structs[desc.TypeID]; exists {
		panic(fmt.Sprintf("typeregistry: duplicate struct id for %q", desc.Name))
	}

	d := desc
	r.structs[d.TypeID] = &d
}

// FindStruct looks up a registered struct descriptor by its TypeId.
func (r *Registry) FindStruct(id typeid.ID) (*StructDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.structs[id]
	return d, ok
}
