package typeregistry

import (
	"fmt"
	"unsafe"
)

// The lifecycle interfaces below are the Go counterpart of the original
// C++ registry's SFINAE-based has_pre_load/has_load/... trait probes.
// Rather than detecting method presence at compile time through template
// metaprogramming, a workload type simply implements whichever of these
// interfaces apply; WorkloadDescriptor construction uses an ordinary
// type assertion to decide which lifecycle hooks to wire up. No
// reflection is involved on either side.

// PreLoader is implemented by workloads that need to run after
// construction but before their dynamic fields are bound and their
// config is hydrated (typically: declaring dynamic blackboard fields).
type PreLoader interface {
	PreLoad()
}

// Loader is implemented by workloads that need to run once their
// config has been hydrated from the model, but before data connections
// are resolved.
type Loader interface {
	Load()
}

// Setuper is implemented by workloads that need one-time setup after
// all data connections have been resolved and the workload tree is
// fully wired, but before ticking starts.
type Setuper interface {
	Setup()
}

// Starter is implemented by workloads that need to run when the engine
// transitions from loaded to running.
type Starter interface {
	Start()
}

// Stopper is implemented by workloads that need to run when the engine
// stops; the engine stops a parent before its children.
type Stopper interface {
	Stop()
}

// Ticker is implemented by workloads that do work on every scheduler
// tick. dtSeconds is the elapsed time since the previous tick of this
// workload specifically (not the root), matching the original's
// per-workload double dt tick signature.
type Ticker interface {
	Tick(dtSeconds float64)
}

// BindableRegion is satisfied by any dynamically-sized region a workload
// needs carved out of the engine's blackboard buffer after construction but before
// its config is hydrated — currently only *blackboard.Blackboard, which
// this package cannot reference by name without an import cycle
// (blackboard already depends on typeregistry for field type lookup), so
// the interface is expressed structurally instead.
type BindableRegion interface {
	DatablockSize() uintptr
	Bind(data unsafe.Pointer, offset uintptr)
}

// DynamicFieldOwner is implemented by workloads that own one or more
// BindableRegions (blackboards) whose size is only known after PreLoad
// has declared their fields. The engine's load pipeline calls
// OwnedRegions after PreLoad and before hydrating config, so every
// region it returns can be placed and bound before anything tries to
// read or write through it.
type DynamicFieldOwner interface {
	OwnedRegions() []BindableRegion
}

// WorkloadDescriptor is the Go analogue of WorkloadRegistryEntry: a
// function-pointer table built once at registration time and then
// invoked purely through unsafe.Pointer arithmetic by the engine's load
// pipeline, without any further type assertions or reflection at
// runtime.
type WorkloadDescriptor struct {
	Name      string
	Size      uintptr
	Alignment uintptr

	Construct func(p unsafe.Pointer)
	Destruct  func(p unsafe.Pointer)

	ConfigStruct *StructDescriptor
	ConfigOffset uintptr

	InputStruct *StructDescriptor
	InputOffset uintptr

	OutputStruct *StructDescriptor
	OutputOffset uintptr

	PreLoadFn func(p unsafe.Pointer)
	LoadFn    func(p unsafe.Pointer)
	SetupFn   func(p unsafe.Pointer)
	StartFn   func(p unsafe.Pointer)
	StopFn    func(p unsafe.Pointer)
	TickFn    func(p unsafe.Pointer, dtSeconds float64)

	DynamicFieldsFn func(p unsafe.Pointer) []BindableRegion
}

// RegisterWorkload builds a WorkloadDescriptor for Go type T using a
// zero-value *T to probe the lifecycle interfaces above, and registers
// it under name. construct/destruct are provided by the caller because
// Go (unlike C++ placement-new) has no generic way to construct a T at
// an arbitrary address; either may be nil.
func RegisterWorkload[T any](r *Registry, name string, construct, destruct func(p unsafe.Pointer)) *WorkloadDescriptor {
	var zero T
	probe := any(&zero)

	entry := &WorkloadDescriptor{
		Name:      name,
		Size:      unsafe.Sizeof(zero),
		Alignment: unsafe.Alignof(zero),
		Construct: construct,
		Destruct:  destruct,
	}

	if _, ok := probe.(PreLoader); ok {
		entry.PreLoadFn = func(p unsafe.Pointer) { any((*T)(p)).(PreLoader).PreLoad() }
	}
	if _, ok := probe.(Loader); ok {
		entry.LoadFn = func(p unsafe.Pointer) { any((*T)(p)).(Loader).Load() }
	}
	if _, ok := probe.(Setuper); ok {
		entry.SetupFn = func(p unsafe.Pointer) { any((*T)(p)).(Setuper).Setup() }
	}
	if _, ok := probe.(Starter); ok {
		entry.StartFn = func(p unsafe.Pointer) { any((*T)(p)).(Starter).Start() }
	}
	if _, ok := probe.(Stopper); ok {
		entry.StopFn = func(p unsafe.Pointer) { any((*T)(p)).(Stopper).Stop() }
	}
	if _, ok := probe.(Ticker); ok {
		entry.TickFn = func(p unsafe.Pointer, dt float64) { any((*T)(p)).(Ticker).Tick(dt) }
	}
	if _, ok := probe.(DynamicFieldOwner); ok {
		entry.DynamicFieldsFn = func(p unsafe.Pointer) []BindableRegion { return any((*T)(p)).(DynamicFieldOwner).OwnedRegions() }
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.workloads[name]; exists {
		panic(fmt.Sprintf("typeregistry: duplicate workload name %q", name))
	}
	r.workloads[name] = entry
	return entry
}

// WithConfigStruct attaches a config struct descriptor to a workload
// descriptor, given the byte offset of the Config field within T. Call
// sites compute offset via unsafe.Offsetof on a *T literal.
func (w *WorkloadDescriptor) WithConfigStruct(sd *StructDescriptor, offset uintptr) *WorkloadDescriptor {
	w.ConfigStruct, w.ConfigOffset = sd, offset
	return w
}

// WithInputStruct attaches an input struct descriptor, analogous to
// WithConfigStruct.
func (w *WorkloadDescriptor) WithInputStruct(sd *StructDescriptor, offset uintptr) *WorkloadDescriptor {
	w.InputStruct, w.InputOffset = sd, offset
	return w
}

// WithOutputStruct attaches an output struct descriptor, analogous to
// WithConfigStruct.
func (w *WorkloadDescriptor) WithOutputStruct(sd *StructDescriptor, offset uintptr) *WorkloadDescriptor {
	w.OutputStruct, w.OutputOffset = sd, offset
	return w
}

// FindWorkload looks up a registered workload descriptor by name.
func (r *Registry) FindWorkload(name string) (*WorkloadDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.workloads[name]
	return d, ok
}

// RegisteredWorkloadCount returns the number of registered workload
// types.
func (r *Registry) RegisteredWorkloadCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workloads)
}
