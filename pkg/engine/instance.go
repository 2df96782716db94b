// Package engine turns a built model.Model into a running workload tree:
// it places every leaf workload's config/input/output structs into a
// single workloads buffer, binds any dynamic blackboard fields, hydrates
// config and constant inputs, resolves and classifies every data
// connection, composes the sequenced/synced group tree, and drives the
// root at its own tick rate until stopped. It is the Go analogue of
// Engine.cpp's load/start/run/stop sequence.
package engine

import (
	"sync/atomic"
	"time"
	"unsafe"

	"robotick/pkg/composition"
	"robotick/pkg/dataconn"
	"robotick/pkg/model"
	"robotick/pkg/typeregistry"
)

// kind distinguishes a leaf workload instance (backed by a registered
// WorkloadDescriptor and placed in the workloads buffer) from the two
// compositional node kinds, which own no buffer placement of their own.
type kind int

const (
	kindLeaf kind = iota
	kindSequencedGroup
	kindSyncedGroup
)

// Stats holds the mutable per-tick diagnostics for one instance,
// updated from whichever goroutine ticks it. Both fields are accessed
// with atomic loads/stores: a telemetry reader racing a tick may see
// the previous or current value, never a torn one.
type Stats struct {
	lastTickDurationNs atomic.Uint64
	lastTimeDeltaNs    atomic.Uint64
}

// Record stores the duration of the tick just completed and the elapsed
// time since the previous one.
func (s *Stats) Record(tickDuration, timeDelta time.Duration) {
	s.lastTickDurationNs.Store(uint64(tickDuration.Nanoseconds()))
	s.lastTimeDeltaNs.Store(uint64(timeDelta.Nanoseconds()))
}

// LastTickDuration returns the most recently recorded tick duration.
func (s *Stats) LastTickDuration() time.Duration {
	return time.Duration(s.lastTickDurationNs.Load())
}

// LastTimeDelta returns the most recently recorded inter-tick delta.
func (s *Stats) LastTimeDelta() time.Duration {
	return time.Duration(s.lastTimeDeltaNs.Load())
}

// Instance is the Go analogue of WorkloadInstanceInfo: everything set
// once at load about one node in the workload tree, plus its mutable
// per-tick Stats. For a leaf instance, ptr points at its place inside
// the engine's workloads buffer; for a compositional instance, ptr is
// nil and the node's behavior lives in seqGroup/syncGroup instead.
type Instance struct {
	name string
	seed *model.WorkloadSeed
	kind kind

	descriptor *typeregistry.WorkloadDescriptor // nil for compositional kinds
	offset     uintptr
	ptr        unsafe.Pointer

	parent   *Instance
	children []*Instance

	seqGroup  *composition.SequencedGroup // set only when kind == kindSequencedGroup
	syncGroup *composition.SyncedGroup    // set only when kind == kindSyncedGroup

	Stats Stats
}

// Name returns the instance's unique name within the tree.
func (w *Instance) Name() string { return w.name }

// ParentName returns the unique name of this instance's direct parent,
// or "" for the root. It satisfies dataconn.Instance.
func (w *Instance) ParentName() string {
	if w.parent == nil {
		return ""
	}
	return w.parent.name
}

// Section returns the struct descriptor and base pointer for one of this
// leaf instance's config/input/output sections. It satisfies
// dataconn.Instance; a compositional instance has no sections at all.
func (w *Instance) Section(s dataconn.Section) (*typeregistry.StructDescriptor, unsafe.Pointer, bool) {
	if w.descriptor == nil {
		return nil, nil, false
	}
	switch s {
	case dataconn.SectionConfig:
		if w.descriptor.ConfigStruct == nil {
			return nil, nil, false
		}
		return w.descriptor.ConfigStruct, unsafe.Add(w.ptr, w.descriptor.ConfigOffset), true
	case dataconn.SectionInputs:
		if w.descriptor.InputStruct == nil {
			return nil, nil, false
		}
		return w.descriptor.InputStruct, unsafe.Add(w.ptr, w.descriptor.InputOffset), true
	case dataconn.SectionOutputs:
		if w.descriptor.OutputStruct == nil {
			return nil, nil, false
		}
		return w.descriptor.OutputStruct, unsafe.Add(w.ptr, w.descriptor.OutputOffset), true
	default:
		return nil, nil, false
	}
}

// Children returns this instance's direct children in declaration order.
func (w *Instance) Children() []*Instance { return w.children }

// Seed returns the model seed this instance was built from.
func (w *Instance) Seed() *model.WorkloadSeed { return w.seed }

// tickFunc returns the function an enclosing composition group calls to
// tick this instance, regardless of whether it is a leaf workload or a
// nested compositional group — both present the same
// func(unsafe.Pointer, float64) shape to their parent, timing the call
// and recording it in Stats. It returns nil for a leaf with no Tick
// lifecycle method; a compositional group always gets a function, even
// with no children.
func (w *Instance) tickFunc() func(p unsafe.Pointer, dtSeconds float64) {
	stats := &w.Stats

	switch w.kind {
	case kindLeaf:
		if w.descriptor == nil || w.descriptor.TickFn == nil {
			return nil
		}
		fn := w.descriptor.TickFn
		return func(p unsafe.Pointer, dtSeconds float64) {
			start := time.Now()
			fn(p, dtSeconds)
			stats.Record(time.Since(start), time.Duration(dtSeconds*float64(time.Second)))
		}
	case kindSequencedGroup:
		group := w.seqGroup
		return func(_ unsafe.Pointer, dtSeconds float64) {
			start := time.Now()
			group.Tick(composition.TickInfo{DeltaTime: dtSeconds})
			stats.Record(time.Since(start), time.Duration(dtSeconds*float64(time.Second)))
		}
	case kindSyncedGroup:
		group := w.syncGroup
		return func(_ unsafe.Pointer, dtSeconds float64) {
			start := time.Now()
			group.Tick()
			stats.Record(time.Since(start), time.Duration(dtSeconds*float64(time.Second)))
		}
	default:
		return nil
	}
}
