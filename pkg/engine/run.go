package engine

import (
	"context"
	"fmt"
	"time"
	"unsafe"

	"robotick/pkg/dataconn"
	"robotick/pkg/model"
	"robotick/pkg/platform"
)

// copyRootConnections copies every connection no sequenced group has
// claimed (left Unassigned, or marked DelegateToParent by a synced
// group), once per root tick, immediately before the root ticks.
func (e *Engine) copyRootConnections() {
	for _, conn := range e.connections {
		if conn.Handler == dataconn.HandlerSequencedGroup {
			continue
		}
		copy(unsafe.Slice((*byte)(conn.Dest), conn.Size), unsafe.Slice((*byte)(conn.Source), conn.Size))
	}
}

// Start calls every leaf's Start lifecycle method (children before their
// parent) and launches every synced group's worker goroutines. Load must
// have completed successfully before calling Start.
func (e *Engine) Start() {
	var start func(inst *Instance)
	start = func(inst *Instance) {
		for _, child := range inst.children {
			start(child)
		}
		switch inst.kind {
		case kindLeaf:
			if inst.descriptor.StartFn != nil {
				inst.descriptor.StartFn(inst.ptr)
			}
		case kindSyncedGroup:
			inst.syncGroup.Start()
		}
	}
	start(e.root)
}

// Stop stops every synced group's workers and calls every leaf's Stop
// lifecycle method, both in reverse of Start's order (parent before
// children), matching the original's recursive stop_fn.
func (e *Engine) Stop() {
	var stop func(inst *Instance)
	stop = func(inst *Instance) {
		switch inst.kind {
		case kindLeaf:
			if inst.descriptor.StopFn != nil {
				inst.descriptor.StopFn(inst.ptr)
			}
		case kindSyncedGroup:
			inst.syncGroup.Stop()
		}
		for _, child := range inst.children {
			stop(child)
		}
	}
	stop(e.root)
}

// Run drives the root at its own tick rate until ctx is cancelled. It
// calls Start before the first tick and Stop after the last one, so
// callers only need Load and Run for the common case. The root's tick
// rate must be positive; model.Finalize already rejects a zero-rate
// root, so this check only catches a model loaded without finalizing.
func (e *Engine) Run(ctx context.Context) error {
	if e.root == nil {
		return fmt.Errorf("engine: Run called before Load")
	}
	rate := e.root.seed.TickRateHz
	if rate <= 0 {
		return fmt.Errorf("engine: root workload %q has no tick rate", e.root.name)
	}

	rootTick := e.root.tickFunc()
	if rootTick == nil {
		return fmt.Errorf("engine: root workload %q has nothing to tick", e.root.name)
	}

	e.Start()
	defer e.Stop()

	interval := time.Duration(float64(time.Second) / rate)
	lastTick := time.Now()
	nextTick := lastTick.Add(interval)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		now := time.Now()
		dt := now.Sub(lastTick).Seconds()
		lastTick = now

		e.copyRootConnections()
		rootTick(e.root.ptr, dt)

		nextTick = nextTick.Add(interval)
		platform.HybridSleepUntil(nextTick)
	}
}

// Tick drives the root through exactly one tick with the given elapsed
// time, bypassing Run's own scheduling loop. It is meant for tests and
// callers that own their own scheduling (e.g. driving the engine from
// an external simulation clock).
func (e *Engine) Tick(dtSeconds float64) error {
	if e.root == nil {
		return fmt.Errorf("engine: Tick called before Load")
	}
	rootTick := e.root.tickFunc()
	if rootTick == nil {
		return fmt.Errorf("engine: root workload %q has nothing to tick", e.root.name)
	}
	e.copyRootConnections()
	rootTick(e.root.ptr, dtSeconds)
	return nil
}

// RootKindName reports which compositional kind, if any, the root is —
// used for diagnostics such as a status endpoint describing the loaded
// tree's shape.
func (e *Engine) RootKindName() string {
	switch e.root.kind {
	case kindSequencedGroup:
		return model.TypeNameSequencedGroup
	case kindSyncedGroup:
		return model.TypeNameSyncedGroup
	default:
		return e.root.seed.TypeName
	}
}
