package composition

import (
	"time"
	"unsafe"

	"go.uber.org/zap"

	"robotick/pkg/dataconn"
)

// Child is one workload placed under a composition group: its identity,
// its pointer into the workloads buffer, its registered tick function
// (nil for workloads with no Tick lifecycle method), and the data
// connections the group has claimed responsibility for copying into it
// immediately before it ticks.
type Child struct {
	Name string
	Ptr  unsafe.Pointer
	Tick func(p unsafe.Pointer, dtSeconds float64)

	ConnectionsIn []*dataconn.Info
}

// SequencedGroup ticks its children in declared order, on a single
// goroutine, copying each child's claimed incoming connections
// immediately before that child ticks. This is the Go analogue of
// SequencedGroupWorkload: no per-child thread, no synchronization
// overhead, and strict in-order execution.
type SequencedGroup struct {
	children []*Child
	logger   *zap.Logger
}

// NewSequencedGroup constructs an empty sequenced group that logs
// overrun warnings through logger.
func NewSequencedGroup(logger *zap.Logger) *SequencedGroup {
	return &SequencedGroup{logger: logger}
}

// SetChildren installs the group's children in tick order.
func (g *SequencedGroup) SetChildren(children []*Child) {
	g.children = children
}

// ClaimConnections assigns every still-unassigned connection whose
// destination is one of this group's children to that child's
// ConnectionsIn, regardless of where the connection's source lives.
// This mirrors spec.md's literal claiming rule for a sequenced group,
// not the legacy original's stricter rule (which additionally required
// the source to be a local child — see DESIGN.md).
func (g *SequencedGroup) ClaimConnections(conns []*dataconn.Info) {
	byName := make(map[string]*Child, len(g.children))
	for _, c := range g.children {
		byName[c.Name] = c
	}

	for _, conn := range conns {
		if conn.Handler != dataconn.HandlerUnassigned {
			continue
		}
		child, ok := byName[conn.DestPath.WorkloadName]
		if !ok {
			continue
		}
		child.ConnectionsIn = append(child.ConnectionsIn, conn)
		conn.Handler = dataconn.HandlerSequencedGroup
	}
}

// Tick copies each child's claimed connections and ticks the child, in
// declared order, on the calling goroutine. It logs (but does not
// otherwise act on) a tick that overran its budget, matching the
// original's overrun diagnostic.
func (g *SequencedGroup) Tick(info TickInfo) {
	start := time.Now()

	for _, child := range g.children {
		if child.Tick == nil {
			continue
		}
		for _, conn := range child.ConnectionsIn {
			copyConnection(conn)
		}
		child.Tick(child.Ptr, info.DeltaTime)
	}

	if budget := time.Duration(info.DeltaTime * float64(time.Second)); budget > 0 {
		if elapsed := time.Since(start); elapsed > budget && g.logger != nil {
			g.logger.Warn("sequenced group tick overran budget",
				zap.Duration("elapsed", elapsed),
				zap.Duration("budget", budget))
		}
	}
}

func copyConnection(conn *dataconn.Info) {
	dst := unsafe.Slice((*byte)(conn.Dest), conn.Size)
	src := unsafe.Slice((*byte)(conn.Source), conn.Size)
	copy(dst, src)
}
