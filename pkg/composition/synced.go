package composition

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"robotick/pkg/dataconn"
	"robotick/pkg/platform"
)

// SyncedChild extends Child with the tick rate its own worker goroutine
// paces itself to; a zero rate means the child never gets its own
// worker (e.g. a pure data sink with no Tick method).
type SyncedChild struct {
	Child
	TickRateHz float64

	tickCounter atomic.Uint32
}

// SyncedGroup gives each child its own worker goroutine, woken together
// whenever the group itself ticks, then left to pace its own execution
// at its own declared rate via a hybrid sleep. This is the Go analogue
// of SyncedGroupWorkload: genuine concurrency between children, at the
// cost of the data-connection copies into a synced child no longer
// being safely ownable by the group itself — see ClaimConnections.
type SyncedGroup struct {
	children []*SyncedChild
	logger   *zap.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	running atomic.Bool
	wg      sync.WaitGroup

	cpuAffinity int
}

// NewSyncedGroup constructs an empty synced group. cpuAffinity selects
// which CPU (on Linux) every child worker goroutine attempts to pin its
// OS thread to; pass a negative value to leave affinity unset.
func NewSyncedGroup(logger *zap.Logger, cpuAffinity int) *SyncedGroup {
	g := &SyncedGroup{logger: logger, cpuAffinity: cpuAffinity}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// SetChildren installs the group's children.
func (g *SyncedGroup) SetChildren(children []*SyncedChild) {
	g.children = children
}

// ClaimConnections marks every still-unassigned connection whose
// destination is a child of this group as DelegateToParent: a synced
// child runs on its own free-running goroutine, so the group cannot
// guarantee a safe moment to copy into it the way a sequenced group
// can between two children's in-order ticks. The engine copies every
// DelegateToParent connection once per root tick, just before the root
// ticks; no enclosing sequenced group claims it.
func (g *SyncedGroup) ClaimConnections(conns []*dataconn.Info) {
	names := make(map[string]bool, len(g.children))
	for _, c := range g.children {
		names[c.Name] = true
	}
	for _, conn := range conns {
		if conn.Handler != dataconn.HandlerUnassigned {
			continue
		}
		if names[conn.DestPath.WorkloadName] {
			conn.Handler = dataconn.HandlerDelegateToParent
		}
	}
}

// Start launches one worker goroutine per child with a non-zero tick
// rate and a non-nil Tick function.
func (g *SyncedGroup) Start() {
	g.running.Store(true)
	for _, child := range g.children {
		if child.TickRateHz <= 0 || child.Tick == nil {
			continue
		}
		g.wg.Add(1)
		go g.runChild(child)
	}
}

// Tick increments every child's tick counter and wakes every worker
// goroutine waiting on one. The group itself does not copy any data or
// call any child's Tick function directly; each child's own worker
// decides, from the updated counter, that it is time to run.
func (g *SyncedGroup) Tick() {
	g.mu.Lock()
	for _, child := range g.children {
		child.tickCounter.Add(1)
	}
	g.cond.Broadcast()
	g.mu.Unlock()
}

// Stop signals every worker goroutine to exit and waits for them to do
// so.
func (g *SyncedGroup) Stop() {
	g.running.Store(false)
	g.mu.Lock()
	g.cond.Broadcast()
	g.mu.Unlock()
	g.wg.Wait()
}

func (g *SyncedGroup) runChild(child *SyncedChild) {
	defer g.wg.Done()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if g.cpuAffinity >= 0 {
		if err := platform.SetThreadAffinity(g.cpuAffinity); err != nil && g.logger != nil {
			g.logger.Debug("could not set synced child thread affinity", zap.String("child", child.Name), zap.Error(err))
		}
	}
	if err := platform.SetThreadPriorityHigh(); err != nil && g.logger != nil {
		g.logger.Debug("could not raise synced child thread priority", zap.String("child", child.Name), zap.Error(err))
	}

	tickInterval := time.Duration(float64(time.Second) / child.TickRateHz)

	var lastSeen uint32
	childStart := time.Now()
	lastTickTime := childStart
	nextTickTime := childStart
	var tickCount uint64

	for {
		g.mu.Lock()
		for child.tickCounter.Load() <= lastSeen && g.running.Load() {
			g.cond.Wait()
		}
		lastSeen = child.tickCounter.Load()
		running := g.running.Load()
		g.mu.Unlock()

		if !running {
			return
		}

		now := time.Now()
		tickCount++
		info := NewTickInfo(now.Sub(childStart), now.Sub(lastTickTime), tickCount)
		lastTickTime = now

		child.Tick(child.Ptr, info.DeltaTime)

		nextTickTime = nextTickTime.Add(tickInterval)
		platform.HybridSleepUntil(nextTickTime)
	}
}
