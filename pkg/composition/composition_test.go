package composition

import (
	"sync"
	"testing"
	"time"
	"unsafe"

	"robotick/pkg/dataconn"
)

func TestSequencedGroupTicksInOrderAndCopiesData(t *testing.T) {
	var order []string
	var mu sync.Mutex

	var srcVal, dstVal float64 = 7.0, 0.0

	makeChild := func(name string) *Child {
		n := name
		return &Child{
			Name: n,
			Ptr:  unsafe.Pointer(&dstVal),
			Tick: func(unsafe.Pointer, float64) {
				mu.Lock()
				order = append(order, n)
				mu.Unlock()
			},
		}
	}

	a := makeChild("a")
	b := makeChild("b")

	conn := &dataconn.Info{
		DestPath: dataconn.Path{WorkloadName: "b", Section: dataconn.SectionInputs, Field: "x"},
		Source:   unsafe.Pointer(&srcVal),
		Dest:     unsafe.Pointer(&dstVal),
		Size:     unsafe.Sizeof(srcVal),
	}

	g := NewSequencedGroup(nil)
	g.SetChildren([]*Child{a, b})
	g.ClaimConnections([]*dataconn.Info{conn})

	if conn.Handler != dataconn.HandlerSequencedGroup {
		t.Fatalf("Handler = %v, want HandlerSequencedGroup", conn.Handler)
	}

	g.Tick(TickInfo{DeltaTime: 0.01})

	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("tick order = %v, want [a b]", order)
	}
	if dstVal != 7.0 {
		t.Fatalf("dstVal = %v, want 7.0 (copied before b ticked)", dstVal)
	}
}

func TestSequencedGroupIgnoresConnectionsForOtherDestinations(t *testing.T) {
	g := NewSequencedGroup(nil)
	g.SetChildren([]*Child{{Name: "a"}})

	conn := &dataconn.Info{DestPath: dataconn.Path{WorkloadName: "elsewhere"}}
	g.ClaimConnections([]*dataconn.Info{conn})

	if conn.Handler != dataconn.HandlerUnassigned {
		t.Fatalf("Handler = %v, want HandlerUnassigned (destination not a local child)", conn.Handler)
	}
}

func TestSequencedGroupClaimsRegardlessOfSourceLocation(t *testing.T) {
	// Per spec.md, a sequenced group claims a connection whenever its
	// destination is a local child, even if the source workload is
	// nowhere in this group — this deliberately diverges from the
	// legacy original's stricter src-and-dest-both-local rule.
	g := NewSequencedGroup(nil)
	g.SetChildren([]*Child{{Name: "localDest"}})

	conn := &dataconn.Info{DestPath: dataconn.Path{WorkloadName: "localDest"}, SourcePath: dataconn.Path{WorkloadName: "faraway"}}
	g.ClaimConnections([]*dataconn.Info{conn})

	if conn.Handler != dataconn.HandlerSequencedGroup {
		t.Fatalf("Handler = %v, want HandlerSequencedGroup even though source is not local", conn.Handler)
	}
}

func TestSyncedGroupClaimDelegatesToParent(t *testing.T) {
	g := NewSyncedGroup(nil, -1)
	g.SetChildren([]*SyncedChild{{Child: Child{Name: "motor"}}})

	conn := &dataconn.Info{DestPath: dataconn.Path{WorkloadName: "motor"}}
	g.ClaimConnections([]*dataconn.Info{conn})

	if conn.Handler != dataconn.HandlerDelegateToParent {
		t.Fatalf("Handler = %v, want HandlerDelegateToParent", conn.Handler)
	}
}

func TestSyncedGroupTicksChildAtOwnRate(t *testing.T) {
	var count atomicCounter

	child := &SyncedChild{
		Child: Child{
			Name: "fast",
			Tick: func(unsafe.Pointer, float64) { count.Add(1) },
		},
		TickRateHz: 1000,
	}

	g := NewSyncedGroup(nil, -1)
	g.SetChildren([]*SyncedChild{child})
	g.Start()

	for i := 0; i < 5; i++ {
		g.Tick()
		time.Sleep(5 * time.Millisecond)
	}

	g.Stop()

	if count.Load() == 0 {
		t.Fatal("expected synced child to have ticked at least once")
	}
}

type atomicCounter struct {
	mu sync.Mutex
	n  int
}

func (c *atomicCounter) Add(d int) {
	c.mu.Lock()
	c.n += d
	c.mu.Unlock()
}

func (c *atomicCounter) Load() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
