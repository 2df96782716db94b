// Package buffer implements the workloads buffer: a single contiguous
// allocation holding every leaf workload instance packed by alignment.
// pkg/engine uses a second, separate Buffer for blackboard storage,
// unlike the original C++ engine's single heap allocation. Go cannot place
// arbitrary struct types at arbitrary offsets the way C++ placement-new
// can, so construction happens through each workload's registered
// Construct function operating on an unsafe.Pointer into this buffer.
package buffer

import (
	"fmt"
	"unsafe"
)

// maxAlign is the alignment guaranteed for every placement in the
// buffer, matching alignof(std::max_align_t) in the original so that no
// registered type can ever need stricter alignment than the buffer
// itself provides.
const maxAlign = unsafe.Alignof(struct {
	_ uint64
	_ float64
	_ unsafe.Pointer
}{})

// Placement records where one workload instance (or, for the trailing
// blackboard region, one blackboard's storage) lives within the buffer.
type Placement struct {
	Offset uintptr
	Size   uintptr
}

// Planner computes a packed, alignment-respecting layout for a sequence
// of fixed-size regions before any memory is allocated, mirroring the
// original engine's two-pass "calculate offsets, then allocate" scheme.
type Planner struct {
	offset uintptr
}

// Reserve records the next region of size bytes with the given
// alignment (rounded up to at least maxAlign) and returns its
// placement within the eventual buffer.
func (p *Planner) Reserve(size, alignment uintptr) Placement {
	if alignment < maxAlign {
		alignment = maxAlign
	}
	p.offset = alignUp(p.offset, alignment)
	placement := Placement{Offset: p.offset, Size: size}
	p.offset += size
	return placement
}

// Total returns the total buffer size needed for every region reserved
// so far.
func (p *Planner) Total() uintptr { return p.offset }

func alignUp(offset, alignment uintptr) uintptr {
	return (offset + alignment - 1) &^ (alignment - 1)
}

// Buffer is a single contiguous, zero-initialized allocation addressed
// by byte offset. pkg/engine allocates one Buffer for the leaf workloads
// (with their config/input/output structs) and another for bound
// blackboard storage.
type Buffer struct {
	data []byte
}

// New allocates a zeroed buffer of the given total size.
func New(size uintptr) *Buffer {
	return &Buffer{data: make([]byte, size)}
}

// At returns a pointer to the byte at the given offset. It panics if the
// offset (or offset+size, when checked via AtChecked) falls outside the
// buffer — an out-of-bounds placement is always a planning bug, not a
// recoverable runtime condition.
func (b *Buffer) At(offset uintptr) unsafe.Pointer {
	if offset > uintptr(len(b.data)) {
		panic(fmt.Sprintf("buffer: offset %d exceeds buffer size %d", offset, len(b.data)))
	}
	if len(b.data) == 0 {
		return nil
	}
	return unsafe.Add(unsafe.Pointer(&b.data[0]), offset)
}

// AtChecked returns a pointer to a region of the given size at offset,
// verifying the whole region lies within the buffer.
func (b *Buffer) AtChecked(offset, size uintptr) unsafe.Pointer {
	if offset+size > uintptr(len(b.data)) {
		panic(fmt.Sprintf("buffer: region [%d, %d) exceeds buffer size %d", offset, offset+size, len(b.data)))
	}
	return b.At(offset)
}

// Len returns the total size of the buffer in bytes.
func (b *Buffer) Len() int { return len(b.data) }

// CreateMirrorFrom allocates a new buffer sized to match src and copies
// its current contents, giving a caller (e.g. a shutdown telemetry
// snapshot) a coherent point-in-time copy that a concurrently ticking
// workload tree can no longer mutate underneath it.
func (b *Buffer) CreateMirrorFrom(src *Buffer) *Buffer {
	mirror := New(uintptr(len(src.data)))
	copy(mirror.data, src.data)
	return mirror
}

// UpdateMirrorFrom refreshes b in place from src, copying src's current
// contents over b's own. src and b must be the same size — a mismatch
// means the mirror was built from a different layout than the buffer it
// is now being refreshed from, which is always a caller bug.
func (b *Buffer) UpdateMirrorFrom(src *Buffer) error {
	if len(b.data) != len(src.data) {
		return fmt.Errorf("buffer: mirror size %d does not match source size %d", len(b.data), len(src.data))
	}
	copy(b.data, src.data)
	return nil
}
