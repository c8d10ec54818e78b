package backing

import (
	"sync"

	"github.com/joshuapare/slabkit/mem"
)

// Heap allocates regions from the Go heap by over-allocating and returning
// an aligned sub-slice. Deallocate only updates bookkeeping; the memory is
// reclaimed by the garbage collector once no slice references it.
type Heap struct {
	mu    sync.Mutex
	live  map[uintptr]int
	bytes int64
}

var _ mem.Allocator = (*Heap)(nil)

// NewHeap creates a Go-heap backing allocator.
func NewHeap() *Heap {
	return &Heap{live: make(map[uintptr]int)}
}

// Allocate returns a zeroed region of l.Size bytes aligned to l.Align.
func (h *Heap) Allocate(l mem.Layout) ([]byte, error) {
	n, err := paddedSize(l)
	if err != nil {
		return nil, err
	}
	b := carve(make([]byte, n), l)

	h.mu.Lock()
	h.live[mem.Addr(b)] = l.Size
	h.bytes += int64(l.Size)
	h.mu.Unlock()
	return b, nil
}

// Deallocate forgets the region starting at b.
func (h *Heap) Deallocate(b []byte, _ mem.Layout) {
	addr := mem.Addr(b)

	h.mu.Lock()
	defer h.mu.Unlock()
	if size, ok := h.live[addr]; ok {
		delete(h.live, addr)
		h.bytes -= int64(size)
	}
}

// Live returns the number of outstanding regions and their total size.
func (h *Heap) Live() (regions int, bytes int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.live), h.bytes
}
