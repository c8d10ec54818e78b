//go:build !unix

package backing

import "github.com/joshuapare/slabkit/mem"

// MmapSupported reports whether Mmap uses real anonymous mappings.
const MmapSupported = false

// Mmap falls back to Go-heap regions where anonymous mappings are unavailable.
type Mmap struct {
	heap *Heap
}

var _ mem.Allocator = (*Mmap)(nil)

// NewMmap creates the fallback allocator.
func NewMmap() *Mmap {
	return &Mmap{heap: NewHeap()}
}

// Allocate returns a zeroed heap region for l.
func (m *Mmap) Allocate(l mem.Layout) ([]byte, error) {
	return m.heap.Allocate(l)
}

// Deallocate forgets the region starting at b.
func (m *Mmap) Deallocate(b []byte, l mem.Layout) {
	m.heap.Deallocate(b, l)
}

// Live returns the number of outstanding regions.
func (m *Mmap) Live() int {
	n, _ := m.heap.Live()
	return n
}
