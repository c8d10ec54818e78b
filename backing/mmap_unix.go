//go:build unix

package backing

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/joshuapare/slabkit/internal/buf"
	"github.com/joshuapare/slabkit/internal/logger"
	"github.com/joshuapare/slabkit/mem"
)

// MmapSupported reports whether Mmap uses real anonymous mappings.
const MmapSupported = true

// Mmap allocates every region as its own anonymous private mapping. Mappings
// are page-aligned; larger alignments are met by over-mapping, and the whole
// mapping is unmapped on release.
type Mmap struct {
	mu       sync.Mutex
	maps     map[uintptr][]byte // region address -> full mapping
	pageSize int
}

var _ mem.Allocator = (*Mmap)(nil)

// NewMmap creates an mmap-backed allocator.
func NewMmap() *Mmap {
	return &Mmap{
		maps:     make(map[uintptr][]byte),
		pageSize: unix.Getpagesize(),
	}
}

// Allocate maps a fresh zeroed region for l.
func (m *Mmap) Allocate(l mem.Layout) ([]byte, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	length, ok := buf.AlignUp(max(l.Size, 1), m.pageSize)
	if ok && l.Align > m.pageSize {
		length, ok = buf.AddOverflowSafe(length, l.Align)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s too large", mem.ErrInvalidLayout, l)
	}

	data, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %d bytes: %w", mem.ErrExhausted, length, err)
	}

	b := carve(data, l)
	m.mu.Lock()
	m.maps[mem.Addr(b)] = data
	m.mu.Unlock()
	return b, nil
}

// Deallocate unmaps the mapping that holds b.
func (m *Mmap) Deallocate(b []byte, _ mem.Layout) {
	addr := mem.Addr(b)

	m.mu.Lock()
	data, ok := m.maps[addr]
	delete(m.maps, addr)
	m.mu.Unlock()
	if !ok {
		return
	}
	if err := unix.Munmap(data); err != nil {
		logger.Warn("backing: munmap failed", "addr", fmt.Sprintf("%#x", addr), "error", err)
	}
}

// Live returns the number of outstanding mappings.
func (m *Mmap) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.maps)
}
