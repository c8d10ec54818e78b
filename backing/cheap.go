package backing

import (
	"fmt"
	"sync"

	"modernc.org/memory"

	"github.com/joshuapare/slabkit/internal/logger"
	"github.com/joshuapare/slabkit/mem"
)

// CHeap allocates regions outside the Go heap with modernc.org/memory.
// The underlying allocator is not goroutine-safe, so every call is
// serialized. Regions are not zeroed.
type CHeap struct {
	mu   sync.Mutex
	a    memory.Allocator
	live map[uintptr][]byte // region address -> raw block
}

var _ mem.Allocator = (*CHeap)(nil)

// NewCHeap creates an off-heap allocator. Call Close to return its memory to the OS.
func NewCHeap() *CHeap {
	return &CHeap{live: make(map[uintptr][]byte)}
}

// Allocate returns an l.Align-aligned region of l.Size bytes.
func (c *CHeap) Allocate(l mem.Layout) ([]byte, error) {
	n, err := paddedSize(l)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := c.a.Malloc(n)
	if err != nil {
		return nil, fmt.Errorf("%w: malloc %d bytes: %w", mem.ErrExhausted, n, err)
	}
	b := carve(raw, l)
	c.live[mem.Addr(b)] = raw
	return b, nil
}

// Deallocate frees the raw block holding b.
func (c *CHeap) Deallocate(b []byte, _ mem.Layout) {
	addr := mem.Addr(b)

	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.live[addr]
	if !ok {
		return
	}
	delete(c.live, addr)
	if err := c.a.Free(raw); err != nil {
		logger.Warn("backing: free failed", "addr", fmt.Sprintf("%#x", addr), "error", err)
	}
}

// Live returns the number of outstanding regions.
func (c *CHeap) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.live)
}

// Close releases all memory held by the allocator, including regions still
// outstanding. The CHeap must not be used afterwards.
func (c *CHeap) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.live)
	return c.a.Close()
}
