package slab

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/joshuapare/slabkit/backing"
	"github.com/joshuapare/slabkit/internal/logger"
	"github.com/joshuapare/slabkit/mem"
)

// sizeClass is one pool behind its own lock. A nil pool means the allocator is closed.
type sizeClass struct {
	mu   sync.Mutex
	pool *pool
}

// Allocator routes requests to one slab pool per supported class and
// delegates everything else to its backing allocator.
//
// All methods are safe for concurrent use. Requests of different classes never
// contend; requests of the same class are serialized by that class's lock, and
// no method holds more than one class lock at a time.
type Allocator struct {
	classes [numClasses]sizeClass
	backing mem.Allocator
	log     *slog.Logger
	closed  atomic.Bool

	largeAllocs atomic.Uint64
	largeFrees  atomic.Uint64
	largeBytes  atomic.Int64
}

var _ mem.Allocator = (*Allocator)(nil)

// New creates an allocator whose pages and oversized requests come from b.
//
// Parameters:
//   - b: backing allocator; nil selects backing.Default()
//   - cfg: optional configuration (use nil for defaults)
func New(b mem.Allocator, cfg *Config) *Allocator {
	if b == nil {
		b = backing.Default()
	}
	if cfg == nil {
		cfg = &Config{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.FromEnv()
	}

	a := &Allocator{backing: b, log: log}
	for i, size := range Classes {
		a.classes[i].pool = newPool(size, b, log, cfg.OnGrow)
	}
	return a
}

// Allocate issues a region for l.
//
// Supported classes return a slice whose length and capacity equal the class
// size, which may exceed l.Size. Other layouts are passed unchanged to the
// backing allocator. The only failure besides an invalid layout is backing
// exhaustion while a new page is needed; it is never retried.
func (a *Allocator) Allocate(l mem.Layout) ([]byte, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}

	idx := classIndex(l)
	if idx < 0 {
		return a.allocateLarge(l)
	}

	c := &a.classes[idx]
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pool == nil {
		panic("slab: use after Close()")
	}
	return c.pool.next()
}

// AllocateZeroed is Allocate followed by zeroing the whole returned region.
// Slab slots are reused without clearing, so Allocate may return stale bytes.
func (a *Allocator) AllocateZeroed(l mem.Layout) ([]byte, error) {
	b, err := a.Allocate(l)
	if err != nil {
		return nil, err
	}
	clear(b)
	return b, nil
}

// Deallocate releases b, which must start a region returned by Allocate
// with the identical layout l and not yet released.
//
// Releasing a pointer that no page of l's class contains panics; other
// contract violations (double free, a pointer into the middle of a slot) go
// undetected unless built with -tags slabdebug.
func (a *Allocator) Deallocate(b []byte, l mem.Layout) {
	idx := classIndex(l)
	if idx < 0 {
		a.deallocateLarge(b, l)
		return
	}

	c := &a.classes[idx]
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pool == nil {
		panic("slab: use after Close()")
	}
	c.pool.release(mem.Addr(b))
}

// Reallocate moves the contents of b (issued for from) into a region for
// to. When both layouts map to the same class, b's region is returned
// as-is. Otherwise a new region is issued, min(from.Size, to.Size) bytes are
// copied and b is released. On error b is untouched and still owned by the caller.
func (a *Allocator) Reallocate(b []byte, from, to mem.Layout) ([]byte, error) {
	if err := to.Validate(); err != nil {
		return nil, err
	}

	if fi := classIndex(from); fi >= 0 && fi == classIndex(to) {
		return region(b, Classes[fi]), nil
	}

	nb, err := a.Allocate(to)
	if err != nil {
		return nil, err
	}
	n := min(from.Size, to.Size)
	copy(nb[:n], region(b, n))
	a.Deallocate(b, from)
	return nb, nil
}

// Remaining returns the number of free objects cached by the pool of the
// given class. It panics when objectSize is not one of Classes.
func (a *Allocator) Remaining(objectSize int) int {
	idx := indexOfSize(objectSize)
	if idx < 0 {
		panic(fmt.Sprintf("slab: %d is not a slab class", objectSize))
	}

	c := &a.classes[idx]
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pool == nil {
		return 0
	}
	return c.pool.remaining()
}

// Close destroys every pool, returning all pages to the backing allocator.
// Regions still held by callers become invalid. Further Allocate or
// Deallocate calls for slab classes panic. Close is idempotent.
func (a *Allocator) Close() error {
	if a.closed.Swap(true) {
		return nil
	}

	pages := 0
	for i := range a.classes {
		c := &a.classes[i]
		c.mu.Lock()
		pages += len(c.pool.pages)
		c.pool.destroy()
		c.pool = nil
		c.mu.Unlock()
	}
	a.log.Debug("slab: allocator closed", "pages_released", pages)
	return nil
}

func (a *Allocator) allocateLarge(l mem.Layout) ([]byte, error) {
	if a.closed.Load() {
		panic("slab: use after Close()")
	}
	b, err := a.backing.Allocate(l)
	if err != nil {
		return nil, err
	}
	a.largeAllocs.Add(1)
	a.largeBytes.Add(int64(l.Size))
	return b, nil
}

func (a *Allocator) deallocateLarge(b []byte, l mem.Layout) {
	a.backing.Deallocate(b, l)
	a.largeFrees.Add(1)
	a.largeBytes.Add(-int64(l.Size))
}

// region returns the n bytes starting at b's first byte, regardless of how
// the caller resliced b.
func region(b []byte, n int) []byte {
	if n == 0 {
		return b[:0]
	}
	return unsafe.Slice(unsafe.SliceData(b), n)
}
