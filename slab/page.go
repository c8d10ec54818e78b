package slab

import (
	"fmt"
	"math/bits"

	"github.com/joshuapare/slabkit/internal/buf"
	"github.com/joshuapare/slabkit/mem"
)

// page owns one PageSize block from the backing allocator, partitioned into
// PageSize/objSize equal slots.
//
// Bit i of free is set while slot i is free. Only the low PageSize/objSize
// bits are meaningful, so objSize must be a power of two in [64, PageSize).
type page struct {
	free    uint64
	mem     []byte
	base    uintptr
	objSize int
	shift   uint // log2(objSize)
	backing mem.Allocator
}

// newPage acquires a page-sized, page-aligned block from backing.
// Nothing is held when it fails.
func newPage(objSize int, backing mem.Allocator) (*page, error) {
	if !mem.IsPowerOfTwo(objSize) || objSize < MinObjectSize || objSize >= mem.PageSize {
		panic(fmt.Sprintf("slab: invalid object size %d", objSize))
	}

	block, err := backing.Allocate(mem.PageLayout)
	if err != nil {
		return nil, err
	}
	if len(block) < mem.PageSize || !mem.IsAligned(mem.Addr(block), mem.PageAlign) {
		backing.Deallocate(block, mem.PageLayout)
		return nil, fmt.Errorf("%w: backing returned %d bytes at %#x for a %s page",
			mem.ErrExhausted, len(block), mem.Addr(block), mem.PageLayout)
	}

	return &page{
		free:    fullMask(objSize),
		mem:     block[:mem.PageSize:mem.PageSize],
		base:    mem.Addr(block),
		objSize: objSize,
		shift:   uint(bits.TrailingZeros(uint(objSize))),
		backing: backing,
	}, nil
}

// fullMask has the low PageSize/objSize bits set.
func fullMask(objSize int) uint64 {
	n := uint(mem.PageSize / objSize)
	if n >= 64 {
		return ^uint64(0)
	}
	return 1<<n - 1
}

// capacity returns the number of slots in the page.
func (p *page) capacity() int {
	return mem.PageSize >> p.shift
}

// remaining returns the number of free slots.
func (p *page) remaining() int {
	return bits.OnesCount64(p.free)
}

// empty reports whether no slot is free.
func (p *page) empty() bool {
	return p.free == 0
}

// contains reports whether addr lies inside the page's block.
func (p *page) contains(addr uintptr) bool {
	return addr >= p.base && addr < p.base+mem.PageSize
}

// next issues the lowest-indexed free slot, or returns nil when the page is full.
func (p *page) next() []byte {
	if p.empty() {
		return nil
	}
	idx := bits.TrailingZeros64(p.free)
	p.free &^= 1 << uint(idx)

	obj, _ := buf.Slice(p.mem, idx<<p.shift, p.objSize)
	return obj
}

// release marks the slot starting at addr free again.
// addr must have been issued by this page and not released since.
func (p *page) release(addr uintptr) {
	if debugChecks {
		if !p.contains(addr) {
			panic(fmt.Sprintf("slab: %#x outside page [%#x, %#x)", addr, p.base, p.base+mem.PageSize))
		}
		if (addr-p.base)&uintptr(p.objSize-1) != 0 {
			panic(fmt.Sprintf("slab: %#x is not on a %d-byte slot boundary", addr, p.objSize))
		}
	}

	idx := (addr - p.base) >> p.shift

	if debugChecks && p.free&(1<<idx) != 0 {
		panic(fmt.Sprintf("slab: double free of slot %d in %d-byte page %#x", idx, p.objSize, p.base))
	}
	p.free |= 1 << idx
}

// destroy hands the block back to the backing allocator. Later calls are no-ops.
func (p *page) destroy() {
	if p.mem == nil {
		return
	}
	p.backing.Deallocate(p.mem, mem.PageLayout)
	p.mem = nil
	p.free = 0
}
