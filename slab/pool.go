package slab

import (
	"fmt"
	"log/slog"

	"github.com/willf/bitset"

	"github.com/joshuapare/slabkit/mem"
)

// pool is a growable set of pages that all hold objects of one size.
//
// Pages are never removed before the pool is destroyed. partial mirrors
// "pages[i] has a free slot", so NextSet(0) is the first page in creation
// order that can issue. free is the sum of page.remaining() over all pages.
type pool struct {
	objSize int
	pages   []*page
	partial *bitset.BitSet
	byBase  map[uintptr]int
	free    int

	// Lifetime counters reported by Stats.
	issued   uint64
	released uint64

	backing mem.Allocator
	log     *slog.Logger
	onGrow  func(objSize, pages int)
}

func newPool(objSize int, backing mem.Allocator, log *slog.Logger, onGrow func(int, int)) *pool {
	return &pool{
		objSize: objSize,
		partial: bitset.New(0),
		byBase:  make(map[uintptr]int),
		backing: backing,
		log:     log,
		onGrow:  onGrow,
	}
}

// next issues one object, growing the pool by a page when every page is full.
func (pl *pool) next() ([]byte, error) {
	if pl.free == 0 {
		return pl.grow()
	}

	idx, ok := pl.partial.NextSet(0)
	if !ok {
		panic(fmt.Sprintf("slab: %d-byte pool reports %d free objects but no partial page", pl.objSize, pl.free))
	}
	p := pl.pages[idx]
	obj := p.next()
	if p.empty() {
		pl.partial.Clear(idx)
	}
	pl.free--
	pl.issued++

	if debugChecks {
		pl.checkInvariants()
	}
	return obj, nil
}

// grow creates a page, issues its first object and appends it.
func (pl *pool) grow() ([]byte, error) {
	p, err := newPage(pl.objSize, pl.backing)
	if err != nil {
		pl.log.Warn("slab: page allocation failed",
			"object_size", pl.objSize,
			"pages", len(pl.pages),
			"error", err)
		return nil, err
	}

	obj := p.next()
	idx := len(pl.pages)
	pl.pages = append(pl.pages, p)
	pl.byBase[p.base] = idx
	if !p.empty() {
		pl.partial.Set(uint(idx))
	}
	pl.free += p.remaining()
	pl.issued++

	pl.log.Debug("slab: pool grew",
		"object_size", pl.objSize,
		"pages", len(pl.pages),
		"page", fmt.Sprintf("%#x", p.base))
	if pl.onGrow != nil {
		pl.onGrow(pl.objSize, len(pl.pages))
	}
	if debugChecks {
		pl.checkInvariants()
	}
	return obj, nil
}

// release returns the object at addr to the page that contains it.
// Panics when no page of this pool contains addr.
func (pl *pool) release(addr uintptr) {
	idx, ok := pl.byBase[addr&^uintptr(mem.PageAlign-1)]
	if !ok {
		panic(fmt.Sprintf("slab: %#x was not issued by the %d-byte pool", addr, pl.objSize))
	}
	pl.pages[idx].release(addr)
	pl.partial.Set(uint(idx))
	pl.free++
	pl.released++

	if debugChecks {
		pl.checkInvariants()
	}
}

// remaining returns the cached number of free objects across all pages.
func (pl *pool) remaining() int {
	return pl.free
}

// destroy releases every page back to the backing allocator.
func (pl *pool) destroy() {
	for _, p := range pl.pages {
		p.destroy()
	}
	pl.pages = nil
	pl.byBase = make(map[uintptr]int)
	pl.partial.ClearAll()
	pl.free = 0
}

// checkInvariants panics when the cached counters disagree with the pages.
func (pl *pool) checkInvariants() {
	sum := 0
	for i, p := range pl.pages {
		sum += p.remaining()
		if pl.partial.Test(uint(i)) == p.empty() {
			panic(fmt.Sprintf("slab: partial index out of sync for page %d of the %d-byte pool", i, pl.objSize))
		}
	}
	if sum != pl.free {
		panic(fmt.Sprintf("slab: %d-byte pool caches %d free objects, pages hold %d", pl.objSize, pl.free, sum))
	}
}
