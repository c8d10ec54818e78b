// Package slab implements a size-class slab allocator on top of any
// mem.Allocator.
//
// # Overview
//
// Small requests are served from 4 KiB pages carved into equal slots, one
// pool of pages per size class. Everything else is handed to the backing
// allocator unchanged. Three layers compose, leaf first:
//
//   - page: one PageSize block from the backing allocator and a 64-bit free
//     bitmap, one bit per slot
//   - pool: an append-only list of pages of one object size plus a cached
//     free-object count
//   - Allocator: one pool per class, each behind its own mutex
//
// # Size Classes
//
//	Class 0:   64 bytes  (64 slots per page)
//	Class 1:  128 bytes  (32 slots per page)
//	Class 2:  256 bytes  (16 slots per page)
//	Class 3:  512 bytes  ( 8 slots per page)
//	Class 4: 1024 bytes  ( 4 slots per page)
//	Class 5: 2048 bytes  ( 2 slots per page)
//
// A request is classified as max(next power of two of Size, Align), rounded
// up to 64. Anything above 2048 goes to the backing allocator. Release must
// pass the same Layout used at issue time so it reaches the same class.
//
// # Usage Example
//
//	a := slab.New(backing.NewHeap(), nil)
//	defer a.Close()
//
//	l := mem.MustLayout(100, 8)
//	b, err := a.Allocate(l) // len(b) == 128
//	if err != nil {
//	    return err
//	}
//	copy(b, payload)
//	a.Deallocate(b, l)
//
// # Allocation Policy
//
// Within a page the lowest free slot is always issued first. Within a pool
// the first page in creation order with a free slot is used; a new page is
// created only when every page is full. Pages are never returned to the
// backing allocator before Close, so memory use is the high-water mark.
//
// # Thread Safety
//
// Allocator is safe for concurrent use. Each class has an independent lock
// and no operation holds two class locks. The backing allocator is called
// with a class lock held (page creation and Close) or with no lock held
// (oversized requests), so it must be safe for concurrent use itself.
//
// # Debug Checks
//
// Building with -tags slabdebug enables assertions on every release (range,
// slot alignment, double free) and on the pool's cached counters.
package slab
