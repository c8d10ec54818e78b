package slab

import (
	"fmt"
	"io"

	"github.com/joshuapare/slabkit/mem"
)

// ClassStats describes one size-class pool.
type ClassStats struct {
	ObjectSize int    `json:"object_size"`
	Pages      int    `json:"pages"`
	Capacity   int    `json:"capacity"` // Objects across all pages
	Free       int    `json:"free"`
	InUse      int    `json:"in_use"`
	Issued     uint64 `json:"issued"`   // Lifetime issue count
	Released   uint64 `json:"released"` // Lifetime release count
}

// LargeStats describes requests delegated to the backing allocator.
type LargeStats struct {
	Allocs    uint64 `json:"allocs"`
	Frees     uint64 `json:"frees"`
	LiveBytes int64  `json:"live_bytes"` // Sum of requested sizes not yet released
}

// Stats is a point-in-time snapshot of an Allocator.
//
// Each class is read under its own lock, one after another, so the snapshot
// is consistent per class but not across classes.
type Stats struct {
	Classes []ClassStats `json:"classes"`
	Large   LargeStats   `json:"large"`
}

// PageBytes returns the bytes held in slab pages across all classes.
func (s Stats) PageBytes() int {
	n := 0
	for _, c := range s.Classes {
		n += c.Pages * mem.PageSize
	}
	return n
}

// InUseBytes returns the bytes issued from slab pages (class sizes, not request sizes).
func (s Stats) InUseBytes() int {
	n := 0
	for _, c := range s.Classes {
		n += c.InUse * c.ObjectSize
	}
	return n
}

// Utilization returns InUseBytes/PageBytes, or 0 when no page exists.
func (s Stats) Utilization() float64 {
	total := s.PageBytes()
	if total == 0 {
		return 0
	}
	return float64(s.InUseBytes()) / float64(total)
}

// Stats returns a snapshot of every class and the delegated requests.
func (a *Allocator) Stats() Stats {
	s := Stats{Classes: make([]ClassStats, 0, numClasses)}
	for i := range a.classes {
		c := &a.classes[i]
		c.mu.Lock()
		cs := ClassStats{ObjectSize: Classes[i]}
		if pl := c.pool; pl != nil {
			cs.Pages = len(pl.pages)
			cs.Capacity = cs.Pages * (mem.PageSize / cs.ObjectSize)
			cs.Free = pl.free
			cs.InUse = cs.Capacity - cs.Free
			cs.Issued = pl.issued
			cs.Released = pl.released
		}
		c.mu.Unlock()
		s.Classes = append(s.Classes, cs)
	}
	s.Large = LargeStats{
		Allocs:    a.largeAllocs.Load(),
		Frees:     a.largeFrees.Load(),
		LiveBytes: a.largeBytes.Load(),
	}
	return s
}

// PrintStats writes a human-readable table of Stats to w.
func (a *Allocator) PrintStats(w io.Writer) {
	s := a.Stats()

	fmt.Fprintf(w, "=== Slab Allocator Statistics ===\n")
	fmt.Fprintf(w, "%6s %6s %8s %8s %8s %10s %10s\n",
		"class", "pages", "capacity", "free", "in-use", "issued", "released")
	for _, c := range s.Classes {
		fmt.Fprintf(w, "%6d %6d %8d %8d %8d %10d %10d\n",
			c.ObjectSize, c.Pages, c.Capacity, c.Free, c.InUse, c.Issued, c.Released)
	}
	fmt.Fprintf(w, "Page memory:  %d bytes (%.2f%% in use)\n", s.PageBytes(), s.Utilization()*100)
	fmt.Fprintf(w, "Backing:      %d allocs, %d frees, %d live bytes\n",
		s.Large.Allocs, s.Large.Frees, s.Large.LiveBytes)
}
