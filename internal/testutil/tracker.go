// Package testutil provides shared helpers for slabkit tests.
package testutil

import (
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/joshuapare/slabkit/mem"
)

// Tracker wraps a backing allocator and records every live region so tests
// can assert that each region is released exactly once, with the layout it
// was allocated with. It can also be told to fail after a number of
// successful allocations to exercise exhaustion paths.
//
// Example:
//
//	tr := testutil.NewTracker(t, backing.NewHeap())
//	a := slab.New(tr, nil)
//	...
//	require.NoError(t, a.Close())
//	tr.RequireNoLeaks()
type Tracker struct {
	t     testing.TB
	inner mem.Allocator

	mu        sync.Mutex
	live      map[uintptr]mem.Layout
	allocs    int
	frees     int
	failAfter int // successful allocations left before failing; -1 = never
}

var _ mem.Allocator = (*Tracker)(nil)

// NewTracker wraps inner. Contract violations are reported through t.
func NewTracker(t testing.TB, inner mem.Allocator) *Tracker {
	t.Helper()
	return &Tracker{
		t:         t,
		inner:     inner,
		live:      make(map[uintptr]mem.Layout),
		failAfter: -1,
	}
}

// FailAfter makes the tracker fail every allocation after the next n
// successful ones with an error wrapping mem.ErrExhausted. A negative n
// disables the failure.
func (tr *Tracker) FailAfter(n int) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.failAfter = n
}

// Allocate implements mem.Allocator.
func (tr *Tracker) Allocate(l mem.Layout) ([]byte, error) {
	tr.mu.Lock()
	if tr.failAfter == 0 {
		tr.mu.Unlock()
		return nil, fmt.Errorf("%w: tracker budget spent", mem.ErrExhausted)
	}
	if tr.failAfter > 0 {
		tr.failAfter--
	}
	tr.mu.Unlock()

	b, err := tr.inner.Allocate(l)
	if err != nil {
		return nil, err
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.live[mem.Addr(b)] = l
	tr.allocs++
	return b, nil
}

// Deallocate implements mem.Allocator and reports unknown or mismatched releases.
func (tr *Tracker) Deallocate(b []byte, l mem.Layout) {
	addr := mem.Addr(b)

	tr.mu.Lock()
	got, ok := tr.live[addr]
	if ok {
		delete(tr.live, addr)
		tr.frees++
	}
	tr.mu.Unlock()

	switch {
	case !ok:
		tr.t.Errorf("testutil: release of unknown or already released region %#x %s", addr, l)
		return
	case got != l:
		tr.t.Errorf("testutil: region %#x allocated as %s released as %s", addr, got, l)
	}
	tr.inner.Deallocate(b, l)
}

// Live returns the number of regions allocated and not yet released.
func (tr *Tracker) Live() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.live)
}

// Counts returns the total number of allocations and releases seen.
func (tr *Tracker) Counts() (allocs, frees int) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.allocs, tr.frees
}

// RequireNoLeaks fails the test if any region is still live.
func (tr *Tracker) RequireNoLeaks() {
	tr.t.Helper()
	if n := tr.Live(); n != 0 {
		tr.t.Fatalf("testutil: %d region(s) never released", n)
	}
}

// RequireDisjoint fails the test if any two regions overlap.
func RequireDisjoint(t testing.TB, regions [][]byte) {
	t.Helper()

	type span struct{ start, end uintptr }
	spans := make([]span, 0, len(regions))
	for _, b := range regions {
		start := mem.Addr(b)
		spans = append(spans, span{start, start + uintptr(len(b))})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	for i := 1; i < len(spans); i++ {
		if spans[i].start < spans[i-1].end {
			t.Fatalf("testutil: regions [%#x,%#x) and [%#x,%#x) overlap",
				spans[i-1].start, spans[i-1].end, spans[i].start, spans[i].end)
		}
	}
}

// Fill writes a pattern derived from seed into b.
func Fill(b []byte, seed byte) {
	for i := range b {
		b[i] = seed + byte(i)
	}
}

// CheckFilled reports whether b still holds the pattern written by Fill.
// Unlike RequireFilled it is safe to call from any goroutine.
func CheckFilled(b []byte, seed byte) bool {
	for i := range b {
		if b[i] != seed+byte(i) {
			return false
		}
	}
	return true
}

// RequireFilled fails the test unless b still holds the pattern written by Fill.
func RequireFilled(t testing.TB, b []byte, seed byte) {
	t.Helper()
	for i := range b {
		if b[i] != seed+byte(i) {
			t.Fatalf("testutil: byte %d of region %#x is %#x, want %#x", i, mem.Addr(b), b[i], seed+byte(i))
		}
	}
}
