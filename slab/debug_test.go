//go:build slabdebug

package slab

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/slabkit/backing"
	"github.com/joshuapare/slabkit/mem"
)

// Run with: go test -tags slabdebug ./slab

func Test_Debug_DoubleFreePanics(t *testing.T) {
	a, _ := newTestAllocator(t)
	l := mem.MustLayout(256, 1)

	b, err := a.Allocate(l)
	require.NoError(t, err)
	a.Deallocate(b, l)

	require.PanicsWithValue(t, "slab: double free of slot 0 in 256-byte page "+hexAddr(b), func() {
		a.Deallocate(b, l)
	})
}

func Test_Debug_InteriorPointerPanics(t *testing.T) {
	a, _ := newTestAllocator(t)
	l := mem.MustLayout(512, 1)

	b, err := a.Allocate(l)
	require.NoError(t, err)
	defer a.Deallocate(b, l)

	require.Panics(t, func() { a.Deallocate(b[8:], l) })
}

func Test_Debug_PageReleaseOutsidePanics(t *testing.T) {
	p, err := newPage(1024, backing.NewHeap())
	require.NoError(t, err)
	defer p.destroy()

	require.Panics(t, func() { p.release(p.base + mem.PageSize) })
	require.Panics(t, func() { p.release(p.base - 1024) })
}

func Test_Debug_InvariantCheckCatchesDrift(t *testing.T) {
	pl := newTestPool(t, 128, backing.NewHeap())
	_, err := pl.next()
	require.NoError(t, err)

	pl.free++
	require.Panics(t, pl.checkInvariants)
}

func hexAddr(b []byte) string {
	return fmt.Sprintf("%#x", mem.Addr(b))
}
