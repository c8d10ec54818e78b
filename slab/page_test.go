package slab

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/slabkit/backing"
	"github.com/joshuapare/slabkit/internal/testutil"
	"github.com/joshuapare/slabkit/mem"
)

// Test_Page_FreshIsFull checks that a new page has every slot free.
func Test_Page_FreshIsFull(t *testing.T) {
	for _, size := range Classes {
		p, err := newPage(size, backing.NewHeap())
		require.NoError(t, err)

		want := mem.PageSize / size
		require.Equal(t, want, p.remaining(), "class %d", size)
		require.Equal(t, want, p.capacity(), "class %d", size)
		require.False(t, p.empty())
		require.True(t, mem.IsAligned(p.base, mem.PageAlign))
	}
}

// Test_Page_LowestSlotFirst checks that slots are issued in index order.
func Test_Page_LowestSlotFirst(t *testing.T) {
	for _, size := range Classes {
		p, err := newPage(size, backing.NewHeap())
		require.NoError(t, err)

		n := mem.PageSize / size
		for i := range n {
			obj := p.next()
			require.NotNil(t, obj)
			require.Len(t, obj, size)
			require.Equal(t, size, cap(obj), "slot must not expose its neighbour")
			require.Equal(t, p.base+uintptr(i*size), mem.Addr(obj), "class %d slot %d", size, i)
		}
		require.True(t, p.empty())
		require.Zero(t, p.remaining())
		require.Nil(t, p.next(), "full page must not issue")
	}
}

// Test_Page_RoundTrip checks that issue then release restores the bitmap exactly.
func Test_Page_RoundTrip(t *testing.T) {
	p, err := newPage(64, backing.NewHeap())
	require.NoError(t, err)
	require.Equal(t, 64, p.remaining())

	before := p.free
	obj := p.next()
	require.Equal(t, 63, p.remaining())

	p.release(mem.Addr(obj))
	require.Equal(t, 64, p.remaining())
	require.Equal(t, before, p.free)
}

// Test_Page_ReuseLowestReleased checks that a released slot is reissued before higher ones.
func Test_Page_ReuseLowestReleased(t *testing.T) {
	p, err := newPage(256, backing.NewHeap())
	require.NoError(t, err)

	objs := make([][]byte, 5)
	for i := range objs {
		objs[i] = p.next()
	}
	p.release(mem.Addr(objs[3]))
	p.release(mem.Addr(objs[1]))

	require.Equal(t, mem.Addr(objs[1]), mem.Addr(p.next()))
	require.Equal(t, mem.Addr(objs[3]), mem.Addr(p.next()))
	require.Equal(t, p.base+5*256, mem.Addr(p.next()))
}

func Test_Page_Contains(t *testing.T) {
	p, err := newPage(128, backing.NewHeap())
	require.NoError(t, err)

	require.True(t, p.contains(p.base))
	require.True(t, p.contains(p.base+mem.PageSize-1))
	require.False(t, p.contains(p.base+mem.PageSize))
	require.False(t, p.contains(p.base-1))
}

// Test_Page_DestroyOnce checks the block goes back to the backing allocator exactly once.
func Test_Page_DestroyOnce(t *testing.T) {
	tr := testutil.NewTracker(t, backing.NewHeap())
	p, err := newPage(512, tr)
	require.NoError(t, err)
	require.Equal(t, 1, tr.Live())

	p.destroy()
	p.destroy()
	tr.RequireNoLeaks()
	_, frees := tr.Counts()
	require.Equal(t, 1, frees)
}

func Test_Page_CreateFailure(t *testing.T) {
	tr := testutil.NewTracker(t, backing.NewHeap())
	tr.FailAfter(0)

	p, err := newPage(64, tr)
	require.ErrorIs(t, err, mem.ErrExhausted)
	require.Nil(t, p)
	tr.RequireNoLeaks()
}

// misaligned hands out page-sized blocks that start 64 bytes past a page boundary.
type misaligned struct{ *backing.Heap }

func (m misaligned) Allocate(l mem.Layout) ([]byte, error) {
	b, err := m.Heap.Allocate(mem.MustLayout(2*l.Size, l.Align))
	if err != nil {
		return nil, err
	}
	return b[64 : 64+l.Size], nil
}

func Test_Page_RejectsMisalignedBlock(t *testing.T) {
	_, err := newPage(64, misaligned{backing.NewHeap()})
	require.ErrorIs(t, err, mem.ErrExhausted)
}

func Test_Page_InvalidObjectSize(t *testing.T) {
	for _, size := range []int{0, 32, 96, mem.PageSize} {
		require.Panics(t, func() { _, _ = newPage(size, backing.NewHeap()) }, "size %d", size)
	}
}

func Test_Page_FullMask(t *testing.T) {
	require.Equal(t, ^uint64(0), fullMask(64))
	require.Equal(t, uint64(0xFFFFFFFF), fullMask(128))
	require.Equal(t, uint64(0b11), fullMask(2048))
}
