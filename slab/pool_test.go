package slab

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/slabkit/backing"
	"github.com/joshuapare/slabkit/internal/logger"
	"github.com/joshuapare/slabkit/internal/testutil"
	"github.com/joshuapare/slabkit/mem"
)

func newTestPool(t *testing.T, objSize int, b mem.Allocator) *pool {
	t.Helper()
	pl := newPool(objSize, b, logger.Discard(), nil)
	t.Cleanup(pl.destroy)
	return pl
}

// sumRemaining recomputes the pool's free count from its pages.
func sumRemaining(pl *pool) int {
	n := 0
	for _, p := range pl.pages {
		n += p.remaining()
	}
	return n
}

func Test_Pool_StartsEmpty(t *testing.T) {
	pl := newTestPool(t, 64, backing.NewHeap())
	require.Zero(t, pl.remaining())
	require.Empty(t, pl.pages)
}

func Test_Pool_RoundTrip(t *testing.T) {
	pl := newTestPool(t, 64, backing.NewHeap())

	obj, err := pl.next()
	require.NoError(t, err)
	require.Len(t, obj, 64)
	require.Equal(t, 63, pl.remaining())

	pl.release(mem.Addr(obj))
	require.Equal(t, 64, pl.remaining())
	require.Len(t, pl.pages, 1)
}

// Test_Pool_GrowsOnePageAtATime fills pages exactly and checks a new page appears only when all are full.
func Test_Pool_GrowsOnePageAtATime(t *testing.T) {
	var grows []int
	pl := newPool(1024, backing.NewHeap(), logger.Discard(), func(objSize, pages int) {
		require.Equal(t, 1024, objSize)
		grows = append(grows, pages)
	})
	defer pl.destroy()

	var objs [][]byte
	for i := range 12 {
		obj, err := pl.next()
		require.NoError(t, err)
		objs = append(objs, obj)
		require.Len(t, pl.pages, i/4+1)
		require.Equal(t, sumRemaining(pl), pl.remaining())
	}
	require.Equal(t, []int{1, 2, 3}, grows)
	require.Zero(t, pl.remaining())
	testutil.RequireDisjoint(t, objs)
}

// Test_Pool_FirstFitByCreationOrder checks that the earliest page with room is used.
func Test_Pool_FirstFitByCreationOrder(t *testing.T) {
	pl := newTestPool(t, 2048, backing.NewHeap())

	objs := make([][]byte, 6) // three full pages
	for i := range objs {
		var err error
		objs[i], err = pl.next()
		require.NoError(t, err)
	}
	require.Len(t, pl.pages, 3)

	// Free one slot in the last page and one in the middle page.
	pl.release(mem.Addr(objs[5]))
	pl.release(mem.Addr(objs[3]))
	require.Equal(t, 2, pl.remaining())

	obj, err := pl.next()
	require.NoError(t, err)
	require.Equal(t, mem.Addr(objs[3]), mem.Addr(obj), "middle page comes first in creation order")

	obj, err = pl.next()
	require.NoError(t, err)
	require.Equal(t, mem.Addr(objs[5]), mem.Addr(obj))
	require.Len(t, pl.pages, 3, "no growth while a page has room")
}

func Test_Pool_NeverShrinks(t *testing.T) {
	tr := testutil.NewTracker(t, backing.NewHeap())
	pl := newPool(512, tr, logger.Discard(), nil)

	var objs [][]byte
	for range 20 {
		obj, err := pl.next()
		require.NoError(t, err)
		objs = append(objs, obj)
	}
	for _, obj := range objs {
		pl.release(mem.Addr(obj))
	}
	require.Len(t, pl.pages, 3)
	require.Equal(t, 24, pl.remaining())
	require.Equal(t, 3, tr.Live(), "empty pages stay with the pool")

	pl.destroy()
	tr.RequireNoLeaks()
}

func Test_Pool_GrowFailurePropagates(t *testing.T) {
	tr := testutil.NewTracker(t, backing.NewHeap())
	tr.FailAfter(1)
	pl := newTestPool(t, 2048, tr)

	_, err := pl.next()
	require.NoError(t, err)
	_, err = pl.next()
	require.NoError(t, err)

	_, err = pl.next()
	require.ErrorIs(t, err, mem.ErrExhausted)
	require.Len(t, pl.pages, 1)
	require.Zero(t, pl.remaining(), "failed growth leaves counters untouched")
}

func Test_Pool_ReleaseForeignPointerPanics(t *testing.T) {
	pl := newTestPool(t, 64, backing.NewHeap())
	_, err := pl.next()
	require.NoError(t, err)

	foreign := make([]byte, 64)
	require.Panics(t, func() { pl.release(mem.Addr(foreign)) })
}

// Test_Pool_RandomWorkload_FreeCountInvariant runs a fixed-seed random
// issue/release sequence and checks the cached count after every step.
func Test_Pool_RandomWorkload_FreeCountInvariant(t *testing.T) {
	for _, size := range Classes {
		pl := newTestPool(t, size, backing.NewHeap())
		rng := rand.New(rand.NewSource(int64(size)))
		perPage := mem.PageSize / size

		var live [][]byte
		for step := range 2000 {
			if len(live) == 0 || rng.Intn(3) != 0 {
				obj, err := pl.next()
				require.NoError(t, err)
				testutil.Fill(obj, byte(step))
				live = append(live, obj)
			} else {
				i := rng.Intn(len(live))
				pl.release(mem.Addr(live[i]))
				live[i] = live[len(live)-1]
				live = live[:len(live)-1]
			}

			require.Equal(t, sumRemaining(pl), pl.remaining(), "class %d step %d", size, step)
			require.Equal(t, perPage*len(pl.pages)-len(live), pl.remaining(), "class %d step %d", size, step)
		}
		testutil.RequireDisjoint(t, live)
	}
}
