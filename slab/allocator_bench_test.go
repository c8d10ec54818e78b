package slab

import (
	"testing"

	"github.com/joshuapare/slabkit/backing"
	"github.com/joshuapare/slabkit/internal/logger"
	"github.com/joshuapare/slabkit/mem"
)

func newBenchAllocator(b *testing.B) *Allocator {
	b.Helper()
	a := New(backing.NewHeap(), &Config{Logger: logger.Discard()})
	b.Cleanup(func() { _ = a.Close() })
	return a
}

// BenchmarkAllocator_AllocFree measures an issue/release pair on a warm page.
func BenchmarkAllocator_AllocFree(b *testing.B) {
	for _, size := range Classes {
		b.Run(mem.MustLayout(size, 8).String(), func(b *testing.B) {
			a := newBenchAllocator(b)
			l := mem.MustLayout(size, 8)

			b.ResetTimer()
			b.ReportAllocs()

			for range b.N {
				obj, err := a.Allocate(l)
				if err != nil {
					b.Fatal(err)
				}
				a.Deallocate(obj, l)
			}
		})
	}
}

// BenchmarkAllocator_Sequential measures issuing without release, so pools keep growing.
func BenchmarkAllocator_Sequential(b *testing.B) {
	a := newBenchAllocator(b)
	l := mem.MustLayout(64, 8)

	b.ResetTimer()
	b.ReportAllocs()

	for range b.N {
		if _, err := a.Allocate(l); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkAllocator_ManyPages measures first-fit search when only the last page has room.
func BenchmarkAllocator_ManyPages(b *testing.B) {
	a := newBenchAllocator(b)
	l := mem.MustLayout(2048, 8)

	objs := make([][]byte, 2000)
	for i := range objs {
		obj, err := a.Allocate(l)
		if err != nil {
			b.Fatal(err)
		}
		objs[i] = obj
	}
	last := objs[len(objs)-1]
	a.Deallocate(last, l)

	b.ResetTimer()
	b.ReportAllocs()

	for range b.N {
		obj, err := a.Allocate(l)
		if err != nil {
			b.Fatal(err)
		}
		a.Deallocate(obj, l)
	}
}

// BenchmarkAllocator_VariedSizes cycles through request sizes spanning every class.
func BenchmarkAllocator_VariedSizes(b *testing.B) {
	a := newBenchAllocator(b)
	layouts := []mem.Layout{
		mem.MustLayout(24, 8), mem.MustLayout(100, 8), mem.MustLayout(200, 8),
		mem.MustLayout(500, 8), mem.MustLayout(1000, 8), mem.MustLayout(2000, 8),
	}
	held := make([][]byte, len(layouts))

	b.ResetTimer()
	b.ReportAllocs()

	for i := range b.N {
		k := i % len(layouts)
		if held[k] != nil {
			a.Deallocate(held[k], layouts[k])
		}
		obj, err := a.Allocate(layouts[k])
		if err != nil {
			b.Fatal(err)
		}
		held[k] = obj
	}
}

// BenchmarkAllocator_Parallel measures contention on a single class.
func BenchmarkAllocator_Parallel(b *testing.B) {
	a := newBenchAllocator(b)
	l := mem.MustLayout(128, 8)

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			obj, err := a.Allocate(l)
			if err != nil {
				b.Error(err)
				return
			}
			a.Deallocate(obj, l)
		}
	})
}

// BenchmarkAllocator_Large measures the backing pass-through path.
func BenchmarkAllocator_Large(b *testing.B) {
	a := newBenchAllocator(b)
	l := mem.MustLayout(8192, 8)

	b.ResetTimer()
	b.ReportAllocs()

	for range b.N {
		obj, err := a.Allocate(l)
		if err != nil {
			b.Fatal(err)
		}
		a.Deallocate(obj, l)
	}
}
