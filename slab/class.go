package slab

import "github.com/joshuapare/slabkit/mem"

const (
	// MinObjectSize is the smallest slab class. Smaller requests round up to it.
	MinObjectSize = 64

	// MaxObjectSize is the largest slab class. Larger classes go to the backing allocator.
	MaxObjectSize = 2048

	numClasses = 6
)

// Classes lists the supported object sizes in ascending order.
var Classes = [numClasses]int{64, 128, 256, 512, 1024, 2048}

// ClassFor returns the object size a request of layout l is served from:
// max(next power of two of l.Size, l.Align), never below MinObjectSize.
// ok is false when that size exceeds MaxObjectSize and the request belongs to
// the backing allocator.
func ClassFor(l mem.Layout) (objectSize int, ok bool) {
	idx := classIndex(l)
	if idx < 0 {
		return 0, false
	}
	return Classes[idx], true
}

// classIndex maps l to an index into Classes, or -1 for the backing allocator.
func classIndex(l mem.Layout) int {
	size := mem.NextPowerOfTwo(l.Size)
	if size == 0 || size > MaxObjectSize || l.Align > MaxObjectSize {
		return -1
	}
	size = max(size, l.Align, MinObjectSize)

	switch size {
	case 64:
		return 0
	case 128:
		return 1
	case 256:
		return 2
	case 512:
		return 3
	case 1024:
		return 4
	case 2048:
		return 5
	}
	return -1
}

// indexOfSize maps an object size to its index into Classes, or -1.
func indexOfSize(objectSize int) int {
	for i, s := range Classes {
		if s == objectSize {
			return i
		}
	}
	return -1
}
