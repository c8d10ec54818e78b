package backing

import "github.com/joshuapare/slabkit/mem"

// Default returns the preferred backing allocator for the platform: Mmap
// where anonymous mappings are supported, Heap otherwise.
func Default() mem.Allocator {
	if MmapSupported {
		return NewMmap()
	}
	return NewHeap()
}
