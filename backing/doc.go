// Package backing provides concrete mem.Allocator implementations that supply
// raw, aligned memory regions to the slab allocator and to oversized requests.
//
//   - Heap: regions carved from the Go heap, garbage collected once unreferenced
//   - Mmap: anonymous private mappings (unix); Heap elsewhere
//   - CHeap: off-heap memory from modernc.org/memory
//   - Limit: a byte budget in front of any allocator, failing with mem.ErrExhausted
//
// Every implementation identifies a region by the address of its first byte,
// so a region may be released through any slice that starts at that byte.
// All implementations are safe for concurrent use.
package backing
