// Package mem defines the vocabulary shared by slabkit's allocators: the
// Layout of a request, the Allocator contract that backing allocators and the
// slab router both satisfy, and the single exhaustion error.
//
// # Allocator Contract
//
//   - Allocate(l) returns a region of at least l.Size bytes whose first byte
//     is aligned to l.Align, or an error wrapping ErrExhausted.
//   - Deallocate(b, l) returns a region previously obtained from Allocate with
//     the identical Layout. Releasing anything else is a caller error and is
//     not detected.
//
// Regions are plain []byte values. The address of a region is the address of
// its first byte (see Addr); callers must keep the slice header they were
// given, or any slice starting at the same byte, to release it.
package mem
