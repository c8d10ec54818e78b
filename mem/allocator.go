package mem

// Allocator supplies and reclaims raw memory regions.
//
// Implementations must be safe for concurrent use when shared across
// goroutines.
type Allocator interface {
	// Allocate returns a region of at least l.Size bytes aligned to l.Align.
	// On failure the error wraps ErrExhausted (or ErrInvalidLayout).
	Allocate(l Layout) ([]byte, error)

	// Deallocate releases a region previously returned by Allocate with the
	// identical layout. It has no error channel; releasing a foreign or
	// already released region is undefined.
	Deallocate(b []byte, l Layout)
}
