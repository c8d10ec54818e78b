package mem

import "errors"

var (
	// ErrExhausted indicates the backing allocator could not supply a region.
	ErrExhausted = errors.New("mem: backing allocator exhausted")

	// ErrInvalidLayout indicates a negative size, a non power-of-two alignment,
	// or a size that overflows once rounded up to its alignment.
	ErrInvalidLayout = errors.New("mem: invalid layout")
)
