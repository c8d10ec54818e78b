package backing

import (
	"fmt"

	"github.com/joshuapare/slabkit/internal/buf"
	"github.com/joshuapare/slabkit/mem"
)

// paddedSize returns how many raw bytes guarantee an l.Align-aligned region
// of l.Size bytes somewhere inside them. Zero-size requests still get one
// byte so every region has a distinct address.
func paddedSize(l mem.Layout) (int, error) {
	if err := l.Validate(); err != nil {
		return 0, err
	}
	n, ok := buf.AddOverflowSafe(max(l.Size, 1), l.Align-1)
	if !ok {
		return 0, fmt.Errorf("%w: %s too large", mem.ErrInvalidLayout, l)
	}
	return n, nil
}

// alignedOffset returns the distance from addr to the next multiple of align.
func alignedOffset(addr uintptr, align int) int {
	mask := uintptr(align - 1)
	return int((uintptr(align) - addr&mask) & mask)
}

// carve returns the aligned region for l inside raw, which must have been
// sized with paddedSize.
func carve(raw []byte, l mem.Layout) []byte {
	off := alignedOffset(mem.Addr(raw), l.Align)
	return raw[off : off+l.Size : off+max(l.Size, 1)]
}
