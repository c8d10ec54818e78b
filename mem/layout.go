package mem

import (
	"fmt"
	"math/bits"
	"unsafe"

	"github.com/joshuapare/slabkit/internal/buf"
)

const (
	// PageSize is the size of every slab page in bytes.
	PageSize = 4096

	// PageAlign is the alignment of every slab page.
	PageAlign = 4096
)

// PageLayout is the layout slab pages request from their backing allocator.
var PageLayout = Layout{Size: PageSize, Align: PageAlign}

// Layout describes the size and alignment of a memory request.
type Layout struct {
	Size  int
	Align int
}

// NewLayout validates size and align and returns the layout.
func NewLayout(size, align int) (Layout, error) {
	l := Layout{Size: size, Align: align}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// MustLayout is like NewLayout but panics on an invalid layout.
func MustLayout(size, align int) Layout {
	l, err := NewLayout(size, align)
	if err != nil {
		panic(err)
	}
	return l
}

// Validate reports whether l is a layout an allocator can serve.
func (l Layout) Validate() error {
	if l.Size < 0 {
		return fmt.Errorf("%w: negative size %d", ErrInvalidLayout, l.Size)
	}
	if !IsPowerOfTwo(l.Align) {
		return fmt.Errorf("%w: alignment %d is not a power of two", ErrInvalidLayout, l.Align)
	}
	if _, ok := buf.AlignUp(l.Size, l.Align); !ok {
		return fmt.Errorf("%w: size %d overflows at alignment %d", ErrInvalidLayout, l.Size, l.Align)
	}
	return nil
}

// String implements fmt.Stringer.
func (l Layout) String() string {
	return fmt.Sprintf("{size=%d align=%d}", l.Size, l.Align)
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// NextPowerOfTwo returns the smallest power of two >= n. Zero and negative
// inputs yield 1. Inputs above the largest representable power of two yield 0.
func NextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	shift := bits.Len(uint(n - 1))
	if shift >= bits.UintSize-1 {
		return 0
	}
	return 1 << shift
}

// Addr returns the address of the first byte of b, or 0 for a nil or
// zero-capacity slice.
func Addr(b []byte) uintptr {
	if cap(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

// IsAligned reports whether addr is a multiple of align (a power of two).
func IsAligned(addr uintptr, align int) bool {
	return addr&uintptr(align-1) == 0
}
