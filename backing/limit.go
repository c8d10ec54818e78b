package backing

import (
	"fmt"
	"sync/atomic"

	"github.com/joshuapare/slabkit/mem"
)

// Limit caps the bytes outstanding through an inner allocator. Requests that
// would exceed the budget fail with an error wrapping mem.ErrExhausted
// without reaching the inner allocator.
type Limit struct {
	inner  mem.Allocator
	budget int64
	used   atomic.Int64
}

var _ mem.Allocator = (*Limit)(nil)

// NewLimit wraps inner with a budget of budget bytes.
func NewLimit(inner mem.Allocator, budget int64) *Limit {
	return &Limit{inner: inner, budget: budget}
}

// Allocate charges l.Size against the budget before delegating.
func (lm *Limit) Allocate(l mem.Layout) ([]byte, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	size := int64(l.Size)
	if used := lm.used.Add(size); used > lm.budget {
		lm.used.Add(-size)
		return nil, fmt.Errorf("%w: %s exceeds budget (%d of %d bytes in use)",
			mem.ErrExhausted, l, used-size, lm.budget)
	}

	b, err := lm.inner.Allocate(l)
	if err != nil {
		lm.used.Add(-size)
		return nil, err
	}
	return b, nil
}

// Deallocate releases b through the inner allocator and refunds its size.
func (lm *Limit) Deallocate(b []byte, l mem.Layout) {
	lm.inner.Deallocate(b, l)
	lm.used.Add(-int64(l.Size))
}

// Used returns the bytes currently charged against the budget.
func (lm *Limit) Used() int64 {
	return lm.used.Load()
}

// Budget returns the configured budget in bytes.
func (lm *Limit) Budget() int64 {
	return lm.budget
}
