// Package global holds an optional process-wide slab allocator.
//
// The instance is installed once with Init and never torn down; pages it
// acquires live until the process exits.
//
//	if err := global.Init(nil, nil); err != nil {
//	    return err
//	}
//	b, err := global.Allocate(mem.MustLayout(96, 8))
package global

import (
	"errors"
	"sync"

	"github.com/joshuapare/slabkit/mem"
	"github.com/joshuapare/slabkit/slab"
)

var (
	// ErrAlreadyInitialized is returned by a second Init.
	ErrAlreadyInitialized = errors.New("global: allocator already initialized")

	// ErrNotInitialized is returned by Allocate before Init.
	ErrNotInitialized = errors.New("global: allocator not initialized")
)

var (
	mu       sync.RWMutex
	instance *slab.Allocator
)

// Init installs a slab.Allocator over backing (nil selects backing.Default())
// as the process-wide instance.
func Init(backing mem.Allocator, cfg *slab.Config) error {
	mu.Lock()
	defer mu.Unlock()
	if instance != nil {
		return ErrAlreadyInitialized
	}
	instance = slab.New(backing, cfg)
	return nil
}

// Instance returns the installed allocator, or nil before Init.
func Instance() *slab.Allocator {
	mu.RLock()
	defer mu.RUnlock()
	return instance
}

// Allocate issues a region for l from the installed allocator.
func Allocate(l mem.Layout) ([]byte, error) {
	a := Instance()
	if a == nil {
		return nil, ErrNotInitialized
	}
	return a.Allocate(l)
}

// Deallocate releases b to the installed allocator. It panics before Init,
// since no region can have been issued yet.
func Deallocate(b []byte, l mem.Layout) {
	a := Instance()
	if a == nil {
		panic("global: Deallocate before Init")
	}
	a.Deallocate(b, l)
}

// Stats returns a snapshot of the installed allocator and whether one exists.
func Stats() (slab.Stats, bool) {
	a := Instance()
	if a == nil {
		return slab.Stats{}, false
	}
	return a.Stats(), true
}

// reset closes and uninstalls the instance. Tests only.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	if instance != nil {
		_ = instance.Close()
		instance = nil
	}
}
