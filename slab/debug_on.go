//go:build slabdebug

package slab

// debugChecks enables consistency assertions on every release and pool mutation.
// Build with -tags slabdebug while developing or testing.
const debugChecks = true
