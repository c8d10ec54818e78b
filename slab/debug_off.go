//go:build !slabdebug

package slab

// debugChecks enables consistency assertions (compile-time toggle, see debug_on.go).
const debugChecks = false
