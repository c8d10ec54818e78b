package slab

import "log/slog"

// Config tunes an Allocator. A nil *Config uses the defaults.
type Config struct {
	// Logger receives page growth (Debug), backing exhaustion (Warn) and Close (Debug).
	// Default: logger.FromEnv(), which discards unless SLAB_LOG_ALLOC is set.
	Logger *slog.Logger

	// OnGrow is called with the class object size and its new page count
	// every time a pool adds a page. It runs while that class's lock is held.
	OnGrow func(objectSize, pages int)
}
