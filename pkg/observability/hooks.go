// Package observability provides hooks for metrics, tracing, and logging.
//
// Libraries emit events through the registered hooks; main registers real
// implementations at startup. Without registration every hook is a no-op, so
// packages can call them unconditionally.
//
// # Usage
//
//	func main() {
//	    observability.SetRenderHooks(&myRenderHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Render().OnRenderStart(ctx, gen, len(source))
//	// ... lay out ...
//	observability.Render().OnRenderComplete(ctx, gen, len(sc.Nodes), time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Render Hooks
// =============================================================================

// RenderHooks receives events from the text to scene path.
type RenderHooks interface {
	OnRenderStart(ctx context.Context, generation uint64, sourceLen int)
	OnRenderComplete(ctx context.Context, generation uint64, nodeCount int, duration time.Duration, err error)

	// OnRenderStale records a result dropped because a newer render started.
	OnRenderStale(ctx context.Context, generation, current uint64)
}

// =============================================================================
// Edit Hooks
// =============================================================================

// EditHooks receives events from in-place node text editing.
type EditHooks interface {
	OnEditOpen(ctx context.Context, nodeID string)
	OnEditCommit(ctx context.Context, nodeID string, changed bool)
	OnEditCancel(ctx context.Context, nodeID string)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopRenderHooks is a no-op implementation of RenderHooks.
type NoopRenderHooks struct{}

func (NoopRenderHooks) OnRenderStart(context.Context, uint64, int) {}
func (NoopRenderHooks) OnRenderComplete(context.Context, uint64, int, time.Duration, error) {
}
func (NoopRenderHooks) OnRenderStale(context.Context, uint64, uint64) {}

// NoopEditHooks is a no-op implementation of EditHooks.
type NoopEditHooks struct{}

func (NoopEditHooks) OnEditOpen(context.Context, string)         {}
func (NoopEditHooks) OnEditCommit(context.Context, string, bool) {}
func (NoopEditHooks) OnEditCancel(context.Context, string)       {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	renderHooks RenderHooks = NoopRenderHooks{}
	editHooks   EditHooks   = NoopEditHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	hooksMu     sync.RWMutex
)

// SetRenderHooks registers custom render hooks.
func SetRenderHooks(h RenderHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		renderHooks = h
	}
}

// SetEditHooks registers custom edit hooks.
func SetEditHooks(h EditHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		editHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Render returns the registered render hooks.
func Render() RenderHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return renderHooks
}

// Edit returns the registered edit hooks.
func Edit() EditHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return editHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	renderHooks = NoopRenderHooks{}
	editHooks = NoopEditHooks{}
	cacheHooks = NoopCacheHooks{}
}
