// Package observability provides hooks for metrics and tracing.
//
// Libraries call hooks to emit events; applications register their own
// implementations once at startup. Defaults are no-ops, so nothing is
// recorded unless a hook is installed.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetSyncHooks(&mySyncHooks{})
//	    observability.SetBackendHooks(&myBackendHooks{})
//	    // ... run application
//	}
//
// Libraries emit events:
//
//	start := time.Now()
//	// ... reconcile ...
//	observability.Sync().OnSyncComplete(created, updated, destroyed, time.Since(start))
//
// Canvas hooks are called on the UI goroutine and must not block.
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Sync Hooks
// =============================================================================

// SyncHooks receives events from canvas/backend reconciliation.
type SyncHooks interface {
	// OnSyncComplete records a finished synchronization pass.
	OnSyncComplete(created, updated, destroyed int, duration time.Duration)

	// OnSyncSkipped records a pass that could not run, usually because the
	// backend lock was unavailable.
	OnSyncSkipped(reason string)
}

// =============================================================================
// Gesture Hooks
// =============================================================================

// GestureHooks receives events from interactive editing.
type GestureHooks interface {
	// OnDragComplete records a committed group move.
	OnDragComplete(nodes int, dx, dy int)

	// OnConnectionCommitted records edges created by one gesture.
	OnConnectionCommitted(edges int, autopatch bool)

	// OnConnectionDiscarded records pending connections dropped without an edge.
	OnConnectionDiscarded(pending int)
}

// =============================================================================
// Backend Hooks
// =============================================================================

// BackendHooks receives events from the runtime boundary and its transports.
type BackendHooks interface {
	// OnLockTimeout records a bounded lock acquisition that gave up.
	OnLockTimeout(waited time.Duration)

	// OnEvent records a change notification delivered to the editor.
	OnEvent(kind string)

	// OnTransportError records a failure publishing or receiving events
	// over an external transport.
	OnTransportError(ctx context.Context, transport string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopSyncHooks is a no-op implementation of SyncHooks.
type NoopSyncHooks struct{}

func (NoopSyncHooks) OnSyncComplete(int, int, int, time.Duration) {}
func (NoopSyncHooks) OnSyncSkipped(string)                        {}

// NoopGestureHooks is a no-op implementation of GestureHooks.
type NoopGestureHooks struct{}

func (NoopGestureHooks) OnDragComplete(int, int, int)    {}
func (NoopGestureHooks) OnConnectionCommitted(int, bool) {}
func (NoopGestureHooks) OnConnectionDiscarded(int)       {}

// NoopBackendHooks is a no-op implementation of BackendHooks.
type NoopBackendHooks struct{}

func (NoopBackendHooks) OnLockTimeout(time.Duration)                     {}
func (NoopBackendHooks) OnEvent(string)                                  {}
func (NoopBackendHooks) OnTransportError(context.Context, string, error) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	syncHooks    SyncHooks    = NoopSyncHooks{}
	gestureHooks GestureHooks = NoopGestureHooks{}
	backendHooks BackendHooks = NoopBackendHooks{}
	hooksMu      sync.RWMutex
)

// SetSyncHooks registers custom sync hooks. Nil is ignored.
func SetSyncHooks(h SyncHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		syncHooks = h
	}
}

// SetGestureHooks registers custom gesture hooks. Nil is ignored.
func SetGestureHooks(h GestureHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		gestureHooks = h
	}
}

// SetBackendHooks registers custom backend hooks. Nil is ignored.
func SetBackendHooks(h BackendHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		backendHooks = h
	}
}

// Sync returns the registered sync hooks.
func Sync() SyncHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return syncHooks
}

// Gesture returns the registered gesture hooks.
func Gesture() GestureHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return gestureHooks
}

// Backend returns the registered backend hooks.
func Backend() BackendHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return backendHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	syncHooks = NoopSyncHooks{}
	gestureHooks = NoopGestureHooks{}
	backendHooks = NoopBackendHooks{}
}
