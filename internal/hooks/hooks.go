// Package hooks implements the extension points of the build orchestrator.
//
// A Bus is an explicit dispatcher instance injected into the orchestrator;
// there is no process-wide registry. Handlers for a hook run sequentially
// in registration order and are awaited one at a time: a slow handler
// stalls the pipeline, and the first handler error aborts the dispatch and
// propagates to the publisher.
package hooks

import (
	"context"
	"fmt"
	"sync"
)

// Hook names dispatched by the orchestrator.
const (
	// HookDocument fires before the document template is serialized.
	// Handlers receive a *DocumentEvent and may rewrite Contents in place.
	HookDocument = "document"

	// HookBuildBefore fires before the bundler compiles, one-shot or per
	// watch session. Handlers receive a *BuildBeforeEvent and may adjust
	// the bundle spec.
	HookBuildBefore = "build:before"

	// HookCompiled fires after every successful build, one-shot or per
	// watch cycle. Handlers receive a *CompiledEvent.
	HookCompiled = "compiled"

	// HookDevReload fires after a successful watch-cycle end so downstream
	// live-reload transports can notify connected clients. Handlers
	// receive a *DevReloadEvent.
	HookDevReload = "dev:reload"
)

// DocumentEvent is the mutable document-template record passed to
// HookDocument handlers. Rewrites to Contents are picked up by the
// serializer.
type DocumentEvent struct {
	SourcePath      string
	DestinationPath string
	Contents        string
}

// BuildBeforeEvent carries the bundle spec about to be compiled. Spec is
// typed as any to keep this package free of a bundler dependency; the
// orchestrator passes a *bundler.Spec.
type BuildBeforeEvent struct {
	Spec any
}

// CompiledEvent marks a finished build.
type CompiledEvent struct {
	OutputDir string
	EntryPath string
}

// DevReloadEvent signals downstream live-reload consumers.
type DevReloadEvent struct {
	EntryPath string
}

// Handler processes one hook dispatch.
type Handler func(ctx context.Context, event any) error

// Bus dispatches named hooks to registered handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBus creates an empty hook bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Hook registers a handler for the named hook. Handlers run in
// registration order.
func (b *Bus) Hook(name string, handler Handler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], handler)
}

// Publish invokes every handler registered for name, sequentially, in
// registration order. The first handler error stops the dispatch and is
// returned wrapped with the hook name. A hook with no handlers is a no-op.
func (b *Bus) Publish(ctx context.Context, name string, event any) error {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[name]))
	copy(handlers, b.handlers[name])
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			return fmt.Errorf("hook %q: %w", name, err)
		}
	}
	return nil
}

// HandlerCount returns the number of handlers registered for name.
func (b *Bus) HandlerCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name])
}
