package registry

import "sync/atomic"

// Context bundles the pair of registries active when a closure is built or
// decoded.
type Context struct {
	Builtins  *BuiltinRegistry
	Platforms *PlatformRegistry
}

// current holds the process-default context (used by the main goroutine
// and by any codec Decode call that is not given an explicit Context).
// Go has no native per-goroutine-local storage, and a thread-local-style
// global is only safe as a convenience if it's set at every worker entry —
// the parallel map worker does NOT rely on this global at all: each worker
// goroutine is handed its own *Context explicitly and threads it through
// the decode call (see package parallel), which is more testable than a
// shared global. This global exists only so that single-threaded callers
// (tests, a REPL host) can decode Function values without plumbing a
// Context through every call site.
var current atomic.Pointer[Context]

// SetCurrent installs the process-default registry context.
func SetCurrent(ctx *Context) { current.Store(ctx) }

// Current returns the process-default registry context, or nil if none has
// been installed.
func Current() *Context { return current.Load() }
