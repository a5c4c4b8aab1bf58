// Package interp implements the EAST interpreter (spec component F): it
// evaluates IR nodes against the current frame, builtin registry and
// platform registry, producing eval-results and raising errors, via a
// direct tree-walk over pre-compiled EAST IR rather than a linearized CFG,
// since compiling source to IR is out of scope here.
package interp

import (
	"go.uber.org/zap"

	"github.com/elaraai/east/env"
	"github.com/elaraai/east/registry"
)

// Interpreter holds the registries active for a run. Registries are
// treated as immutable after startup so an *Interpreter may
// be shared freely for read-only Eval calls across goroutines so long as
// each goroutine uses its own Frame.
type Interpreter struct {
	Builtins  *registry.BuiltinRegistry
	Platforms *registry.PlatformRegistry

	log *zap.SugaredLogger
}

// Options configures a new Interpreter as a plain struct — this is an
// embeddable library, not an outer CLI.
type Options struct {
	Builtins  *registry.BuiltinRegistry
	Platforms *registry.PlatformRegistry
	Logger    *zap.SugaredLogger
}

// New returns a new Interpreter.
func New(opt Options) *Interpreter {
	ip := &Interpreter{Builtins: opt.Builtins, Platforms: opt.Platforms, log: opt.Logger}
	if ip.Builtins == nil {
		ip.Builtins = registry.NewBuiltinRegistry()
	}
	if ip.Platforms == nil {
		ip.Platforms = registry.NewPlatformRegistry()
	}
	if ip.log == nil {
		ip.log = zap.NewNop().Sugar()
	}
	return ip
}

// RootFrame returns a fresh top-level frame with no bindings.
func (ip *Interpreter) RootFrame() *env.Frame { return env.New() }

// RegistryContext returns the registry pair currently active on this
// Interpreter, for attaching to a newly built closure.
func (ip *Interpreter) RegistryContext() *registry.Context {
	return &registry.Context{Builtins: ip.Builtins, Platforms: ip.Platforms}
}
