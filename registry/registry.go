// Package registry implements the EAST builtin and platform registries
// (spec component E): name-keyed factories dispatched by the interpreter
// for primitive operations (builtins) and side-effecting operations
// (platform calls), one map per registry since EAST has no package-path
// namespacing.
package registry

import (
	"github.com/pkg/errors"

	"github.com/elaraai/east/ir"
	"github.com/elaraai/east/types"
	"github.com/elaraai/east/values"
)

// ErrUnknownBuiltin / ErrUnknownPlatform are the Go-level sentinels
// wrapped by registry lookup failures; the interpreter translates these
// into the language-level UnknownBuiltin/UnknownPlatformFunction error
// kinds.
var (
	ErrUnknownBuiltin  = errors.New("registry: unknown builtin")
	ErrUnknownPlatform = errors.New("registry: unknown platform function")
)

// BuiltinBody is a builtin's body: it takes evaluated arguments and
// returns either a value, or signals failure by returning ok=false and a
// message — a per-call (ok, message) pair rather than a thread-local error
// slot, since Go can return it directly without the races a real TLS slot
// would risk.
type BuiltinBody func(args []values.Value) (result values.Value, ok bool, errMessage string)

// BuiltinFactory produces a BuiltinBody given type-parameter arguments.
type BuiltinFactory func(typeParams []*types.Descriptor) BuiltinBody

// PlatformBody is a platform function's body: it returns the interpreter's
// full eval-result shape directly.
type PlatformBody func(args []values.Value) ir.EvalResult

// PlatformFactory produces a PlatformBody given type-parameter arguments.
type PlatformFactory func(typeParams []*types.Descriptor) PlatformBody

type builtinEntry struct {
	factory BuiltinFactory
}

// platformEntry bundles a factory with its async marking.
type platformEntry struct {
	factory PlatformFactory
	async   bool
}

// BuiltinRegistry maps builtin names to factories.
type BuiltinRegistry struct {
	entries map[string]builtinEntry
}

// NewBuiltinRegistry returns an empty builtin registry.
func NewBuiltinRegistry() *BuiltinRegistry {
	return &BuiltinRegistry{entries: map[string]builtinEntry{}}
}

// Register adds a generic builtin factory under name.
func (r *BuiltinRegistry) Register(name string, factory BuiltinFactory) {
	r.entries[name] = builtinEntry{factory: factory}
}

// RegisterDirect is the non-generic shortcut: direct registration,
// equivalent to a factory that ignores its type-parameter arguments.
func (r *BuiltinRegistry) RegisterDirect(name string, body BuiltinBody) {
	r.Register(name, func([]*types.Descriptor) BuiltinBody { return body })
}

// Lookup resolves name with the given type parameters to a concrete body.
func (r *BuiltinRegistry) Lookup(name string, typeParams []*types.Descriptor) (BuiltinBody, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownBuiltin, "%q", name)
	}
	return e.factory(typeParams), nil
}

// Has reports whether name is registered.
func (r *BuiltinRegistry) Has(name string) bool {
	_, ok := r.entries[name]
	return ok
}

// Names returns all registered builtin names (diagnostics, tests).
func (r *BuiltinRegistry) Names() []string {
	out := make([]string, 0, len(r.entries))
	for n := range r.entries {
		out = append(out, n)
	}
	return out
}

// PlatformRegistry maps platform function names to factories.
type PlatformRegistry struct {
	entries map[string]platformEntry
}

// NewPlatformRegistry returns an empty platform registry.
func NewPlatformRegistry() *PlatformRegistry {
	return &PlatformRegistry{entries: map[string]platformEntry{}}
}

// Register adds a generic platform factory under name with its async
// marking.
func (r *PlatformRegistry) Register(name string, async bool, factory PlatformFactory) {
	r.entries[name] = platformEntry{factory: factory, async: async}
}

// RegisterDirect is the non-generic shortcut: direct registration,
// equivalent to a factory that ignores its type-parameter arguments.
func (r *PlatformRegistry) RegisterDirect(name string, async bool, body PlatformBody) {
	r.Register(name, async, func([]*types.Descriptor) PlatformBody { return body })
}

// Lookup resolves name with the given type parameters to a concrete body
// and its async marking.
func (r *PlatformRegistry) Lookup(name string, typeParams []*types.Descriptor) (body PlatformBody, async bool, err error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, false, errors.Wrapf(ErrUnknownPlatform, "%q", name)
	}
	return e.factory(typeParams), e.async, nil
}

// Has reports whether name is registered.
func (r *PlatformRegistry) Has(name string) bool {
	_, ok := r.entries[name]
	return ok
}

// Names returns all registered platform function names.
func (r *PlatformRegistry) Names() []string {
	out := make([]string, 0, len(r.entries))
	for n := range r.entries {
		out = append(out, n)
	}
	return out
}
