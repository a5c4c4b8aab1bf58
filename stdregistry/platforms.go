package stdregistry

import (
	"github.com/elaraai/east/ir"
	"github.com/elaraai/east/registry"
	"github.com/elaraai/east/values"
)

// RegisterPlatforms installs a minimal platform registry sufficient to
// exercise the PlatformBody ABI and the sync/async entry marking. The
// concrete operating-system-facing platform functions (filesystem, HTTP,
// console, time, randomness) are out of scope for the host itself and are
// not provided here; "debug.echo" stands in for any platform call shape
// so tests can drive evalPlatform without a real OS dependency.
func RegisterPlatforms(r *registry.PlatformRegistry) {
	r.RegisterDirect("debug.echo", false, func(args []values.Value) ir.EvalResult {
		return ir.OkResult(args[0])
	})
	// debug.echoAsync is byte-for-byte identical to debug.echo: the host's
	// CallAsync is defined to behave exactly like Call, so an async-marked
	// entry needs no different body, only the async flag for the
	// compiler's benefit.
	r.RegisterDirect("debug.echoAsync", true, func(args []values.Value) ir.EvalResult {
		return ir.OkResult(args[0])
	})
}
