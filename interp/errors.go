package interp

import (
	"fmt"

	"github.com/elaraai/east/ir"
)

// ErrorKind names the interpreter error kinds. They are folded into the
// Error eval-result's message as a "Kind: detail" prefix rather than
// carried as a separate typed field, since the eval-result's Error shape
// is just (message, location-stack) — a caller that needs to branch on
// kind can split the message on the first ": ", mirroring how the
// teacher's own _error wrapper exposes only a message string to
// interpreted code.
type ErrorKind string

const (
	UndefinedVariable    ErrorKind = "UndefinedVariable"
	TypeMismatch         ErrorKind = "TypeMismatch"
	UnknownBuiltin       ErrorKind = "UnknownBuiltin"
	UnknownPlatformFunc  ErrorKind = "UnknownPlatformFunction"
	IndexOutOfBounds     ErrorKind = "IndexOutOfBounds"
	NoMatchingCase       ErrorKind = "NoMatchingCase"
	BuiltinErrorKind     ErrorKind = "BuiltinError"
	CodecErrorKind       ErrorKind = "CodecError"
	ParallelMapErrorKind ErrorKind = "ParallelMapError"
)

// newError builds an Error eval-result with a "Kind: detail" message and no
// location entries yet — Eval's wrapper pushes the originating node's own
// locations onto it on the way out, the same as every enclosing node, so
// the node that raises the error is not special-cased in the stack.
func newError(kind ErrorKind, detail string) ir.EvalResult {
	return ir.EvalResult{Kind: ir.Error, Message: fmt.Sprintf("%s: %s", kind, detail)}
}
