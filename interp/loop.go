package interp

import "github.com/elaraai/east/ir"

// loopOutcome tells a loop-evaluating node what to do with a body result.
type loopOutcome int

const (
	loopNext loopOutcome = iota // proceed to the next iteration
	loopStop                    // this loop is done, complete normally (Ok(Null))
	loopPropagate                // bubble res unchanged past this loop
)

// loopControl classifies a body eval-result against the enclosing loop's
// label (While/ForArray/ForSet/ForDict): a Break/Continue whose label names
// an enclosing loop is consumed there; unlabelled or matching-label
// Break/Continue targets the nearest (or named) loop; Return and Error
// always pass through loops uninterrupted.
func loopControl(res ir.EvalResult, label string) loopOutcome {
	switch res.Kind {
	case ir.Ok:
		return loopNext
	case ir.Break:
		if res.Label == "" || res.Label == label {
			return loopStop
		}
		return loopPropagate
	case ir.Continue:
		if res.Label == "" || res.Label == label {
			return loopNext
		}
		return loopPropagate
	default: // Return, Error
		return loopPropagate
	}
}
