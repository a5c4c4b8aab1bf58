package ir

import "github.com/elaraai/east/values"

// ResultKind enumerates the five eval-result shapes.
type ResultKind uint8

const (
	Ok ResultKind = iota
	Return
	Break
	Continue
	Error
)

func (k ResultKind) String() string {
	switch k {
	case Ok:
		return "Ok"
	case Return:
		return "Return"
	case Break:
		return "Break"
	case Continue:
		return "Continue"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// EvalResult is the interpreter's eval-result. Control-flow
// results (Return/Break/Continue) and Error propagate outward until a
// matching IR construct consumes them; Error accumulates a
// location stack as it crosses node boundaries.
type EvalResult struct {
	Kind ResultKind

	Value values.Value // Ok, Return

	Label string // Break, Continue: target loop label, "" if unlabelled

	Message   string     // Error
	Locations []Location // Error: accumulated location stack, outermost-pushed-last
}

// OkResult builds an Ok(value) result.
func OkResult(v values.Value) EvalResult { return EvalResult{Kind: Ok, Value: v} }

// ReturnResult builds a Return(value) result.
func ReturnResult(v values.Value) EvalResult { return EvalResult{Kind: Return, Value: v} }

// BreakResult builds a Break(label?) result.
func BreakResult(label string) EvalResult { return EvalResult{Kind: Break, Label: label} }

// ContinueResult builds a Continue(label?) result.
func ContinueResult(label string) EvalResult { return EvalResult{Kind: Continue, Label: label} }

// ErrorResult builds an Error(message, [loc]) result with loc as the first
// (innermost) entry of the location stack.
func ErrorResult(message string, loc Location) EvalResult {
	return EvalResult{Kind: Error, Message: message, Locations: []Location{loc}}
}

// WithLocation returns a copy of an Error result with loc appended to the
// location stack. Called once per node boundary crossed as an error
// bubbles outward, so the stack reads innermost-first: the raising node's
// own location, then each enclosing call site, then the top-level call
// last. No-op for non-Error results.
func (r EvalResult) WithLocation(loc Location) EvalResult {
	if r.Kind != Error {
		return r
	}
	locs := make([]Location, len(r.Locations), len(r.Locations)+1)
	copy(locs, r.Locations)
	r.Locations = append(locs, loc)
	return r
}

// IsOk reports whether the result is the Ok shape.
func (r EvalResult) IsOk() bool { return r.Kind == Ok }
