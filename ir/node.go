// Package ir implements the EAST intermediate-representation tree (spec
// component C): a typed tree of expression nodes with a source-location
// stack, delivered pre-compiled to the interpreter, in one node struct
// carrying a kind tag and kind-specific optional fields rather than one Go
// type per node kind. There is no separate CFG linearization pass here,
// since compiling source to IR is explicitly out of scope.
package ir

import (
	"github.com/elaraai/east/types"
	"github.com/elaraai/east/values"
)

// Kind enumerates the IR node kinds.
type Kind uint8

const (
	KindValue Kind = iota
	KindVariable
	KindLet
	KindAssign
	KindBlock
	KindIfElse
	KindMatch
	KindWhile
	KindForArray
	KindForSet
	KindForDict
	KindFunction
	KindAsyncFunction
	KindCall
	KindCallAsync
	KindPlatform
	KindBuiltin
	KindReturn
	KindBreak
	KindContinue
	KindError
	KindTryCatch
	KindNewArray
	KindNewSet
	KindNewDict
	KindNewRef
	KindNewVector
	KindStruct
	KindGetField
	KindVariant
	KindWrapRecursive
	KindUnwrapRecursive
)

func (k Kind) String() string {
	names := [...]string{
		"Value", "Variable", "Let", "Assign", "Block", "IfElse", "Match", "While",
		"ForArray", "ForSet", "ForDict", "Function", "AsyncFunction", "Call", "CallAsync",
		"Platform", "Builtin", "Return", "Break", "Continue", "Error", "TryCatch",
		"NewArray", "NewSet", "NewDict", "NewRef", "NewVector", "Struct", "GetField",
		"Variant", "WrapRecursive", "UnwrapRecursive",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// Location is one source position.
type Location struct {
	File   string
	Line   int
	Column int
}

// MatchCase is one case of a Match node: an optional bind name and a body.
type MatchCase struct {
	CaseName string
	BindName string // empty if the case payload is not bound
	Body     *Node
}

// NamedNode pairs a declared name with a value-producing subtree, used by
// Struct node construction.
type NamedNode struct {
	Name  string
	Value *Node
}

// Node is the single IR node struct: a kind tag, an optional result-type
// descriptor, a location stack, and kind-specific optional payload fields
// (exactly one group is live per Kind, noted in the per-field comments —
// the same "one struct, kind tag, sparse payload" shape as types.Descriptor
// and values.Value).
type Node struct {
	Kind      Kind
	Type      *types.Descriptor // result type, if known; optional, but metatype.IRNodeToValue requires it on Value nodes
	Locations []Location        // this node's own source-location stack

	// Value
	Literal values.Value

	// Variable, Let, Assign
	Name     string
	Mutable  bool // Let: may this binding be reassigned; Variable: is the variable known-mutable at its binding site
	Captured bool // Variable: was this variable captured from an enclosing closure

	// Let, Assign: right-hand side. Block: statements.
	RHS   *Node
	Stmts []*Node

	// IfElse, While
	Cond *Node
	Then *Node
	Else *Node

	// Match
	Expr  *Node
	Cases []MatchCase

	// While, ForArray, ForSet, ForDict
	Body  *Node
	Label string

	// ForArray, ForSet, ForDict
	Collection  *Node
	IterNames   []string // e.g. [value] or [key, value] or [index, value]
	ExposeIndex bool     // ForArray only

	// Function, AsyncFunction
	Captures []values.CaptureSpec
	Params   []string
	// FuncBody is the function body (Function/AsyncFunction only); kept
	// distinct from Body (loop body) for clarity even though both are
	// *Node, since a node can in principle be both a loop and carry a
	// nested function (they never overlap on the same Node).
	FuncBody   *Node
	OriginalAs *Node // the function's own IR, referenced reflexively; carried through the meta-type bridge (the interpreter converts the Function node itself, not this field)

	// Call, CallAsync
	Callee *Node
	Args   []*Node

	// Platform, Builtin: registered function name (reusing Name above) and
	// evaluated arguments (reusing Args above) — Platform/Builtin nodes
	// never also carry a Call/Variable/Let/Assign payload, so there is no
	// field collision.
	TypeParams []*types.Descriptor
	Async      bool // Platform only: marks an async platform entry
	Optional   bool // Platform only

	// Error
	Message *Node

	// TryCatch
	Try     *Node
	MsgVar  string
	LocVar  string
	Catch   *Node
	Finally *Node

	// NewArray, NewSet, NewVector
	Elements []*Node
	ElemType *types.Descriptor

	// NewDict
	Keys []*Node
	Vals []*Node

	// NewRef
	RefInit *Node

	// Struct
	Fields []NamedNode

	// GetField
	Object    *Node
	FieldName string

	// Variant
	CaseName string
	Payload  *Node

	// WrapRecursive, UnwrapRecursive
	Inner *Node
}
