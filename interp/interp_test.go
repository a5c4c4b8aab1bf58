package interp

import (
	"testing"

	"github.com/elaraai/east/env"
	"github.com/elaraai/east/ir"
	"github.com/elaraai/east/registry"
	"github.com/elaraai/east/types"
	"github.com/elaraai/east/values"
)

func val(v values.Value) *ir.Node { return &ir.Node{Kind: ir.KindValue, Literal: v} }
func at(line int) []ir.Location   { return []ir.Location{{File: "t.east", Line: line}} }

func block(stmts ...*ir.Node) *ir.Node { return &ir.Node{Kind: ir.KindBlock, Stmts: stmts} }

func newTestInterp(t *testing.T) (*Interpreter, *registry.Context) {
	t.Helper()
	ip := New(Options{})
	ip.Builtins.RegisterDirect("int.add", func(args []values.Value) (values.Value, bool, string) {
		return values.Integer(args[0].Int + args[1].Int), true, ""
	})
	ip.Builtins.RegisterDirect("int.eq", func(args []values.Value) (values.Value, bool, string) {
		return values.Boolean(args[0].Int == args[1].Int), true, ""
	})
	ip.Builtins.RegisterDirect("int.lt", func(args []values.Value) (values.Value, bool, string) {
		return values.Boolean(args[0].Int < args[1].Int), true, ""
	})
	return ip, ip.RegistryContext()
}

func TestLetBindsThenVariableReads(t *testing.T) {
	ip, reg := newTestInterp(t)
	prog := block(
		&ir.Node{Kind: ir.KindLet, Name: "x", Mutable: false, RHS: val(values.Integer(42))},
		&ir.Node{Kind: ir.KindVariable, Name: "x"},
	)
	res := ip.Eval(prog, env.New(), reg)
	if !res.IsOk() || res.Value.Int != 42 {
		t.Fatalf("got %+v", res)
	}
}

func TestVariableUndefinedIsError(t *testing.T) {
	ip, reg := newTestInterp(t)
	res := ip.Eval(&ir.Node{Kind: ir.KindVariable, Name: "nope", Locations: at(1)}, env.New(), reg)
	if res.Kind != ir.Error {
		t.Fatalf("expected Error, got %+v", res)
	}
	if res.Message != "UndefinedVariable: nope" {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestAssignToImmutableIsError(t *testing.T) {
	ip, reg := newTestInterp(t)
	prog := block(
		&ir.Node{Kind: ir.KindLet, Name: "x", Mutable: false, RHS: val(values.Integer(1))},
		&ir.Node{Kind: ir.KindAssign, Name: "x", RHS: val(values.Integer(2))},
	)
	res := ip.Eval(prog, env.New(), reg)
	if res.Kind != ir.Error {
		t.Fatalf("expected Error, got %+v", res)
	}
}

func TestBlockShortCircuitsOnError(t *testing.T) {
	ip, reg := newTestInterp(t)
	frame := env.New()
	prog := block(
		&ir.Node{Kind: ir.KindVariable, Name: "missing"},
		&ir.Node{Kind: ir.KindLet, Name: "reached", RHS: val(values.Integer(1))},
	)
	res := ip.Eval(prog, frame, reg)
	if res.Kind != ir.Error {
		t.Fatalf("expected Error, got %+v", res)
	}
	if _, ok := frame.Lookup("reached"); ok {
		t.Fatal("second statement should never have been reached")
	}
}

func TestIfElseBranches(t *testing.T) {
	ip, reg := newTestInterp(t)
	prog := &ir.Node{
		Kind: ir.KindIfElse,
		Cond: val(values.Boolean(false)),
		Then: val(values.Integer(1)),
		Else: val(values.Integer(2)),
	}
	res := ip.Eval(prog, env.New(), reg)
	if !res.IsOk() || res.Value.Int != 2 {
		t.Fatalf("got %+v", res)
	}
}

func TestWhileLoopCountsToThree(t *testing.T) {
	ip, reg := newTestInterp(t)
	frame := env.New()
	frame.Bind("counter", values.Integer(0), true)

	loop := &ir.Node{
		Kind:  ir.KindWhile,
		Label: "outer",
		Cond: &ir.Node{
			Kind: ir.KindBuiltin, Name: "int.lt",
			Args: []*ir.Node{{Kind: ir.KindVariable, Name: "counter"}, val(values.Integer(3))},
		},
		Body: &ir.Node{
			Kind: ir.KindAssign, Name: "counter",
			RHS: &ir.Node{
				Kind: ir.KindBuiltin, Name: "int.add",
				Args: []*ir.Node{{Kind: ir.KindVariable, Name: "counter"}, val(values.Integer(1))},
			},
		},
	}
	res := ip.Eval(loop, frame, reg)
	if !res.IsOk() {
		t.Fatalf("got %+v", res)
	}
	got, _ := frame.Lookup("counter")
	if got.Int != 3 {
		t.Fatalf("expected counter == 3, got %d", got.Int)
	}
}

func TestLabelledBreakStopsNamedLoop(t *testing.T) {
	ip, reg := newTestInterp(t)
	frame := env.New()
	frame.Bind("counter", values.Integer(0), true)

	innerBreaksOuter := block(
		&ir.Node{
			Kind: ir.KindAssign, Name: "counter",
			RHS: &ir.Node{
				Kind: ir.KindBuiltin, Name: "int.add",
				Args: []*ir.Node{{Kind: ir.KindVariable, Name: "counter"}, val(values.Integer(1))},
			},
		},
		&ir.Node{
			Kind: ir.KindIfElse,
			Cond: &ir.Node{
				Kind: ir.KindBuiltin, Name: "int.eq",
				Args: []*ir.Node{{Kind: ir.KindVariable, Name: "counter"}, val(values.Integer(2))},
			},
			Then: &ir.Node{Kind: ir.KindBreak, Label: "outer"},
			Else: val(values.Null()),
		},
	)
	outer := &ir.Node{
		Kind:  ir.KindWhile,
		Label: "outer",
		Cond:  val(values.Boolean(true)),
		Body:  innerBreaksOuter,
	}

	res := ip.Eval(outer, frame, reg)
	if !res.IsOk() {
		t.Fatalf("got %+v", res)
	}
	got, _ := frame.Lookup("counter")
	if got.Int != 2 {
		t.Fatalf("expected the outer loop to stop exactly at counter == 2, got %d", got.Int)
	}
}

func TestForArrayExposesIndexAndValue(t *testing.T) {
	ip, reg := newTestInterp(t)
	frame := env.New()
	frame.Bind("sum", values.Integer(0), true)

	arr := values.NewArray(types.Integer, []values.Value{values.Integer(10), values.Integer(20), values.Integer(30)})
	loop := &ir.Node{
		Kind:        ir.KindForArray,
		Collection:  val(arr),
		IterNames:   []string{"i", "v"},
		ExposeIndex: true,
		Body: &ir.Node{
			Kind: ir.KindAssign, Name: "sum",
			RHS: &ir.Node{
				Kind: ir.KindBuiltin, Name: "int.add",
				Args: []*ir.Node{{Kind: ir.KindVariable, Name: "sum"}, {Kind: ir.KindVariable, Name: "v"}},
			},
		},
	}
	res := ip.Eval(loop, frame, reg)
	if !res.IsOk() {
		t.Fatalf("got %+v", res)
	}
	got, _ := frame.Lookup("sum")
	if got.Int != 60 {
		t.Fatalf("expected sum == 60, got %d", got.Int)
	}
}

func TestTryCatchBindsMessageAndFinallyAlwaysRuns(t *testing.T) {
	ip, reg := newTestInterp(t)
	frame := env.New()
	frame.Bind("finallyRan", values.Boolean(false), true)

	prog := &ir.Node{
		Kind:   ir.KindTryCatch,
		Try:    &ir.Node{Kind: ir.KindError, Message: val(values.String("boom"))},
		MsgVar: "msg",
		Catch:  &ir.Node{Kind: ir.KindVariable, Name: "msg"},
		Finally: &ir.Node{
			Kind: ir.KindAssign, Name: "finallyRan", RHS: val(values.Boolean(true)),
		},
	}
	res := ip.Eval(prog, frame, reg)
	if !res.IsOk() || res.Value.Str != "boom" {
		t.Fatalf("got %+v", res)
	}
	ran, _ := frame.Lookup("finallyRan")
	if !ran.Bool {
		t.Fatal("finally should run even when catch handled the error")
	}
}

func TestTryCatchFinallyOverridesCatchResult(t *testing.T) {
	ip, reg := newTestInterp(t)
	prog := &ir.Node{
		Kind:    ir.KindTryCatch,
		Try:     &ir.Node{Kind: ir.KindError, Message: val(values.String("boom"))},
		MsgVar:  "msg",
		Catch:   &ir.Node{Kind: ir.KindVariable, Name: "msg"},
		Finally: &ir.Node{Kind: ir.KindError, Message: val(values.String("finally failed"))},
	}
	res := ip.Eval(prog, env.New(), reg)
	if res.Kind != ir.Error || res.Message != "finally failed" {
		t.Fatalf("expected finally's error to win, got %+v", res)
	}
}

func TestErrorLocationStackAccumulatesInnermostFirst(t *testing.T) {
	ip, reg := newTestInterp(t)
	inner := &ir.Node{Kind: ir.KindVariable, Name: "missing", Locations: at(10)}
	outer := block(inner)
	outer.Locations = at(1)

	res := ip.Eval(outer, env.New(), reg)
	if res.Kind != ir.Error {
		t.Fatalf("expected Error, got %+v", res)
	}
	if len(res.Locations) != 2 || res.Locations[0].Line != 10 || res.Locations[1].Line != 1 {
		t.Fatalf("expected [line 10 (innermost), line 1 (outermost)], got %+v", res.Locations)
	}
}

func TestClosureCapturesByNameAndReadsCapturedValue(t *testing.T) {
	ip, reg := newTestInterp(t)
	frame := env.New()
	frame.Bind("base", values.Integer(100), false)

	fn := &ir.Node{
		Kind:     ir.KindFunction,
		Captures: []values.CaptureSpec{{Name: "base", Mutable: false}},
		Params:   []string{"x"},
		FuncBody: &ir.Node{
			Kind: ir.KindReturn,
			RHS: &ir.Node{
				Kind: ir.KindBuiltin, Name: "int.add",
				Args: []*ir.Node{{Kind: ir.KindVariable, Name: "base"}, {Kind: ir.KindVariable, Name: "x"}},
			},
		},
	}
	made := ip.Eval(fn, frame, reg)
	if !made.IsOk() || made.Value.Kind != values.KindFunction {
		t.Fatalf("expected a Function value, got %+v", made)
	}

	call := &ir.Node{
		Kind:   ir.KindCall,
		Callee: val(made.Value),
		Args:   []*ir.Node{val(values.Integer(5))},
	}
	res := ip.Eval(call, frame, reg)
	if !res.IsOk() || res.Value.Int != 105 {
		t.Fatalf("got %+v", res)
	}
}

func TestUnknownBuiltinIsError(t *testing.T) {
	ip, reg := newTestInterp(t)
	res := ip.Eval(&ir.Node{Kind: ir.KindBuiltin, Name: "nope.nope", Locations: at(3)}, env.New(), reg)
	if res.Kind != ir.Error || res.Message != "UnknownBuiltin: nope.nope" {
		t.Fatalf("got %+v", res)
	}
}

func TestOptionalPlatformMissingYieldsNull(t *testing.T) {
	ip, reg := newTestInterp(t)
	res := ip.Eval(&ir.Node{Kind: ir.KindPlatform, Name: "fs.read", Optional: true}, env.New(), reg)
	if !res.IsOk() || res.Value.Kind != values.KindNull {
		t.Fatalf("got %+v", res)
	}
}

func TestRequiredPlatformMissingIsError(t *testing.T) {
	ip, reg := newTestInterp(t)
	res := ip.Eval(&ir.Node{Kind: ir.KindPlatform, Name: "fs.read"}, env.New(), reg)
	if res.Kind != ir.Error || res.Message != "UnknownPlatformFunction: fs.read" {
		t.Fatalf("got %+v", res)
	}
}

func TestMatchBindsPayloadAndNoMatchIsError(t *testing.T) {
	ip, reg := newTestInterp(t)
	variantType := types.NewVariant([]types.VariantCase{
		{Name: "Some", Type: types.Integer},
		{Name: "None", Type: types.Null},
	})
	some := values.NewVariant(variantType, "Some", values.Integer(7))

	matched := &ir.Node{
		Kind: ir.KindMatch,
		Expr: val(some),
		Cases: []ir.MatchCase{
			{CaseName: "Some", BindName: "n", Body: &ir.Node{Kind: ir.KindVariable, Name: "n"}},
			{CaseName: "None", Body: val(values.Integer(-1))},
		},
	}
	res := ip.Eval(matched, env.New(), reg)
	if !res.IsOk() || res.Value.Int != 7 {
		t.Fatalf("got %+v", res)
	}

	none := values.NewVariant(variantType, "None", values.Null())
	unmatched := &ir.Node{
		Kind: ir.KindMatch,
		Expr: val(none),
		Cases: []ir.MatchCase{
			{CaseName: "Some", BindName: "n", Body: &ir.Node{Kind: ir.KindVariable, Name: "n"}},
		},
	}
	res = ip.Eval(unmatched, env.New(), reg)
	if res.Kind != ir.Error {
		t.Fatalf("expected NoMatchingCase, got %+v", res)
	}
}
