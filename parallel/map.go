// Package parallel implements the parallel map worker (spec component
// I): fan a pure function and an array chunk out to OS threads via the
// Compact codec, apply the function per element, and join results back
// into a single array, with a sequential fallback below a small
// threshold. The fan-out-then-errgroup.Wait shape follows
// golang.org/x/sync/errgroup's own documented usage, the same dependency
// the rest of this module already carries.
package parallel

import (
	"runtime"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/elaraai/east/codec"
	"github.com/elaraai/east/ir"
	"github.com/elaraai/east/registry"
	"github.com/elaraai/east/types"
	"github.com/elaraai/east/values"
)

// SequentialThreshold is the array length at or below which Map runs in
// the caller's goroutine instead of fanning out to workers.
const SequentialThreshold = 4

// Caller abstracts the one interpreter operation Map needs: applying a
// decoded function value to one argument list. Satisfied by
// *interp.Interpreter.CallFunction.
type Caller interface {
	CallFunction(fn values.Value, args []values.Value) ir.EvalResult
}

// Map applies fn (a Function value of descriptor `(elemType) -> resultType`)
// to every element of arr (an Array of elemType), returning a new Array of
// resultType. ip is used both for the sequential fallback and by each
// spawned worker, which calls ip.CallFunction on the closure it decoded
// from the Compact bytes, so the sequential path and the worker path
// exercise the exact same application logic.
func Map(ip Caller, arr values.Value, fn values.Value, elemType, resultType *types.Descriptor, reg *registry.Context, log *zap.SugaredLogger) (values.Value, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	n := arr.Len()
	if n <= SequentialThreshold {
		return mapSequential(ip, arr, fn, resultType)
	}

	workers := runtime.NumCPU()
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}
	chunkSize := (n + workers - 1) / workers

	funcType := types.NewFunction([]*types.Descriptor{elemType}, resultType)
	fnBytes, err := codec.EncodeCompact(fn, funcType)
	if err != nil {
		return values.Value{}, errors.Wrap(err, "parallel: encoding function value")
	}

	arrayOfElem := types.NewArray(elemType)
	arrayOfResult := types.NewArray(resultType)

	type chunk struct {
		start int
		bytes []byte
	}
	var chunks []chunk
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		items := make([]values.Value, end-start)
		for i := start; i < end; i++ {
			items[i-start] = arr.At(i)
		}
		chunkBytes, err := codec.EncodeCompact(values.NewArray(elemType, items), arrayOfElem)
		if err != nil {
			return values.Value{}, errors.Wrap(err, "parallel: encoding chunk")
		}
		chunks = append(chunks, chunk{start: start, bytes: chunkBytes})
	}

	log.Debugw("parallel map starting", "length", n, "workers", len(chunks), "chunkSize", chunkSize)

	results := make([][]values.Value, len(chunks))
	g := new(errgroup.Group)
	for i, c := range chunks {
		i, c := i, c
		g.Go(func() error {
			fnVal, err := codec.DecodeCompactWithRegistry(fnBytes, funcType, reg)
			if err != nil {
				return errors.Wrap(err, "parallel: decoding function in worker")
			}
			chunkVal, err := codec.DecodeCompactWithRegistry(c.bytes, arrayOfElem, reg)
			if err != nil {
				return errors.Wrap(err, "parallel: decoding chunk in worker")
			}
			out := make([]values.Value, chunkVal.Len())
			for j := 0; j < chunkVal.Len(); j++ {
				res := ip.CallFunction(fnVal, []values.Value{chunkVal.At(j)})
				if res.Kind == ir.Error {
					return errors.Errorf("parallel: %s", res.Message)
				}
				if res.Kind != ir.Ok {
					return errors.Errorf("parallel: function body did not return a value (kind %v)", res.Kind)
				}
				out[j] = res.Value
			}
			// Round-trip each worker's chunk through Compact, matching the
			// contract's "compact-encodes the result array" step, even
			// though this in-process implementation could hand back out
			// directly — this is what keeps the worker boundary codec-
			// shaped so a future out-of-process worker is a drop-in swap.
			encoded, err := codec.EncodeCompact(values.NewArray(resultType, out), arrayOfResult)
			if err != nil {
				return errors.Wrap(err, "parallel: encoding worker result")
			}
			decoded, err := codec.DecodeCompact(encoded, arrayOfResult)
			if err != nil {
				return errors.Wrap(err, "parallel: decoding worker result")
			}
			items := make([]values.Value, decoded.Len())
			for j := 0; j < decoded.Len(); j++ {
				items[j] = decoded.At(j)
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return values.Value{}, err
	}

	out := make([]values.Value, 0, n)
	for _, r := range results {
		out = append(out, r...)
	}
	return values.NewArray(resultType, out), nil
}

func mapSequential(ip Caller, arr values.Value, fn values.Value, resultType *types.Descriptor) (values.Value, error) {
	out := make([]values.Value, arr.Len())
	for i := 0; i < arr.Len(); i++ {
		res := ip.CallFunction(fn, []values.Value{arr.At(i)})
		if res.Kind == ir.Error {
			return values.Value{}, errors.Errorf("parallel: %s", res.Message)
		}
		if res.Kind != ir.Ok {
			return values.Value{}, errors.Errorf("parallel: function body did not return a value (kind %v)", res.Kind)
		}
		out[i] = res.Value
	}
	return values.NewArray(resultType, out), nil
}
