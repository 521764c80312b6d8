package passmgr

import (
	"testing"

	"github.com/silcore/compiler/ident"
	"github.com/silcore/compiler/ir"
	"github.com/silcore/compiler/ir/build"
	"github.com/silcore/compiler/ir/verify"
	"github.com/silcore/compiler/types"
)

func wellFormedFunction(ctx *types.Context, in *ident.Interner, name string, m *ir.Module) *ir.Function {
	intT := &types.Nominal{Kind: types.Struct, Name: in.Intern("Int")}
	sig := ctx.Func(intT, intT, 0)
	fn := &ir.Function{Name_: name, Signature: sig, Module: m}
	b := build.New(fn)
	entry := b.NewBlock("entry")
	b.SetBlock(entry)
	b.Return(nil)
	m.Functions[name] = fn
	return fn
}

// countingTransform changes on its first `limit` invocations per
// function, then reports no change — enough to drive a bounded number of
// "another iteration" rounds.
type countingTransform struct {
	name  string
	calls map[*ir.Function]int
	limit int
}

func newCountingTransform(name string, limit int) *countingTransform {
	return &countingTransform{name: name, calls: make(map[*ir.Function]int), limit: limit}
}

func (t *countingTransform) Name() string { return t.name }

func (t *countingTransform) Run(mgr *Manager, fn *ir.Function) bool {
	t.calls[fn]++
	return t.calls[fn] <= t.limit
}

func TestRunReachesFixedPoint(t *testing.T) {
	ctx := types.NewContext()
	in := ident.NewInterner()
	m := ir.NewModule(ctx)
	wellFormedFunction(ctx, in, "f", m)

	transform := newCountingTransform("shrink", 2)
	mgr := New(m, Options{})
	mgr.ResetTransforms([]interface{}{FunctionTransform(transform)})
	mgr.Run()

	if mgr.NumIterations() != 3 {
		t.Errorf("NumIterations() = %d, want 3 (2 changed + 1 no-change)", mgr.NumIterations())
	}
}

func TestRunRespectsIterationCap(t *testing.T) {
	ctx := types.NewContext()
	in := ident.NewInterner()
	m := ir.NewModule(ctx)
	wellFormedFunction(ctx, in, "f", m)

	transform := newCountingTransform("loop_forever", 1000)
	mgr := New(m, Options{})
	mgr.ResetTransforms([]interface{}{FunctionTransform(transform)})
	mgr.Run()

	if mgr.NumIterations() != iterationLimit {
		t.Errorf("NumIterations() = %d, want the iteration cap %d", mgr.NumIterations(), iterationLimit)
	}
}

type moduleCountingTransform struct {
	name  string
	calls int
	limit int
}

func (t *moduleCountingTransform) Name() string { return t.name }
func (t *moduleCountingTransform) Run(mgr *Manager, mod *ir.Module) bool {
	t.calls++
	return t.calls <= t.limit
}

func TestModuleTransformFlushesPendingFunctionTransforms(t *testing.T) {
	ctx := types.NewContext()
	in := ident.NewInterner()
	m := ir.NewModule(ctx)
	wellFormedFunction(ctx, in, "f", m)

	funcT := newCountingTransform("func_pass", 1)
	modT := &moduleCountingTransform{name: "mod_pass", limit: 1}

	mgr := New(m, Options{})
	mgr.ResetTransforms([]interface{}{FunctionTransform(funcT), ModuleTransform(modT)})
	mgr.Run()

	if funcT.calls[m.Functions["f"]] == 0 {
		t.Errorf("function transform was never invoked before the module transform")
	}
	if modT.calls == 0 {
		t.Errorf("module transform was never invoked")
	}
}

func TestPassCountCapHaltsAtCanonicalStage(t *testing.T) {
	ctx := types.NewContext()
	in := ident.NewInterner()
	m := ir.NewModule(ctx)
	wellFormedFunction(ctx, in, "f", m)
	wellFormedFunction(ctx, in, "g", m)

	transform := newCountingTransform("always_changes", 1000)
	mgr := New(m, Options{NumOptPassesToRun: 1})
	mgr.Stage = Canonical
	mgr.ResetTransforms([]interface{}{FunctionTransform(transform)})
	mgr.Run()

	if mgr.NumPassesRun() > 2 {
		t.Errorf("NumPassesRun() = %d, expected the cap to halt execution near 1", mgr.NumPassesRun())
	}
}

func TestVerifyAllInvokesFailureHook(t *testing.T) {
	ctx := types.NewContext()
	in := ident.NewInterner()
	m := ir.NewModule(ctx)
	wellFormedFunction(ctx, in, "f", m)

	// breakIt removes the terminator, making the function ill-formed, and
	// reports a change so onChange's verify path runs.
	breakIt := breakingTransform{}

	var failed bool
	mgr := New(m, Options{VerifyAll: true})
	mgr.OnVerifyFailed = func(event ChangeEvent, errs []*verify.Error) { failed = true }
	mgr.ResetTransforms([]interface{}{FunctionTransform(breakIt)})
	mgr.Run()

	if !failed {
		t.Errorf("VerifyAll did not invoke OnVerifyFailed for a broken function")
	}
}

type breakingTransform struct{}

func (breakingTransform) Name() string { return "break" }
func (breakingTransform) Run(mgr *Manager, fn *ir.Function) bool {
	fn.Entry().Instrs = nil
	return true
}
