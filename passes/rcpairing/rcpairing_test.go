package rcpairing

import (
	"testing"

	"github.com/silcore/compiler/ident"
	"github.com/silcore/compiler/ir"
	"github.com/silcore/compiler/ir/build"
	"github.com/silcore/compiler/passmgr"
	"github.com/silcore/compiler/types"
)

func newTestManager(t *testing.T) *passmgr.Manager {
	t.Helper()
	mod := ir.NewModule(types.NewContext())
	return passmgr.New(mod, passmgr.Options{})
}

func intType(t *testing.T) types.Type {
	t.Helper()
	in := ident.NewInterner()
	return &types.Nominal{Kind: types.Struct, Name: in.Intern("Int")}
}

func newFunc(t *testing.T, name string) (*ir.Function, *build.Builder) {
	t.Helper()
	ctx := types.NewContext()
	intT := intType(t)
	fn := &ir.Function{Name_: name, Signature: ctx.Func(intT, intT, 0)}
	b := build.New(fn)
	entry := b.NewBlock("entry")
	b.SetBlock(entry)
	entry.Args = append(entry.Args, ir.NewArgument("x", intT))
	return fn, b
}

func TestBottomUpPairsRetainRelease(t *testing.T) {
	fn, b := newFunc(t, "f")
	x := b.Block().Args[0]
	b.StrongRetain(x)
	retain := b.Block().Instrs[len(b.Block().Instrs)-1]
	b.StrongRelease(x)
	b.Return(x)

	pairs := BottomUp(fn, BottomUpOptions{})
	pair, ok := pairs[retain]
	if !ok {
		t.Fatalf("no pairing recorded for retain instruction")
	}
	if pair.Root != x {
		t.Errorf("pair.Root = %v, want %v", pair.Root, x)
	}
	if pair.NestingDetected {
		t.Errorf("unexpected nesting detected for a single retain/release")
	}
}

func TestBottomUpClearsStateAcrossAutoreleasePoolCall(t *testing.T) {
	fn, b := newFunc(t, "f")
	x := b.Block().Args[0]
	b.StrongRetain(x)
	retain := b.Block().Instrs[len(b.Block().Instrs)-1]
	b.AutoreleasePoolCall()
	b.StrongRelease(x)
	b.Return(x)

	pairs := BottomUp(fn, BottomUpOptions{})
	if _, ok := pairs[retain]; ok {
		t.Errorf("retain paired with a release across an autorelease pool call")
	}
}

func TestBottomUpFreezesEpilogueRelease(t *testing.T) {
	fn, b := newFunc(t, "f")
	x := b.Block().Args[0]
	b.StrongRetain(x)
	retain := b.Block().Instrs[len(b.Block().Instrs)-1]
	b.StrongRelease(x)
	b.Return(x)

	pairs := BottomUp(fn, BottomUpOptions{FreezeOwnedArgEpilogueReleases: true})
	if _, ok := pairs[retain]; ok {
		t.Errorf("retain paired with a release frozen as a known-safe epilogue release")
	}
}

func TestTopDownMatchesEntranceArgumentToRelease(t *testing.T) {
	fn, b := newFunc(t, "f")
	x := b.Block().Args[0]
	b.StrongRelease(x)
	release := b.Block().Instrs[len(b.Block().Instrs)-1]
	b.Return(x)

	pairs := TopDown(fn)
	pair, ok := pairs[release]
	if !ok {
		t.Fatalf("no pairing recorded for release instruction")
	}
	if pair.IncrementArg != x {
		t.Errorf("pair.IncrementArg = %v, want entry argument %v", pair.IncrementArg, x)
	}
	if pair.IncrementInstr != nil {
		t.Errorf("pair.IncrementInstr = %v, want nil for a StrongEntrance match", pair.IncrementInstr)
	}
}

func TestTopDownPropagatesAcrossBlocks(t *testing.T) {
	fn, b := newFunc(t, "f")
	x := b.Block().Args[0]
	b.StrongRetain(x)
	retain := b.Block().Instrs[len(b.Block().Instrs)-1]
	next := b.NewBlock("next")
	b.Jump(next, nil)
	b.SetBlock(next)
	b.StrongRelease(x)
	release := b.Block().Instrs[len(b.Block().Instrs)-1]
	b.Return(x)

	pairs := TopDown(fn)
	pair, ok := pairs[release]
	if !ok {
		t.Fatalf("no pairing recorded across a block boundary")
	}
	if pair.IncrementInstr != retain {
		t.Errorf("pair.IncrementInstr = %v, want %v", pair.IncrementInstr, retain)
	}
}

func TestTransformPublishesAnalysisWithoutMutating(t *testing.T) {
	fn, b := newFunc(t, "f")
	x := b.Block().Args[0]
	b.StrongRetain(x)
	b.StrongRelease(x)
	b.Return(x)
	before := len(fn.Entry().Instrs)

	mgr := newTestManager(t)
	tr := Transform{}
	if tr.Run(mgr, fn) {
		t.Errorf("Transform.Run reported a mutation; rcpairing only analyzes")
	}
	if len(fn.Entry().Instrs) != before {
		t.Errorf("Transform.Run changed the function's instruction count")
	}

	raw, ok := mgr.Analysis(AnalysisKey)
	if !ok {
		t.Fatalf("no analysis registered under %q", AnalysisKey)
	}
	byFunc := raw.(map[*ir.Function]Result)
	if _, ok := byFunc[fn]; !ok {
		t.Errorf("no Result recorded for the analyzed function")
	}
}
