package verify

import (
	"testing"

	"github.com/silcore/compiler/ident"
	"github.com/silcore/compiler/ir"
	"github.com/silcore/compiler/ir/build"
	"github.com/silcore/compiler/types"
)

func intType(in *ident.Interner) *types.Nominal {
	return &types.Nominal{Kind: types.Struct, Name: in.Intern("Int")}
}

func TestFunctionWellFormedHasNoErrors(t *testing.T) {
	ctx := types.NewContext()
	in := ident.NewInterner()
	intT := intType(in)
	sig := ctx.Func(intT, intT, 0)
	fn := &ir.Function{Name_: "id", Signature: sig}

	b := build.New(fn)
	entry := b.NewBlock("entry")
	b.SetBlock(entry)
	alloc := b.AllocStack(intT)
	val := b.Load(alloc, intT)
	b.Return(val)

	if errs := Function(fn); len(errs) != 0 {
		t.Fatalf("well-formed function reported errors: %v", errs)
	}
}

func TestFunctionDeclarationIsValid(t *testing.T) {
	fn := &ir.Function{Name_: "extern_fn"}
	if errs := Function(fn); len(errs) != 0 {
		t.Errorf("declaration (no body) reported errors: %v", errs)
	}
}

func TestFunctionMissingTerminatorReported(t *testing.T) {
	ctx := types.NewContext()
	in := ident.NewInterner()
	intT := intType(in)
	sig := ctx.Func(intT, intT, 0)
	fn := &ir.Function{Name_: "f", Signature: sig}

	b := build.New(fn)
	entry := b.NewBlock("entry")
	b.SetBlock(entry)
	b.AllocStack(intT)

	errs := Function(fn)
	if len(errs) == 0 {
		t.Fatalf("block with no terminator reported no errors")
	}
}

func TestFunctionUnreachableBlockReported(t *testing.T) {
	ctx := types.NewContext()
	in := ident.NewInterner()
	intT := intType(in)
	sig := ctx.Func(intT, intT, 0)
	fn := &ir.Function{Name_: "f", Signature: sig}

	b := build.New(fn)
	entry := b.NewBlock("entry")
	orphan := fn.NewBlock("orphan")
	b.SetBlock(entry)
	b.Return(nil)
	b.SetBlock(orphan)
	b.Return(nil)

	errs := Function(fn)
	found := false
	for _, e := range errs {
		if e.Block == "orphan" {
			found = true
		}
	}
	if !found {
		t.Errorf("unreachable non-entry block was not reported, got %v", errs)
	}
}

func TestModuleReportsOnlyFailingFunctions(t *testing.T) {
	ctx := types.NewContext()
	in := ident.NewInterner()
	intT := intType(in)
	sig := ctx.Func(intT, intT, 0)
	m := ir.NewModule(ctx)

	good := &ir.Function{Name_: "good", Signature: sig, Module: m}
	gb := build.New(good)
	ge := gb.NewBlock("entry")
	gb.SetBlock(ge)
	gb.Return(nil)
	m.Functions["good"] = good

	bad := &ir.Function{Name_: "bad", Signature: sig, Module: m}
	bb := build.New(bad)
	be := bb.NewBlock("entry")
	bb.SetBlock(be)
	bb.AllocStack(intT) // never terminated
	m.Functions["bad"] = bad

	results := Module(m)
	if _, ok := results["good"]; ok {
		t.Errorf("well-formed function %q reported in Module results", "good")
	}
	if _, ok := results["bad"]; !ok {
		t.Errorf("malformed function %q missing from Module results", "bad")
	}
}
