package clone

import (
	"testing"

	"github.com/silcore/compiler/ident"
	"github.com/silcore/compiler/ir"
	"github.com/silcore/compiler/ir/build"
	"github.com/silcore/compiler/types"
)

// genericIdentity builds `func identity<T>(_ x: T) -> T { return x }` as an
// ir.Function with one Archetype-typed generic parameter, the shape the
// specializer (passes/specialize) hands to clone.Function.
func genericIdentity(ctx *types.Context, in *ident.Interner) *ir.Function {
	param := &types.Archetype{Name: in.Intern("T"), ParamDepth: 0, ParamIndex: 0}
	sig := ctx.Func(param, param, 0)
	fn := &ir.Function{
		Name_:         "identity",
		Signature:     sig,
		GenericParams: []ir.GenericParam{{Name: "T", Depth: 0, Index: 0}},
	}
	b := build.New(fn)
	entry := b.NewBlock("entry")
	b.SetBlock(entry)
	entry.Args = append(entry.Args, ir.NewArgument("x", param))
	b.Return(entry.Args[0])
	return fn
}

func TestFunctionSpecializesArchetype(t *testing.T) {
	ctx := types.NewContext()
	in := ident.NewInterner()
	fn := genericIdentity(ctx, in)

	intT := &types.Nominal{Kind: types.Struct, Name: in.Intern("Int")}
	subst := types.NewSubstitution()
	subst.Bind(0, 0, intT)

	specialized := Function(fn, subst, ctx, "$s8identity_Ti")

	if specialized.IsGeneric() {
		t.Errorf("specialized function still reports GenericParams")
	}
	if specialized.Linkage != ir.Shared {
		t.Errorf("specialized function Linkage = %s, want shared", specialized.Linkage)
	}
	sig := specialized.Signature
	if sig.Input != intT || sig.Result != intT {
		t.Errorf("specialized signature = (%s) -> %s, want (Int) -> Int", sig.Input, sig.Result)
	}

	entry := specialized.Entry()
	if len(entry.Args) != 1 || entry.Args[0].Type() != intT {
		t.Fatalf("specialized entry block argument type = %v, want Int", entry.Args)
	}
	ret, ok := entry.Terminator().(*ir.Return)
	if !ok {
		t.Fatalf("specialized entry terminator is not a Return")
	}
	if ret.Operand != ir.Value(entry.Args[0]) {
		t.Errorf("specialized Return operand was not rewired to the cloned block argument")
	}
}

// genericArrayAlloc builds a generic function that allocates an array of
// its generic element type, so cloning must rewire both the array
// instruction's result type and its Count operand.
func genericArrayAlloc(ctx *types.Context, in *ident.Interner) *ir.Function {
	param := &types.Archetype{Name: in.Intern("T"), ParamDepth: 0, ParamIndex: 0}
	arrayParam := &types.BoundGenericNominal{Base: &types.Nominal{Kind: types.Struct, Name: in.Intern("Array")}, Args: []types.Type{param}}
	intT := &types.Nominal{Kind: types.Struct, Name: in.Intern("Int")}
	sig := ctx.Func(intT, intT, 0)
	fn := &ir.Function{
		Name_:         "makeArray",
		Signature:     sig,
		GenericParams: []ir.GenericParam{{Name: "T", Depth: 0, Index: 0}},
	}
	b := build.New(fn)
	entry := b.NewBlock("entry")
	b.SetBlock(entry)
	count := b.AllocStack(intT)
	arr := b.AllocArray(arrayParam, count)
	b.DeallocArray(arr)
	countVal := b.Load(count, intT)
	b.Return(countVal)
	return fn
}

func TestFunctionClonesAllocArrayAndDeallocArray(t *testing.T) {
	ctx := types.NewContext()
	in := ident.NewInterner()
	fn := genericArrayAlloc(ctx, in)

	intT := &types.Nominal{Kind: types.Struct, Name: in.Intern("Int")}
	subst := types.NewSubstitution()
	subst.Bind(0, 0, intT)

	specialized := Function(fn, subst, ctx, "$s9makeArray_Ti")

	entry := specialized.Entry()
	var arr *ir.AllocArray
	var dealloc *ir.DeallocArray
	for _, instr := range entry.Instrs {
		switch v := instr.(type) {
		case *ir.AllocArray:
			arr = v
		case *ir.DeallocArray:
			dealloc = v
		}
	}
	if arr == nil {
		t.Fatalf("specialized body has no AllocArray instruction")
	}
	wantType := &types.BoundGenericNominal{Base: &types.Nominal{Kind: types.Struct, Name: in.Intern("Array")}, Args: []types.Type{intT}}
	if !types.Identical(arr.Type(), wantType) {
		t.Errorf("specialized AllocArray.Type() = %v, want %v", arr.Type(), wantType)
	}
	if _, ok := arr.Count.(*ir.AllocStack); !ok {
		t.Errorf("specialized AllocArray.Count was not rewired to the cloned AllocStack, got %T", arr.Count)
	}
	if dealloc == nil {
		t.Fatalf("specialized body has no DeallocArray instruction")
	}
	if dealloc.Operand != ir.Value(arr) {
		t.Errorf("specialized DeallocArray.Operand was not rewired to the cloned AllocArray")
	}
}

func TestFunctionPanicsOnNonGeneric(t *testing.T) {
	ctx := types.NewContext()
	in := ident.NewInterner()
	intT := &types.Nominal{Kind: types.Struct, Name: in.Intern("Int")}
	sig := ctx.Func(intT, intT, 0)
	fn := &ir.Function{Name_: "f", Signature: sig}

	defer func() {
		if recover() == nil {
			t.Errorf("cloning a non-generic function did not panic")
		}
	}()
	Function(fn, types.NewSubstitution(), ctx, "f$specialized")
}
