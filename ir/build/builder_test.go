package build

import (
	"testing"

	"github.com/silcore/compiler/ident"
	"github.com/silcore/compiler/ir"
	"github.com/silcore/compiler/types"
)

func intType(in *ident.Interner) *types.Nominal {
	return &types.Nominal{Kind: types.Struct, Name: in.Intern("Int")}
}

func TestBuilderLinearBlock(t *testing.T) {
	ctx := types.NewContext()
	in := ident.NewInterner()
	intT := intType(in)
	sig := ctx.Func(intT, intT, 0)
	fn := &ir.Function{Name_: "id", Signature: sig}

	b := New(fn)
	entry := b.NewBlock("entry")
	b.SetBlock(entry)

	alloc := b.AllocStack(intT)
	val := b.Load(alloc, intT)
	b.Return(val)

	if len(entry.Instrs) != 3 {
		t.Fatalf("expected 3 instructions, got %d", len(entry.Instrs))
	}
	if entry.Terminator() == nil {
		t.Errorf("block was not terminated")
	}
	if alloc.Name() != "%0" || val.Name() != "%1" {
		t.Errorf("register numbering not deterministic: alloc=%s val=%s", alloc.Name(), val.Name())
	}
}

func TestBuilderAllocArrayAndDealloc(t *testing.T) {
	ctx := types.NewContext()
	in := ident.NewInterner()
	intT := intType(in)
	arrayT := &types.BoundGenericNominal{Base: &types.Nominal{Kind: types.Struct, Name: in.Intern("Array")}, Args: []types.Type{intT}}
	sig := ctx.Func(intT, intT, 0)
	fn := &ir.Function{Name_: "make", Signature: sig}

	b := New(fn)
	entry := b.NewBlock("entry")
	b.SetBlock(entry)

	count := b.AllocStack(intT)
	arr := b.AllocArray(arrayT, count)
	if arr.Count != count {
		t.Errorf("AllocArray.Count = %v, want %v", arr.Count, count)
	}
	if !types.Identical(arr.Type(), arrayT) {
		t.Errorf("AllocArray.Type() = %v, want %v", arr.Type(), arrayT)
	}
	b.DeallocArray(arr)
	idx := b.AllocStack(intT)
	b.Return(idx)

	if len(entry.Instrs) != 5 {
		t.Fatalf("expected 5 instructions, got %d", len(entry.Instrs))
	}
	if _, ok := entry.Instrs[2].(*ir.DeallocArray); !ok {
		t.Errorf("third instruction = %T, want *ir.DeallocArray", entry.Instrs[2])
	}
}

func TestBuilderDoubleTerminatorPanics(t *testing.T) {
	ctx := types.NewContext()
	in := ident.NewInterner()
	intT := intType(in)
	sig := ctx.Func(intT, intT, 0)
	fn := &ir.Function{Name_: "f", Signature: sig}

	b := New(fn)
	entry := b.NewBlock("entry")
	b.SetBlock(entry)
	b.Return(nil)

	defer func() {
		if recover() == nil {
			t.Errorf("emitting after a terminator did not panic")
		}
	}()
	b.Return(nil)
}

func TestBuilderStoreTypeMismatchPanics(t *testing.T) {
	ctx := types.NewContext()
	in := ident.NewInterner()
	intT := intType(in)
	strT := &types.Nominal{Kind: types.Struct, Name: in.Intern("String")}
	sig := ctx.Func(intT, intT, 0)
	fn := &ir.Function{Name_: "f", Signature: sig}

	b := New(fn)
	entry := b.NewBlock("entry")
	b.SetBlock(entry)

	dest := b.AllocStack(intT)
	src := b.AllocStack(strT)

	defer func() {
		if recover() == nil {
			t.Errorf("Store with mismatched operand types did not panic")
		}
	}()
	b.Store(src, dest)
}

func TestBuilderJumpArgMismatchPanics(t *testing.T) {
	ctx := types.NewContext()
	in := ident.NewInterner()
	intT := intType(in)
	sig := ctx.Func(intT, intT, 0)
	fn := &ir.Function{Name_: "f", Signature: sig}

	b := New(fn)
	entry := b.NewBlock("entry")
	target := fn.NewBlock("target")
	target.Args = append(target.Args, ir.NewArgument("x", intT))
	b.SetBlock(entry)

	defer func() {
		if recover() == nil {
			t.Errorf("Jump with wrong argument count did not panic")
		}
	}()
	b.Jump(target, nil)
}

func TestBuilderCondBranchWiresSuccessorsAndPreds(t *testing.T) {
	ctx := types.NewContext()
	in := ident.NewInterner()
	intT := intType(in)
	sig := ctx.Func(intT, intT, 0)
	fn := &ir.Function{Name_: "f", Signature: sig}

	b := New(fn)
	entry := b.NewBlock("entry")
	then := b.NewBlock("then")
	els := b.NewBlock("else")
	b.SetBlock(entry)

	cond := b.AllocStack(intT)
	b.CondBranch(cond, then, els, nil, nil)

	if len(entry.Succs) != 2 {
		t.Fatalf("expected 2 successors, got %d", len(entry.Succs))
	}
	if len(then.Preds) != 1 || then.Preds[0] != entry {
		t.Errorf("then block does not list entry as predecessor")
	}
	if len(els.Preds) != 1 || els.Preds[0] != entry {
		t.Errorf("else block does not list entry as predecessor")
	}
}
