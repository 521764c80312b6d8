package ir

import (
	"testing"

	"github.com/silcore/compiler/ident"
	"github.com/silcore/compiler/types"
)

func TestTransitionExternalIdempotent(t *testing.T) {
	for _, l := range []Linkage{Public, Hidden, Shared, Private, PublicExternal, HiddenExternal} {
		once := TransitionExternal(l)
		twice := TransitionExternal(once)
		if once != twice {
			t.Errorf("TransitionExternal(%s) = %s, applying again = %s; want idempotent", l, once, twice)
		}
	}
}

func TestTransitionExternalMapping(t *testing.T) {
	cases := []struct{ in, want Linkage }{
		{Public, PublicExternal},
		{Hidden, HiddenExternal},
		{Shared, Shared},
		{Private, Private},
		{PublicExternal, PublicExternal},
		{HiddenExternal, HiddenExternal},
	}
	for _, c := range cases {
		if got := TransitionExternal(c.in); got != c.want {
			t.Errorf("TransitionExternal(%s) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestIsExternal(t *testing.T) {
	for _, l := range []Linkage{PublicExternal, HiddenExternal} {
		if !l.IsExternal() {
			t.Errorf("%s.IsExternal() = false, want true", l)
		}
	}
	for _, l := range []Linkage{Public, Hidden, Shared, Private} {
		if l.IsExternal() {
			t.Errorf("%s.IsExternal() = true, want false", l)
		}
	}
}

func intType(ctx *types.Context, in *ident.Interner) *types.Nominal {
	return &types.Nominal{Kind: types.Struct, Name: in.Intern("Int")}
}

func TestUniqueTypeListDedup(t *testing.T) {
	ctx := types.NewContext()
	m := NewModule(ctx)
	in := ident.NewInterner()
	intT := intType(ctx, in)

	list1 := m.UniqueTypeList([]types.Type{intT, intT})
	list2 := m.UniqueTypeList([]types.Type{intT, intT})

	if &list1[0] != &list2[0] {
		t.Errorf("UniqueTypeList did not return the same cached slice for structurally identical lists")
	}
}

func TestGetOrCreateSharedIdempotent(t *testing.T) {
	ctx := types.NewContext()
	m := NewModule(ctx)
	in := ident.NewInterner()
	intT := intType(ctx, in)
	sig := ctx.Func(intT, intT, 0)

	f1 := m.GetOrCreateShared("$specialize.foo", sig, false, false)
	f2 := m.GetOrCreateShared("$specialize.foo", sig, false, false)
	if f1 != f2 {
		t.Errorf("GetOrCreateShared returned distinct Functions for the same name")
	}
	if f1.Linkage != Shared {
		t.Errorf("GetOrCreateShared Linkage = %s, want shared", f1.Linkage)
	}
}

func TestGetOrCreateSharedMismatchPanics(t *testing.T) {
	ctx := types.NewContext()
	m := NewModule(ctx)
	in := ident.NewInterner()
	intT := intType(ctx, in)
	strT := &types.Nominal{Kind: types.Struct, Name: in.Intern("String")}
	sig1 := ctx.Func(intT, intT, 0)
	sig2 := ctx.Func(strT, strT, 0)

	m.GetOrCreateShared("$specialize.foo", sig1, false, false)

	defer func() {
		if recover() == nil {
			t.Errorf("GetOrCreateShared with mismatched signature did not panic")
		}
	}()
	m.GetOrCreateShared("$specialize.foo", sig2, false, false)
}

func TestBasicBlockTerminator(t *testing.T) {
	ctx := types.NewContext()
	m := NewModule(ctx)
	in := ident.NewInterner()
	intT := intType(ctx, in)
	sig := ctx.Func(intT, intT, 0)
	fn := &Function{Name_: "f", Signature: sig, Module: m}
	b := fn.NewBlock("entry")

	if b.Terminator() != nil {
		t.Errorf("empty block reports a terminator")
	}

	b.Emit(NewAllocStack("%0", intT))
	if b.Terminator() != nil {
		t.Errorf("block with only a non-terminator reports a terminator")
	}

	ret := NewReturn(nil)
	b.Emit(ret)
	if b.Terminator() != Instruction(ret) {
		t.Errorf("Terminator() did not return the Return instruction")
	}
}

func TestFunctionRefCounting(t *testing.T) {
	fn := &Function{Name_: "f"}
	if fn.RefCount() != 0 {
		t.Fatalf("new Function has non-zero ref count")
	}
	fn.DecRef() // must not go negative
	if fn.RefCount() != 0 {
		t.Errorf("DecRef on a zero ref count went negative")
	}
	fn.IncRef()
	fn.IncRef()
	if fn.RefCount() != 2 {
		t.Errorf("RefCount() = %d, want 2", fn.RefCount())
	}
	fn.DecRef()
	if fn.RefCount() != 1 {
		t.Errorf("RefCount() = %d, want 1", fn.RefCount())
	}
}

func TestFunctionIsDeclaration(t *testing.T) {
	fn := &Function{Name_: "f"}
	if !fn.IsDeclaration() {
		t.Errorf("Function with no blocks is not reported as a declaration")
	}
	fn.NewBlock("entry")
	if fn.IsDeclaration() {
		t.Errorf("Function with a block is reported as a declaration")
	}
}
