package serialize

import (
	"bytes"
	"context"
	"testing"

	"github.com/silcore/compiler/ident"
	"github.com/silcore/compiler/ir"
	"github.com/silcore/compiler/types"
)

func testIntType(in *ident.Interner) *types.Nominal {
	return &types.Nominal{Kind: types.Struct, Name: in.Intern("Int")}
}

// buildModule returns a module with two functions: "id", Public and
// Transparent (so the emission heuristic always keeps its body), and
// "helper", Private, called from "id" via a FunctionRef+Apply (so the
// heuristic's transitive-closure rule is what keeps helper's body, not
// its own linkage).
func buildModule(t *testing.T) (*ir.Module, *ident.Interner) {
	t.Helper()
	ctx := types.NewContext()
	in := ident.NewInterner()
	intT := testIntType(in)
	sig := ctx.Func(intT, intT, 0)

	mod := ir.NewModule(ctx)

	helper := &ir.Function{Name_: "helper", Signature: sig, Linkage: ir.Private, Module: mod}
	hb := helper.NewBlock("entry")
	harg := ir.NewArgument("%0", intT)
	hb.Args = append(hb.Args, harg)
	hb.Emit(ir.NewReturn(harg))
	mod.Functions["helper"] = helper

	id := &ir.Function{Name_: "id", Signature: sig, Linkage: ir.Public, Transparent: true, Module: mod}
	b := id.NewBlock("entry")
	arg := ir.NewArgument("%0", intT)
	b.Args = append(b.Args, arg)
	ref := ir.NewFunctionRef("%1", helper)
	b.Emit(ref)
	apply := ir.NewApply("%2", ref, []ir.Value{arg}, nil, intT)
	b.Emit(apply)
	b.Emit(ir.NewReturn(apply))
	mod.Functions["id"] = id

	return mod, in
}

func TestRoundTripEmissionHeuristicTransitiveClosure(t *testing.T) {
	mod, _ := buildModule(t)

	var buf bytes.Buffer
	opts := Options{ModuleVersion: ModuleVersion{Path: "example.com/m", Version: "v1.0.0"}}
	if err := WriteModule(&buf, mod, opts); err != nil {
		t.Fatalf("WriteModule: %v", err)
	}

	d, err := Open(&buf, mod.Ctx, DeserializeOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if d.Version() != opts.ModuleVersion {
		t.Errorf("Version() = %v, want %v", d.Version(), opts.ModuleVersion)
	}

	id, err := d.LookupFunction("id", true)
	if err != nil {
		t.Fatalf("LookupFunction(id): %v", err)
	}
	if id.IsDeclaration() {
		t.Fatalf("id round-tripped as a declaration, want a body")
	}
	if id.Linkage != ir.PublicExternal {
		t.Errorf("id.Linkage = %v, want PublicExternal (TransitionExternal applied)", id.Linkage)
	}

	// helper is Private, reached only through id's body's FunctionRef:
	// the emission heuristic's transitive closure must have kept its
	// body even though Private alone would not qualify it as a root.
	helper, err := d.LookupFunction("helper", true)
	if err != nil {
		t.Fatalf("LookupFunction(helper): %v", err)
	}
	if helper.IsDeclaration() {
		t.Fatalf("helper round-tripped as a declaration, want a body kept via transitive closure")
	}
	if len(helper.Blocks[0].Instrs) != 1 {
		t.Errorf("helper.Blocks[0].Instrs has %d instructions, want 1 (Return)", len(helper.Blocks[0].Instrs))
	}
}

func TestLazyDeclarationDoesNotParseBody(t *testing.T) {
	mod, _ := buildModule(t)

	var buf bytes.Buffer
	opts := Options{ModuleVersion: ModuleVersion{Path: "example.com/m", Version: "v1.0.0"}}
	if err := WriteModule(&buf, mod, opts); err != nil {
		t.Fatalf("WriteModule: %v", err)
	}

	d, err := Open(&buf, mod.Ctx, DeserializeOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	// A declaration-only lookup of "id" must not force helper's body to
	// be touched: helper's cache entry should still be unread.
	id, err := d.LookupFunction("id", false)
	if err != nil {
		t.Fatalf("LookupFunction(id, false): %v", err)
	}
	if !id.IsDeclaration() {
		t.Fatalf("id loaded with full=false reports a body")
	}
	if entry := d.funcs["helper"]; entry.state != stateUnread {
		t.Errorf("helper cache state = %v after a declaration-only load of id, want stateUnread", entry.state)
	}

	// Asking for id's body now parses id's own blocks only; its
	// FunctionRef loads helper as a declaration (helper's body bytes are
	// present, since the write-time closure kept them, but stay unparsed).
	id, err = d.LookupFunction("id", true)
	if err != nil {
		t.Fatalf("LookupFunction(id, true): %v", err)
	}
	if id.IsDeclaration() {
		t.Fatalf("id still reports no body after a full load")
	}
}

func TestPrivateFunctionNotReferencedDemotesToDeclaration(t *testing.T) {
	ctx := types.NewContext()
	in := ident.NewInterner()
	intT := testIntType(in)
	sig := ctx.Func(intT, intT, 0)
	mod := ir.NewModule(ctx)

	// orphan is Private, never referenced by anything else, and not
	// Transparent/Shared/SerializeAll: the emission heuristic's root
	// set excludes it outright, so it must round-trip as a declaration.
	orphan := &ir.Function{Name_: "orphan", Signature: sig, Linkage: ir.Private, Module: mod}
	b := orphan.NewBlock("entry")
	arg := ir.NewArgument("%0", intT)
	b.Args = append(b.Args, arg)
	b.Emit(ir.NewReturn(arg))
	mod.Functions["orphan"] = orphan

	var buf bytes.Buffer
	if err := WriteModule(&buf, mod, Options{ModuleVersion: ModuleVersion{Path: "m", Version: "v0"}}); err != nil {
		t.Fatalf("WriteModule: %v", err)
	}

	d, err := Open(&buf, ctx, DeserializeOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	fn, err := d.LookupFunction("orphan", true)
	if err != nil {
		t.Fatalf("LookupFunction(orphan, true): %v", err)
	}
	if !fn.IsDeclaration() {
		t.Fatalf("orphan round-tripped with a body, want declaration-only demotion")
	}
}

func TestSerializeAllKeepsEveryBody(t *testing.T) {
	mod, _ := buildModule(t)
	mod.Functions["id"].Transparent = false // would otherwise exclude id without SerializeAll

	var buf bytes.Buffer
	opts := Options{ModuleVersion: ModuleVersion{Path: "m", Version: "v0"}, SerializeAll: true}
	if err := WriteModule(&buf, mod, opts); err != nil {
		t.Fatalf("WriteModule: %v", err)
	}

	d, err := Open(&buf, mod.Ctx, DeserializeOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, name := range []string{"id", "helper"} {
		fn, err := d.LookupFunction(name, true)
		if err != nil {
			t.Fatalf("LookupFunction(%s): %v", name, err)
		}
		if fn.IsDeclaration() {
			t.Errorf("%s round-tripped as a declaration with SerializeAll set", name)
		}
	}
}

func TestAllocArrayDeallocArrayRoundTrip(t *testing.T) {
	ctx := types.NewContext()
	in := ident.NewInterner()
	intT := testIntType(in)
	arrayT := &types.BoundGenericNominal{Base: &types.Nominal{Kind: types.Struct, Name: in.Intern("Array")}, Args: []types.Type{intT}}
	sig := ctx.Func(intT, intT, 0)
	mod := ir.NewModule(ctx)

	fn := &ir.Function{Name_: "makeArray", Signature: sig, Linkage: ir.Public, Module: mod}
	b := fn.NewBlock("entry")
	arg := ir.NewArgument("%0", intT)
	b.Args = append(b.Args, arg)
	count := ir.NewAllocStack("%1", intT)
	b.Emit(count)
	arr := ir.NewAllocArray("%2", arrayT, count)
	b.Emit(arr)
	b.Emit(ir.NewDeallocArray(arr))
	b.Emit(ir.NewReturn(arg))
	mod.Functions["makeArray"] = fn

	var buf bytes.Buffer
	opts := Options{ModuleVersion: ModuleVersion{Path: "m", Version: "v0"}, SerializeAll: true}
	if err := WriteModule(&buf, mod, opts); err != nil {
		t.Fatalf("WriteModule: %v", err)
	}

	d, err := Open(&buf, ctx, DeserializeOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := d.LookupFunction("makeArray", true)
	if err != nil {
		t.Fatalf("LookupFunction: %v", err)
	}

	var gotArr *ir.AllocArray
	var gotDealloc *ir.DeallocArray
	for _, instr := range got.Blocks[0].Instrs {
		switch v := instr.(type) {
		case *ir.AllocArray:
			gotArr = v
		case *ir.DeallocArray:
			gotDealloc = v
		}
	}
	if gotArr == nil {
		t.Fatalf("round-tripped body has no AllocArray instruction")
	}
	if gotArr.Type().String() != arrayT.String() {
		t.Errorf("AllocArray.Type() = %v, want %v", gotArr.Type(), arrayT)
	}
	if _, ok := gotArr.Count.(*ir.AllocStack); !ok {
		t.Errorf("AllocArray.Count did not resolve to an AllocStack value, got %T", gotArr.Count)
	}
	if gotDealloc == nil {
		t.Fatalf("round-tripped body has no DeallocArray instruction")
	}
	if gotDealloc.Operand != ir.Value(gotArr) {
		t.Errorf("DeallocArray.Operand did not resolve to the decoded AllocArray")
	}
}

func TestGlobalRoundTrip(t *testing.T) {
	ctx := types.NewContext()
	in := ident.NewInterner()
	intT := testIntType(in)
	mod := ir.NewModule(ctx)
	mod.Globals["counter"] = &ir.Global{Name_: "counter", Typ: intT, Linkage: ir.Hidden}

	var buf bytes.Buffer
	if err := WriteModule(&buf, mod, Options{ModuleVersion: ModuleVersion{Path: "m", Version: "v0"}}); err != nil {
		t.Fatalf("WriteModule: %v", err)
	}
	d, err := Open(&buf, ctx, DeserializeOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	g, err := d.LookupGlobal("counter")
	if err != nil {
		t.Fatalf("LookupGlobal: %v", err)
	}
	if g.Linkage != ir.Hidden {
		t.Errorf("counter.Linkage = %v, want Hidden", g.Linkage)
	}
	if g.Type().String() != intT.String() {
		t.Errorf("counter.Type() = %v, want %v", g.Type(), intT)
	}
}

func TestVTableRoundTripResolvesLazyImpl(t *testing.T) {
	ctx := types.NewContext()
	in := ident.NewInterner()
	intT := testIntType(in)
	sig := ctx.Func(intT, intT, 0)
	mod := ir.NewModule(ctx)

	impl := &ir.Function{Name_: "Animal.speak", Signature: sig, Linkage: ir.Private, Module: mod}
	b := impl.NewBlock("entry")
	arg := ir.NewArgument("%0", intT)
	b.Args = append(b.Args, arg)
	b.Emit(ir.NewReturn(arg))
	mod.Functions["Animal.speak"] = impl

	class := &types.Nominal{Kind: types.Class, Name: in.Intern("Animal")}
	mod.VTables["Animal"] = &ir.VTable{
		Class:   class,
		Entries: []ir.VTableEntry{{Method: "speak", Impl: impl}},
	}

	var buf bytes.Buffer
	if err := WriteModule(&buf, mod, Options{ModuleVersion: ModuleVersion{Path: "m", Version: "v0"}}); err != nil {
		t.Fatalf("WriteModule: %v", err)
	}
	d, err := Open(&buf, ctx, DeserializeOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	vt, err := d.LookupVTable("Animal")
	if err != nil {
		t.Fatalf("LookupVTable: %v", err)
	}
	got, ok := vt.Lookup("speak")
	if !ok {
		t.Fatalf("vt.Lookup(speak) not found")
	}
	if got.Name() != "Animal.speak" {
		t.Errorf("vt entry Impl.Name() = %q, want Animal.speak", got.Name())
	}
	// Impl was resolved through the lazy path (d.resolveFunction), not a
	// direct map index: it must already be registered in d.mod.Functions.
	if _, ok := d.mod.Functions["Animal.speak"]; !ok {
		t.Errorf("vtable-lazy-resolved function not registered in module")
	}
}

func TestPrefetchFunctionsWarmsCache(t *testing.T) {
	mod, _ := buildModule(t)

	var buf bytes.Buffer
	opts := Options{ModuleVersion: ModuleVersion{Path: "m", Version: "v0"}, SerializeAll: true}
	if err := WriteModule(&buf, mod, opts); err != nil {
		t.Fatalf("WriteModule: %v", err)
	}

	d, err := Open(&buf, mod.Ctx, DeserializeOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := d.PrefetchFunctions(context.Background(), []string{"id", "helper"}, true); err != nil {
		t.Fatalf("PrefetchFunctions: %v", err)
	}

	for _, name := range []string{"id", "helper"} {
		entry := d.funcs[name]
		if entry.state != stateResident {
			t.Errorf("%s cache state = %v after PrefetchFunctions(full=true), want stateResident", name, entry.state)
		}
	}
}

// TestForwardReferenceResolution exercises decodeIDs' placeholder
// machinery directly: a consumer decoded before its operand's defining
// record must still end up pointing at the real value once it arrives.
func TestForwardReferenceResolution(t *testing.T) {
	ctx := types.NewContext()
	in := ident.NewInterner()
	intT := testIntType(in)
	mod := ir.NewModule(ctx)
	d := newDecodeIDs(mod)

	// id 0 is referenced before it is defined.
	placeholder0 := d.get(0, intT)
	ret := ir.NewReturn(placeholder0)
	d.registerConsumer(ret)

	if _, ok := ret.Operand.(*placeholder); !ok {
		t.Fatalf("Return.Operand is not a placeholder before define")
	}

	real := ir.NewArgument("%0", intT)
	d.define(0, real)

	if ret.Operand != real {
		t.Errorf("Return.Operand = %v after define, want the real argument", ret.Operand)
	}
	if err := d.finish(); err != nil {
		t.Errorf("finish() = %v, want nil (no ids left outstanding)", err)
	}
}

func TestFinishReportsUnresolvedForwardReference(t *testing.T) {
	ctx := types.NewContext()
	mod := ir.NewModule(ctx)
	d := newDecodeIDs(mod)

	ph := d.get(7, testIntType(ident.NewInterner()))
	ret := ir.NewReturn(ph)
	d.registerConsumer(ret)

	if err := d.finish(); err == nil {
		t.Errorf("finish() = nil, want an error for id 7 never defined")
	}
}
