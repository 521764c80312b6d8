package types

import (
	"testing"

	"github.com/silcore/compiler/ident"
)

func intType(in *ident.Interner) *Nominal {
	return &Nominal{Kind: Struct, Name: in.Intern("Int"), DeclKey: 1}
}

func TestCanonicalEquality(t *testing.T) {
	ctx := NewContext()
	in := ident.NewInterner()
	i := intType(in)

	t1 := ctx.Tuple([]TupleField{{Label: "x", Type: i}, {Label: "y", Type: i}})
	t2 := ctx.Tuple([]TupleField{{Label: "x", Type: i}, {Label: "y", Type: i}})
	if !Identical(t1, t2) {
		t.Fatalf("structurally identical tuples did not canonicalize to the same node")
	}

	t3 := ctx.Tuple([]TupleField{{Label: "x", Type: i}})
	if Identical(t1, t3) {
		t.Fatalf("structurally distinct tuples canonicalized to the same node")
	}
}

func TestFuncCanonicalAndAttrs(t *testing.T) {
	ctx := NewContext()
	in := ident.NewInterner()
	i := intType(in)

	f1 := ctx.Func(i, i, NoReturn|Thin)
	f2 := ctx.Func(i, i, NoReturn|Thin)
	if !Identical(f1, f2) {
		t.Fatalf("identical function types did not canonicalize")
	}
	if !f1.Attrs.Has(NoReturn) || !f1.Attrs.Has(Thin) || f1.Attrs.Has(Autoclosure) {
		t.Fatalf("FuncAttr.Has gave wrong results: %v", f1.Attrs)
	}
}

func TestOptionalAndErrorSentinelAreSingletons(t *testing.T) {
	ctx := NewContext()
	in := ident.NewInterner()
	i := intType(in)

	o1 := ctx.Optional(i)
	o2 := ctx.Optional(i)
	if !Identical(o1, o2) {
		t.Fatalf("Optional(Int) did not canonicalize")
	}

	e1 := ctx.ErrorType()
	e2 := ctx.ErrorType()
	if !Identical(e1, e2) {
		t.Fatalf("ErrorType() is not a per-context singleton")
	}
}

func TestSubstitutionApply(t *testing.T) {
	ctx := NewContext()
	in := ident.NewInterner()
	i := intType(in)
	arch := &Archetype{Name: in.Intern("T"), ParamDepth: 0, ParamIndex: 0}

	sub := NewSubstitution()
	sub.Bind(0, 0, i)

	fn := ctx.Func(arch, arch, 0)
	got := sub.Apply(ctx, fn)
	want := ctx.Func(i, i, 0)
	if !Identical(got, want) {
		t.Fatalf("Apply(T -> Int) on (T)->T = %v, want %v", got, want)
	}
}

func TestSubstitutionContainsUnbound(t *testing.T) {
	ctx := NewContext()
	in := ident.NewInterner()
	i := intType(in)
	archT := &Archetype{Name: in.Intern("T"), ParamDepth: 0, ParamIndex: 0}
	archU := &Archetype{Name: in.Intern("U"), ParamDepth: 0, ParamIndex: 1}

	sub := NewSubstitution()
	sub.Bind(0, 0, i)

	tup := ctx.Tuple([]TupleField{{Type: archT}, {Type: archU}})
	if !sub.ContainsUnbound(tup) {
		t.Fatalf("expected unbound U to be detected")
	}

	sub.Bind(0, 1, i)
	if sub.ContainsUnbound(tup) {
		t.Fatalf("did not expect unbound archetypes once both are bound")
	}
}

func TestComposeSubstitutions(t *testing.T) {
	ctx := NewContext()
	in := ident.NewInterner()
	i := intType(in)
	s := in.Intern("String")
	str := &Nominal{Kind: Struct, Name: s, DeclKey: 2}

	// inner: callee's own param 0 -> archetype of caller's signature (depth 1, index 0)
	callerArch := &Archetype{Name: in.Intern("U"), ParamDepth: 1, ParamIndex: 0}
	inner := NewSubstitution()
	inner.Bind(0, 0, callerArch)

	// outer: caller's param (depth 1, index 0) -> String
	outer := NewSubstitution()
	outer.Bind(1, 0, str)

	composed := Compose(ctx, outer, inner)
	got, ok := composed.Lookup(0, 0)
	if !ok || !Identical(got, str) {
		t.Fatalf("Compose did not resolve callee param 0 to String, got %v", got)
	}
	_ = i
}
