package ir

import (
	"testing"

	"github.com/silcore/compiler/ident"
	"github.com/silcore/compiler/types"
)

func TestResolveConformanceNormal(t *testing.T) {
	ctx := types.NewContext()
	in := ident.NewInterner()
	protocol := &types.Nominal{Kind: types.Protocol, Name: in.Intern("Equatable")}
	concrete := &types.Nominal{Kind: types.Struct, Name: in.Intern("Point")}

	normal := &NormalConformance{Type: concrete, Protocol: protocol, Table: &WitnessTable{ConformingType: concrete, Protocol: protocol}}

	root, subst := ResolveConformance(ctx, normal)
	if root != normal {
		t.Fatalf("ResolveConformance on a Normal conformance did not return it unchanged")
	}
	if subst != nil {
		t.Errorf("ResolveConformance on a Normal conformance accumulated a non-nil substitution")
	}
}

func TestResolveConformanceInherited(t *testing.T) {
	ctx := types.NewContext()
	in := ident.NewInterner()
	protocol := &types.Nominal{Kind: types.Protocol, Name: in.Intern("Equatable")}
	base := &types.Nominal{Kind: types.Class, Name: in.Intern("Base")}

	normal := &NormalConformance{Type: base, Protocol: protocol, Table: &WitnessTable{ConformingType: base, Protocol: protocol}}
	inherited := &InheritedConformance{Inherited: normal}

	root, subst := ResolveConformance(ctx, inherited)
	if root != normal {
		t.Fatalf("ResolveConformance did not walk through Inherited to the Normal root")
	}
	if subst != nil {
		t.Errorf("resolving an Inherited conformance produced a non-nil substitution")
	}
}

func TestResolveConformanceSpecializedPropagatesSubstitution(t *testing.T) {
	ctx := types.NewContext()
	in := ident.NewInterner()
	protocol := &types.Nominal{Kind: types.Protocol, Name: in.Intern("Equatable")}
	generic := &types.Nominal{Kind: types.Struct, Name: in.Intern("Box")}
	intT := &types.Nominal{Kind: types.Struct, Name: in.Intern("Int")}

	normal := &NormalConformance{Type: generic, Protocol: protocol, Table: &WitnessTable{ConformingType: generic, Protocol: protocol}}

	inner := types.NewSubstitution()
	inner.Bind(0, 0, intT)
	specialized := &SpecializedConformance{Generic: normal, Subst: inner}

	root, subst := ResolveConformance(ctx, specialized)
	if root != normal {
		t.Fatalf("ResolveConformance on a single Specialized layer did not reach the Normal root")
	}
	if subst == nil || subst.Len() != 1 {
		t.Fatalf("ResolveConformance did not propagate the single substitution layer, got %v", subst)
	}
	got, ok := subst.Lookup(0, 0)
	if !ok || got != intT {
		t.Errorf("resolved substitution binds (0,0) = %v, want %v", got, intT)
	}
}

func TestLookupWitnessTableCaches(t *testing.T) {
	ctx := types.NewContext()
	m := NewModule(ctx)
	in := ident.NewInterner()
	protocol := &types.Nominal{Kind: types.Protocol, Name: in.Intern("Equatable")}
	concrete := &types.Nominal{Kind: types.Struct, Name: in.Intern("Point")}
	table := &WitnessTable{ConformingType: concrete, Protocol: protocol}
	normal := &NormalConformance{Type: concrete, Protocol: protocol, Table: table}

	got1, _ := m.LookupWitnessTable(normal)
	got2, _ := m.LookupWitnessTable(normal)
	if got1 != table || got2 != table {
		t.Fatalf("LookupWitnessTable did not return the conformance's table")
	}
	if _, ok := m.witnessCache[normal]; !ok {
		t.Errorf("LookupWitnessTable did not populate the cache")
	}
}

func TestWitnessTableDefineUpgradesState(t *testing.T) {
	wt := &WitnessTable{State: WitnessDeclaration}
	wt.Define([]WitnessEntry{{Kind: WitnessMethodRequirement, Requirement: "=="}})
	if wt.State != WitnessDefinition {
		t.Errorf("Define did not upgrade State to WitnessDefinition")
	}
	if len(wt.Entries) != 1 {
		t.Errorf("Define did not install the given entries")
	}
}

func TestVTableLookup(t *testing.T) {
	fn := &Function{Name_: "Base.speak"}
	vt := &VTable{Entries: []VTableEntry{{Method: "speak", Impl: fn}}}

	got, ok := vt.Lookup("speak")
	if !ok || got != fn {
		t.Fatalf("VTable.Lookup(speak) = %v, %v; want %v, true", got, ok, fn)
	}
	if _, ok := vt.Lookup("missing"); ok {
		t.Errorf("VTable.Lookup(missing) reported found")
	}
}
