package ir

import "github.com/silcore/compiler/types"

// VTable is a class's ordered dispatch table: method reference to
// concrete implementation (spec.md §3.4).
type VTable struct {
	Class   *types.Nominal
	Entries []VTableEntry
}

// VTableEntry maps one method reference (identified by its mangled
// selector, since the declaring FuncDecl lives in package ast which ir
// must not import) to its most-derived implementation.
type VTableEntry struct {
	Method string
	Impl   *Function
}

// Lookup returns the implementation bound to method, if any.
func (vt *VTable) Lookup(method string) (*Function, bool) {
	for _, e := range vt.Entries {
		if e.Method == method {
			return e.Impl, true
		}
	}
	return nil, false
}

// WitnessTableState distinguishes a forward-declared witness table
// (known to exist, entries not yet filled in) from a fully-emitted one
// (spec.md §3.4 "declaration vs. definition").
type WitnessTableState int

const (
	WitnessDeclaration WitnessTableState = iota
	WitnessDefinition
)

// WitnessEntryKind discriminates a WitnessTable entry's payload.
type WitnessEntryKind int

const (
	WitnessBaseProtocol WitnessEntryKind = iota
	WitnessAssociatedType
	WitnessAssociatedTypeProtocol
	WitnessMethodRequirement
)

// WitnessEntry is one row of a WitnessTable (spec.md §3.4).
type WitnessEntry struct {
	Kind WitnessEntryKind

	// WitnessBaseProtocol
	BaseProtocol   *types.Nominal
	NestedConformance Conformance

	// WitnessAssociatedType
	AssociatedType types.Type

	// WitnessAssociatedTypeProtocol
	AssocTypeProtocol *types.Nominal

	// WitnessMethodRequirement
	Requirement string
	Impl        *Function
}

// WitnessTable is the runtime artifact realizing one (type, protocol)
// normal conformance (spec.md §3.4).
type WitnessTable struct {
	ConformingType types.Type
	Protocol       *types.Nominal
	State          WitnessTableState
	Entries        []WitnessEntry
}

// Define upgrades a declaration-only table in place to a definition,
// per spec.md §3.4 ("a declaration can be upgraded in place to a
// definition").
func (wt *WitnessTable) Define(entries []WitnessEntry) {
	wt.Entries = entries
	wt.State = WitnessDefinition
}

// Conformance is the sum type of spec.md §3.4: Normal (root, for a
// concrete nominal), Inherited (wraps a parent class's conformance) or
// Specialized (wraps a generic conformance with a substitution list).
// All three are comparable struct/pointer values so a Conformance can
// key Module's witness-table cache.
type Conformance interface {
	isConformance()
}

// NormalConformance roots a conformance at a concrete type's own
// witness table.
type NormalConformance struct {
	Type     types.Type
	Protocol *types.Nominal
	Table    *WitnessTable
}

func (*NormalConformance) isConformance() {}

// InheritedConformance wraps a superclass's conformance, inherited
// unchanged by a subclass.
type InheritedConformance struct {
	Inherited Conformance
}

func (*InheritedConformance) isConformance() {}

// SpecializedConformance wraps a generic conformance together with the
// substitution that makes it concrete at a particular instantiation.
type SpecializedConformance struct {
	Generic Conformance
	Subst   *types.Substitution
}

func (*SpecializedConformance) isConformance() {}

// ResolveConformance walks Inherited/Specialized wrappers down to a
// Normal root, accumulating substitutions along the way (spec.md §3.4,
// §4.3 lookup_witness_table). The returned substitution is the
// composition of every Specialized layer crossed, outermost first; ctx
// canonicalizes the types produced by that composition.
func ResolveConformance(ctx *types.Context, c Conformance) (*NormalConformance, *types.Substitution) {
	var acc *types.Substitution
	for {
		switch n := c.(type) {
		case *NormalConformance:
			return n, acc
		case *InheritedConformance:
			c = n.Inherited
		case *SpecializedConformance:
			if acc == nil {
				acc = n.Subst
			} else {
				acc = types.Compose(ctx, acc, n.Subst)
			}
			c = n.Generic
		default:
			return nil, acc
		}
	}
}

// LookupWitnessTable implements spec.md §4.3's lookup_witness_table: it
// resolves c to its Normal root and returns that root's table (cached per
// conformance), plus the accumulated substitution list. The conformance
// chain is walked again on every call, cached or not, to rebuild that
// substitution list.
func (m *Module) LookupWitnessTable(c Conformance) (*WitnessTable, *types.Substitution) {
	if cached, ok := m.witnessCache[c]; ok {
		_, subst := ResolveConformance(m.Ctx, c)
		return cached, subst
	}
	normal, subst := ResolveConformance(m.Ctx, c)
	if normal == nil {
		return nil, subst
	}
	m.witnessCache[c] = normal.Table
	return normal.Table, subst
}
