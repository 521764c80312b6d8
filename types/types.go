// Package types implements the canonical, hash-consed type system of
// spec.md §3.1 (C3). Every Type is immutable once constructed and two
// Types are equal iff they are the same hash-cons node — the same
// canonicalization discipline the teacher's go/types applies to *Named,
// *Signature and *Tuple, generalized here to the richer sum this spec
// requires (archetypes, reference-storage wrappers, protocol composition,
// the single-payload optional, and an error sentinel).
package types

import (
	"fmt"
	"strings"
	"sync"

	"github.com/silcore/compiler/ident"
)

// Type is the canonical representation of every type in the compiler.
// Implementations are comparable by Go's == operator because every
// instance is hash-cons uniqued by a *Context; clients should never
// construct a Type value directly.
type Type interface {
	isType()
	String() string
}

// NominalKind distinguishes the four declarable nominal shapes.
type NominalKind int

const (
	Struct NominalKind = iota
	Enum
	Class
	Protocol
)

func (k NominalKind) String() string {
	switch k {
	case Struct:
		return "struct"
	case Enum:
		return "enum"
	case Class:
		return "class"
	case Protocol:
		return "protocol"
	}
	return "nominal?"
}

// Nominal is a declared struct/enum/class/protocol type, identified by its
// declaration identity (so two distinct decls with the same name, e.g. in
// different modules, are distinct Nominals).
type Nominal struct {
	Kind    NominalKind
	Name    ident.ID
	DeclKey uintptr // stable identity of the owning AST decl (arena index)
}

func (*Nominal) isType() {}
func (n *Nominal) String() string {
	return n.Name.String()
}

// BoundGenericNominal is a Nominal applied to a list of concrete type
// arguments, e.g. Array<Int>.
type BoundGenericNominal struct {
	Base *Nominal
	Args []Type
}

func (*BoundGenericNominal) isType() {}
func (b *BoundGenericNominal) String() string {
	parts := make([]string, len(b.Args))
	for i, a := range b.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s<%s>", b.Base.String(), strings.Join(parts, ", "))
}

// TupleField is one labeled (or positional) element of a Tuple.
type TupleField struct {
	Label    string // "" if unlabeled
	Type     Type
	Variadic bool // true only for the final field
}

// Tuple is an ordered sequence of typed fields with optional labels and an
// optional variadic tail field.
type Tuple struct {
	Fields []TupleField
}

func (*Tuple) isType() {}
func (t *Tuple) String() string {
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		lbl := ""
		if f.Label != "" {
			lbl = f.Label + ": "
		}
		v := ""
		if f.Variadic {
			v = "..."
		}
		parts[i] = lbl + f.Type.String() + v
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// FuncAttr is a bitset of function-type attributes.
type FuncAttr uint8

const (
	NoReturn FuncAttr = 1 << iota
	Autoclosure
	Noescape
	Thin
	Thick
)

func (a FuncAttr) Has(f FuncAttr) bool { return a&f != 0 }

// Func is a function type: an input type mapping to a result type, with
// attribute bits. Curried functions are represented as Func types whose
// Result is itself a Func (uncurry level N is N nested Funcs).
type Func struct {
	Input  Type
	Result Type
	Attrs  FuncAttr
}

func (*Func) isType() {}
func (f *Func) String() string {
	return fmt.Sprintf("(%s) -> %s", f.Input.String(), f.Result.String())
}

// Metatype is the type of a type, e.g. Int.Type or (any Base).Type.
type Metatype struct {
	Instance Type
}

func (*Metatype) isType() {}
func (m *Metatype) String() string { return m.Instance.String() + ".Type" }

// ProtocolComposition is the conjunction of a set of protocol requirements
// (and optionally a superclass bound).
type ProtocolComposition struct {
	Protocols  []*Nominal // each Kind == Protocol
	Superclass *Nominal   // nil if none
}

func (*ProtocolComposition) isType() {}
func (p *ProtocolComposition) String() string {
	names := make([]string, 0, len(p.Protocols)+1)
	if p.Superclass != nil {
		names = append(names, p.Superclass.String())
	}
	for _, pr := range p.Protocols {
		names = append(names, pr.String())
	}
	return strings.Join(names, " & ")
}

// ConformanceRequirement is one requirement an Archetype must satisfy.
type ConformanceRequirement struct {
	Protocol *Nominal
}

// Archetype is the compile-time representative of a generic parameter: an
// opaque stand-in carrying the set of conformances (and optional
// superclass bound) it is known to satisfy.
type Archetype struct {
	Name         ident.ID
	ParamDepth   int // generic-signature nesting depth
	ParamIndex   int
	Requirements []ConformanceRequirement
	Superclass   Type // nil if none
}

func (*Archetype) isType() {}
func (a *Archetype) String() string { return a.Name.String() }

// RefStorageKind distinguishes the four reference-storage wrappers.
type RefStorageKind int

const (
	Strong RefStorageKind = iota
	Weak
	Unowned
	Unmanaged
)

func (k RefStorageKind) String() string {
	switch k {
	case Strong:
		return "strong"
	case Weak:
		return "weak"
	case Unowned:
		return "unowned"
	case Unmanaged:
		return "unmanaged"
	}
	return "refstorage?"
}

// ReferenceStorage wraps a reference (class or existential) type with a
// storage-ownership qualifier.
type ReferenceStorage struct {
	Kind     RefStorageKind
	Referent Type
}

func (*ReferenceStorage) isType() {}
func (r *ReferenceStorage) String() string {
	return fmt.Sprintf("%s %s", r.Kind, r.Referent.String())
}

// Optional is a single-payload enum wrapping exactly one other type.
type Optional struct {
	Wrapped Type
}

func (*Optional) isType() {}
func (o *Optional) String() string { return o.Wrapped.String() + "?" }

// ErrorSentinel is the distinguished error type assigned to any
// expression, decl or sub-expression that could not be type-checked
// (spec.md §7: downstream validators treat it as already-diagnosed).
type ErrorSentinel struct{}

func (*ErrorSentinel) isType() {}
func (*ErrorSentinel) String() string { return "<<error type>>" }
