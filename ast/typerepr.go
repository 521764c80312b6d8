package ast

import "github.com/silcore/compiler/sourcemap"

// TypeRepr is the syntactic representation of a type as written in
// source, before sema resolves it to a canonical types.Type. Keeping this
// tree distinct from types.Type is what lets the accessibility checker
// (spec.md §4.2) walk the syntactic structure and point a diagnostic at
// the specific TypeRepr sub-node with minimum accessibility, rather than
// just the resolved type.
type TypeRepr interface {
	Node
	typeReprNode()
}

type typeReprBase struct {
	rng sourcemap.Range
}

func (t typeReprBase) Range() sourcemap.Range { return t.rng }
func (typeReprBase) typeReprNode()            {}

// IdentTypeRepr names a type by identifier, with an optional resolved
// Decl (set by sema) and optional generic arguments.
type IdentTypeRepr struct {
	typeReprBase
	Name     string
	Resolved Decl
	Args     []TypeRepr
}

func NewIdentTypeRepr(rng sourcemap.Range, name string) *IdentTypeRepr {
	return &IdentTypeRepr{typeReprBase: typeReprBase{rng}, Name: name}
}

// OptionalTypeRepr is `T?`.
type OptionalTypeRepr struct {
	typeReprBase
	Wrapped TypeRepr
}

func NewOptionalTypeRepr(rng sourcemap.Range, wrapped TypeRepr) *OptionalTypeRepr {
	return &OptionalTypeRepr{typeReprBase{rng}, wrapped}
}

// TupleTypeRepr is `(T, U, ...)`.
type TupleTypeRepr struct {
	typeReprBase
	Elements []TypeRepr
}

func NewTupleTypeRepr(rng sourcemap.Range, elements []TypeRepr) *TupleTypeRepr {
	return &TupleTypeRepr{typeReprBase{rng}, elements}
}

// FunctionTypeRepr is `(Input) -> Result`.
type FunctionTypeRepr struct {
	typeReprBase
	Input  TypeRepr
	Result TypeRepr
}

func NewFunctionTypeRepr(rng sourcemap.Range, input, result TypeRepr) *FunctionTypeRepr {
	return &FunctionTypeRepr{typeReprBase{rng}, input, result}
}

// CompositionTypeRepr is `A & B & C`.
type CompositionTypeRepr struct {
	typeReprBase
	Members []TypeRepr
}

func NewCompositionTypeRepr(rng sourcemap.Range, members []TypeRepr) *CompositionTypeRepr {
	return &CompositionTypeRepr{typeReprBase{rng}, members}
}
