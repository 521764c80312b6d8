package ast

import "github.com/silcore/compiler/sourcemap"

// DeclKind discriminates the Decl variants of spec.md §3.2.
type DeclKind int

const (
	DeclImport DeclKind = iota
	DeclTypeAlias
	DeclAssociatedType
	DeclGenericParam
	DeclNominal
	DeclExtension
	DeclVar
	DeclFunc
	DeclConstructor
	DeclDestructor
	DeclSubscript
	DeclEnumElement
	DeclOperator
	DeclTopLevel
)

// Decl is implemented by every declaration node. Every decl has kind,
// source range, attribute set, accessibility, validation flags and a
// declaration-context parent (spec.md §3.2).
type Decl interface {
	Node
	Kind() DeclKind
	Attrs() AttributeSet
	Accessibility() Accessibility
	SetAccessibility(Accessibility)
	State() ValidationState
	SetState(ValidationState)
	Parent() Decl
	SetParent(Decl)
}

// base is embedded by every concrete Decl to supply the common fields.
type base struct {
	kind   DeclKind
	rng    sourcemap.Range
	attrs  AttributeSet
	access Accessibility
	state  ValidationState
	parent Decl
}

func (b *base) Range() sourcemap.Range         { return b.rng }
func (b *base) Kind() DeclKind                 { return b.kind }
func (b *base) Attrs() AttributeSet            { return b.attrs }
func (b *base) Accessibility() Accessibility    { return b.access }
func (b *base) SetAccessibility(a Accessibility) { b.access = a }
func (b *base) State() ValidationState         { return b.state }
func (b *base) SetState(s ValidationState)     { b.state = s }
func (b *base) Parent() Decl                   { return b.parent }
func (b *base) SetParent(p Decl)               { b.parent = p }

func newBase(kind DeclKind, rng sourcemap.Range, attrs AttributeSet) base {
	return base{kind: kind, rng: rng, attrs: attrs}
}

// ImportDecl imports another module.
type ImportDecl struct {
	base
	Path string
}

func NewImportDecl(rng sourcemap.Range, attrs AttributeSet, path string) *ImportDecl {
	return &ImportDecl{base: newBase(DeclImport, rng, attrs), Path: path}
}

// TypeAliasDecl introduces a name for an existing type.
type TypeAliasDecl struct {
	base
	Name     string
	Underlying TypeRepr
}

func NewTypeAliasDecl(rng sourcemap.Range, attrs AttributeSet, name string, underlying TypeRepr) *TypeAliasDecl {
	return &TypeAliasDecl{base: newBase(DeclTypeAlias, rng, attrs), Name: name, Underlying: underlying}
}

// AssociatedTypeDecl declares a protocol's associated type requirement.
type AssociatedTypeDecl struct {
	base
	Name        string
	Requirements []TypeRepr
	Default     TypeRepr // nil if none
}

func NewAssociatedTypeDecl(rng sourcemap.Range, attrs AttributeSet, name string, reqs []TypeRepr, def TypeRepr) *AssociatedTypeDecl {
	return &AssociatedTypeDecl{base: newBase(DeclAssociatedType, rng, attrs), Name: name, Requirements: reqs, Default: def}
}

// GenericParamDecl declares one generic parameter of a nominal or function.
type GenericParamDecl struct {
	base
	Name         string
	Depth, Index int
	Requirements []TypeRepr
	Superclass   TypeRepr
}

func NewGenericParamDecl(rng sourcemap.Range, attrs AttributeSet, name string, depth, index int) *GenericParamDecl {
	return &GenericParamDecl{base: newBase(DeclGenericParam, rng, attrs), Name: name, Depth: depth, Index: index}
}

// NominalKind mirrors types.NominalKind without importing the types
// package, keeping ast free of a dependency on the type-checked result.
type NominalKind int

const (
	NominalStruct NominalKind = iota
	NominalEnum
	NominalClass
	NominalProtocol
)

// NominalDecl declares a struct/enum/class/protocol.
type NominalDecl struct {
	base
	NomKind      NominalKind
	Name         string
	GenericParams []*GenericParamDecl
	Inherited    []TypeRepr // superclass/raw-type/protocols, syntactic order
	Members      []Decl
}

func NewNominalDecl(rng sourcemap.Range, attrs AttributeSet, kind NominalKind, name string) *NominalDecl {
	return &NominalDecl{base: newBase(DeclNominal, rng, attrs), NomKind: kind, Name: name}
}

// ExtensionDecl extends an existing nominal with new members/conformances.
type ExtensionDecl struct {
	base
	ExtendedType TypeRepr
	Inherited    []TypeRepr
	Members      []Decl
}

func NewExtensionDecl(rng sourcemap.Range, attrs AttributeSet, extended TypeRepr) *ExtensionDecl {
	return &ExtensionDecl{base: newBase(DeclExtension, rng, attrs), ExtendedType: extended}
}

// VarDecl is a (possibly multi-name, via pattern) stored or computed
// property / top-level binding.
type VarDecl struct {
	base
	Pattern     Pattern
	Initializer Expr // nil if none
	IsLet       bool
	IsStatic    bool
	TypeAnnotation TypeRepr // nil if inferred
	Accessors   []*AccessorDecl
}

func NewVarDecl(rng sourcemap.Range, attrs AttributeSet, pattern Pattern, isLet bool) *VarDecl {
	return &VarDecl{base: newBase(DeclVar, rng, attrs), Pattern: pattern, IsLet: isLet}
}

// IsSettable reports whether the property can be assigned: `let` bindings
// and read-only computed properties (a getter with no setter and no
// willSet/didSet observer) are not settable.
func (v *VarDecl) IsSettable() bool {
	if v.IsLet {
		return false
	}
	if len(v.Accessors) == 0 {
		return true // stored var
	}
	for _, a := range v.Accessors {
		if a.AccessorKind == AccessorSet || a.AccessorKind == AccessorWillSet || a.AccessorKind == AccessorDidSet {
			return true
		}
	}
	return false
}

// AccessorKind distinguishes property accessor bodies.
type AccessorKind int

const (
	AccessorGet AccessorKind = iota
	AccessorSet
	AccessorWillSet
	AccessorDidSet
)

// AccessorDecl is one get/set/willSet/didSet body of a VarDecl or
// SubscriptDecl.
type AccessorDecl struct {
	base
	AccessorKind AccessorKind
	Body         []Stmt
}

func NewAccessorDecl(rng sourcemap.Range, kind AccessorKind, body []Stmt) *AccessorDecl {
	return &AccessorDecl{base: newBase(DeclFunc, rng, nil), AccessorKind: kind, Body: body}
}

// Param is one function/initializer/subscript parameter.
type Param struct {
	Label      string // external label, "" if none ("_")
	Name       string // internal name
	Type       TypeRepr
	Variadic   bool
}

// FuncDecl declares a function or method.
type FuncDecl struct {
	base
	Name          string
	GenericParams []*GenericParamDecl
	Params        []Param
	ResultType    TypeRepr // nil if Void
	Body          []Stmt   // nil for protocol requirements
	IsStatic      bool
	Selector      string // the runtime-dispatchable selector, if applicable
}

func NewFuncDecl(rng sourcemap.Range, attrs AttributeSet, name string, params []Param, result TypeRepr) *FuncDecl {
	return &FuncDecl{base: newBase(DeclFunc, rng, attrs), Name: name, Params: params, ResultType: result}
}

// UncurriedResult returns the FuncDecl's result type with one level of
// currying removed (spec.md §4.2: "result-optionality dropped at uncurry
// level 1"), i.e. the declared ResultType itself for a method (whose
// first curry level is always the receiver).
func (f *FuncDecl) UncurriedResult() TypeRepr { return f.ResultType }

// ConstructorDecl declares an initializer.
type ConstructorDecl struct {
	base
	GenericParams []*GenericParamDecl
	Params        []Param
	Body          []Stmt
	Failable      bool
	Required      bool
}

func NewConstructorDecl(rng sourcemap.Range, attrs AttributeSet, params []Param) *ConstructorDecl {
	return &ConstructorDecl{base: newBase(DeclConstructor, rng, attrs), Params: params}
}

// DestructorDecl declares a class's deinitializer.
type DestructorDecl struct {
	base
	Body []Stmt
}

func NewDestructorDecl(rng sourcemap.Range, attrs AttributeSet, body []Stmt) *DestructorDecl {
	return &DestructorDecl{base: newBase(DeclDestructor, rng, attrs), Body: body}
}

// SubscriptDecl declares a subscript member.
type SubscriptDecl struct {
	base
	Params     []Param
	ResultType TypeRepr
	Accessors  []*AccessorDecl
}

func NewSubscriptDecl(rng sourcemap.Range, attrs AttributeSet, params []Param, result TypeRepr) *SubscriptDecl {
	return &SubscriptDecl{base: newBase(DeclSubscript, rng, attrs), Params: params, ResultType: result}
}

// EnumElementDecl declares one case of an enum.
type EnumElementDecl struct {
	base
	Name             string
	AssociatedValues []TypeRepr
	RawValue         Expr // nil if none
}

func NewEnumElementDecl(rng sourcemap.Range, attrs AttributeSet, name string) *EnumElementDecl {
	return &EnumElementDecl{base: newBase(DeclEnumElement, rng, attrs), Name: name}
}

// OperatorDecl declares a custom operator's fixity/precedence.
type OperatorDecl struct {
	base
	Symbol string
}

func NewOperatorDecl(rng sourcemap.Range, attrs AttributeSet, symbol string) *OperatorDecl {
	return &OperatorDecl{base: newBase(DeclOperator, rng, attrs), Symbol: symbol}
}

// TopLevelDecl wraps a file's top-level executable statements.
type TopLevelDecl struct {
	base
	Stmts []Stmt
}

func NewTopLevelDecl(rng sourcemap.Range, stmts []Stmt) *TopLevelDecl {
	return &TopLevelDecl{base: newBase(DeclTopLevel, rng, nil), Stmts: stmts}
}
